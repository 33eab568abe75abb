package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/application/testrun"
	"refine-ai-api/internal/application/wizard"
	"refine-ai-api/internal/config"
	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/domain/entity"
	"refine-ai-api/internal/infrastructure/persistence/redis"
	"refine-ai-api/internal/interfaces/http/dto"
	"refine-ai-api/internal/interfaces/http/handler"
	"refine-ai-api/internal/interfaces/http/middleware"
	wfmodel "refine-ai-api/internal/workflow/model"
	"refine-ai-api/internal/workflow/prompt"
	"refine-ai-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*entity.User)}
}

func (r *memUsers) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = "user-" + u.Email
	r.users[u.ID] = u
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == entity.NormalizeEmail(email) {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := r.GetByEmail(ctx, email)
	return u != nil, nil
}

func (r *memUsers) UpdateLastLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (r *memUsers) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type fakeStreamer struct {
	stream func() (*schema.StreamReader[*schema.Message], error)
}

func (f *fakeStreamer) Stream(_ context.Context, _ *wfmodel.TestRunInput) (*schema.StreamReader[*schema.Message], error) {
	return f.stream()
}

func chunks(parts ...string) func() (*schema.StreamReader[*schema.Message], error) {
	return func() (*schema.StreamReader[*schema.Message], error) {
		msgs := make([]*schema.Message, 0, len(parts))
		for _, p := range parts {
			msgs = append(msgs, schema.AssistantMessage(p, nil))
		}
		return schema.StreamReaderFromArray(msgs), nil
	}
}

type testServer struct {
	engine   *gin.Engine
	streamer *fakeStreamer
	jwt      *utils.JWTManager
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	redisClient := redis.NewClientFromRedis(rdb)

	cfg := &config.Config{}
	cfg.App.Name = "refine-ai-api"
	cfg.Security.JWT = config.JWTConfig{Secret: "test-secret", Issuer: "refine-test"}
	cfg.TestRun = config.TestRunConfig{Provider: "simulated", Timeout: 5 * time.Second}
	if mutate != nil {
		mutate(cfg)
	}

	cat := catalog.Default()
	generator := promptgen.NewGenerator(cat, prompt.NewRegistry(), nil, nil, config.GenerationConfig{Mode: config.GenerationModeTemplate})
	streamer := &fakeStreamer{stream: chunks("Hello", ", ", "world")}
	runner := testrun.NewRunner(cat, streamer, cfg.TestRun)
	wizardSvc := wizard.NewService(cat, redis.NewSessionStore(redisClient, time.Hour), generator, nil)
	users := newMemUsers()

	r := NewWithDeps(cfg, &RouterHandlers{
		Auth:         handler.NewAuthHandler(cfg.Security.JWT, users),
		User:         handler.NewUserHandler(users),
		Health:       handler.NewHealthHandler("test", map[string]handler.HealthChecker{"redis": redisClient}),
		Catalog:      handler.NewCatalogHandler(cat),
		Generate:     handler.NewGenerateHandler(generator),
		TestRun:      handler.NewTestRunHandler(runner),
		Wizard:       handler.NewWizardHandler(wizardSvc, runner),
		Library:      handler.NewLibraryHandler(nil),
		AuthConfig:   middleware.AuthConfig{Secret: cfg.Security.JWT.Secret, Issuer: cfg.Security.JWT.Issuer},
		RateLimiter:  redis.NewRateLimiter(redisClient),
		RateLimitKey: redis.BuildRateLimitKey,
	})
	return &testServer{
		engine:   r.Engine(),
		streamer: streamer,
		jwt:      utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer),
	}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGeneratePromptContract(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/generate-prompt",
		`{"category":"coding","objective":"fix my bug","persona":"Senior Architect","targetModel":"GPT-4o","format":"Markdown","tone":"70"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[dto.GeneratePromptResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, promptgen.SourceTemplate, resp.Source)
	assert.Contains(t, resp.RefinedPrompt, "fix my bug")
	assert.Contains(t, resp.RefinedPrompt, "strict, academic, and technical")
	assert.Contains(t, w.Body.String(), `"refinedPrompt"`)
}

func TestGeneratePromptErrors(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/generate-prompt", `{"objective":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])

	w = s.do(http.MethodPost, "/api/generate-prompt", `{"category":"coding","objective":"   "}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["success"])
}

func TestTestRunStreamsPlainText(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/test-run", `{"prompt":"# Role\nYou are helpful","objective":"say hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Hello, world", w.Body.String())
}

func TestTestRunRefusesImageRequests(t *testing.T) {
	s := newTestServer(t, nil)
	called := false
	s.streamer.stream = func() (*schema.StreamReader[*schema.Message], error) {
		called = true
		return nil, errors.New("must not be called")
	}

	for _, body := range []string{
		`{"prompt":"p","objective":"draw a picture of a cat"}`,
		`{"prompt":"p","objective":"x","category":"art"}`,
		`{"prompt":"p","objective":"x","targetModel":"Midjourney v6"}`,
	} {
		w := s.do(http.MethodPost, "/api/test-run", body)
		require.Equal(t, http.StatusOK, w.Code, body)
		refusal := decode[dto.TestRunRefusal](t, w)
		assert.True(t, refusal.Refused)
		assert.False(t, refusal.Success)
		assert.Equal(t, testrun.RefusalNotice, refusal.Notice)
	}
	assert.False(t, called)
}

func TestTestRunFailures(t *testing.T) {
	s := newTestServer(t, nil)

	s.streamer.stream = func() (*schema.StreamReader[*schema.Message], error) {
		return nil, errors.New("upstream returned 500")
	}
	w := s.do(http.MethodPost, "/api/test-run", `{"prompt":"p","objective":"o"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["success"])

	s.streamer.stream = func() (*schema.StreamReader[*schema.Message], error) {
		sr, sw := schema.Pipe[*schema.Message](2)
		sw.Send(schema.AssistantMessage("partial", nil), nil)
		sw.Send(nil, errors.New("connection reset"))
		sw.Close()
		return sr, nil
	}
	w = s.do(http.MethodPost, "/api/test-run", `{"prompt":"p","objective":"o"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial"+testrun.ErrorMarker, w.Body.String())
}

func TestTestRunWithoutProvider(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.TestRun.Provider = ""
	})
	w := s.do(http.MethodPost, "/api/test-run", `{"prompt":"p","objective":"o"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWizardSessionFlow(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/v1/wizard/sessions?category=coding&objective=fix+my+bug&tone=80", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.Response[dto.WizardSessionResponse]](t, w).Data
	assert.Equal(t, int(wizard.StepObjective), created.Step)
	assert.Equal(t, 80, created.Tone)
	require.NotNil(t, created.Category)
	assert.Equal(t, "coding", created.Category.ID)

	base := "/v1/wizard/sessions/" + created.ID

	w = s.do(http.MethodPatch, base+"/fields", `{"field":"persona","value":"Senior Architect"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, base+"/generate", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	gen := decode[dto.Response[dto.WizardGenerateResponse]](t, w).Data
	assert.Contains(t, gen.RefinedPrompt, "fix my bug")
	assert.True(t, gen.Session.HasGenerated)
	assert.False(t, gen.Session.ConfigChanged)
	assert.Empty(t, gen.SavedPromptID)

	w = s.do(http.MethodPatch, base+"/fields", `{"field":"target_model","value":"Claude 3 Opus"}`)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[dto.Response[dto.WizardSessionResponse]](t, w).Data
	assert.True(t, view.ConfigChanged)
	assert.Equal(t, "Claude 3 Opus", view.TargetModel.Name)

	w = s.do(http.MethodPost, base+"/test-run", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello, world", w.Body.String())

	w = s.do(http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWizardAdvanceValidation(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/v1/wizard/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[dto.Response[dto.WizardSessionResponse]](t, w).Data
	assert.Equal(t, int(wizard.StepCategory), created.Step)
	assert.False(t, created.CanAdvance)

	w = s.do(http.MethodPost, "/v1/wizard/sessions/"+created.ID+"/advance", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, "/v1/wizard/sessions/"+created.ID+"/category", `{"category":"therapy"}`)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[dto.Response[dto.WizardSessionResponse]](t, w).Data
	assert.Equal(t, int(wizard.StepObjective), view.Step)
	assert.NotEmpty(t, view.PersonaSuggestions)
}

func TestPersistenceRoutesRequireIdentity(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/v1/prompts", "/v1/templates", "/v1/settings", "/v1/users/me", "/v1/prompts/watch"} {
		w := s.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := s.do(http.MethodGet, "/v1/prompts", "", "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	refresh, err := s.jwt.GenerateToken("u1", "a@b.c", utils.TokenTypeRefresh, time.Minute)
	require.NoError(t, err)
	w = s.do(http.MethodGet, "/v1/prompts", "", "Authorization", "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/v1/auth/register", `{"email":"Ada@Example.com","password":"secret123","display_name":"Ada"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[dto.Response[dto.AuthResponse]](t, w).Data
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.Equal(t, 900, reg.ExpiresIn)

	var refreshCookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "refresh_token" {
			refreshCookie = ck
		}
	}
	require.NotNil(t, refreshCookie)
	assert.True(t, refreshCookie.HttpOnly)

	w = s.do(http.MethodPost, "/v1/auth/register", `{"email":"ada@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/v1/auth/login", `{"email":"ada@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/v1/auth/login", `{"email":"ada@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[dto.Response[dto.AuthResponse]](t, w).Data

	w = s.do(http.MethodGet, "/v1/users/me", "", "Authorization", "Bearer "+login.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[dto.Response[dto.UserResponse]](t, w).Data
	assert.Equal(t, "Ada", me.DisplayName)
	assert.NotNil(t, me.LastLoginAt)

	w = s.do(http.MethodPost, "/v1/auth/refresh", "", "Cookie", "refresh_token="+refreshCookie.Value)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[dto.Response[dto.RefreshResponse]](t, w).Data.AccessToken)

	w = s.do(http.MethodPost, "/v1/auth/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOwnedSessionIsPrivate(t *testing.T) {
	s := newTestServer(t, nil)
	alice, err := s.jwt.GenerateToken("alice", "alice@example.com", utils.TokenTypeAccess, time.Minute)
	require.NoError(t, err)
	bob, err := s.jwt.GenerateToken("bob", "bob@example.com", utils.TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	w := s.do(http.MethodPost, "/v1/wizard/sessions?category=work&objective=draft+an+email", "", "Authorization", "Bearer "+alice)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[dto.Response[dto.WizardSessionResponse]](t, w).Data.ID

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/wizard/sessions/"+id, "", "Authorization", "Bearer "+alice).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/wizard/sessions/"+id, "", "Authorization", "Bearer "+bob).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/wizard/sessions/"+id, "").Code)
}

func TestRateLimitOnGeneration(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, Limit: 2, Window: time.Minute}
	})
	body := `{"objective":"plan a trip"}`
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/generate-prompt", body).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/generate-prompt", body).Code)
	w := s.do(http.MethodPost, "/api/generate-prompt", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// 试运行单独计数
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/test-run", `{"prompt":"p","objective":"o"}`).Code)
}

func TestCatalogAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/v1/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)
	cat := decode[dto.Response[dto.CatalogResponse]](t, w).Data
	assert.Len(t, cat.Categories, 9)
	assert.Equal(t, "GPT-4o", cat.DefaultModel)
	assert.Equal(t, "Markdown", cat.DefaultFormat)
	assert.Equal(t, "Describe what you need help with...", cat.FallbackPlaceholder)

	w = s.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"redis"`))

	w = s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}
