package promptgen

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refine-ai-api/internal/config"
	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/workflow/prompt"
	apperrors "refine-ai-api/pkg/errors"
)

type fakeChatModel struct {
	reply string
	err   error
	delay time.Duration
	calls atomic.Int32
	seen  []*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls.Add(1)
	m.seen = input
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type fakeFactory struct {
	model *fakeChatModel
	err   error
}

func (f *fakeFactory) Get(_ context.Context, _ string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memoryCache) GetOrLoadSafe(_ context.Context, key string, _ time.Duration, loader func() (interface{}, error)) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	v, err := loader()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	c.data[key] = b
	return b, nil
}

func codingInput() Input {
	return Input{
		Category:    "coding",
		Objective:   "fix my bug",
		Persona:     "Senior Architect",
		TargetModel: "GPT-4o",
		Format:      "Markdown",
		Tone:        50,
	}
}

func newTemplateGenerator() *Generator {
	return NewGenerator(catalog.Default(), prompt.NewRegistry(), nil, nil, config.GenerationConfig{Mode: config.GenerationModeTemplate})
}

func TestTemplateGenerateStructure(t *testing.T) {
	out, err := newTemplateGenerator().Generate(context.Background(), codingInput())
	require.NoError(t, err)

	assert.Equal(t, SourceTemplate, out.Source)
	for _, section := range []string{"# Role", "# Context", "# Objective", "# Constraints", "# Output Format"} {
		assert.Contains(t, out.Text, section)
	}
	assert.Contains(t, out.Text, "fix my bug")
	assert.Contains(t, out.Text, "Senior Architect")
	assert.Contains(t, out.Text, "GPT-4o")
	assert.Contains(t, out.Text, "Markdown")
	assert.Contains(t, out.Text, "balanced and professional")
	assert.Contains(t, out.Text, "Coding")

	// 各节按顺序出现
	assert.Less(t, strings.Index(out.Text, "# Role"), strings.Index(out.Text, "# Constraints"))
	assert.Less(t, strings.Index(out.Text, "# Constraints"), strings.Index(out.Text, "# Output Format"))
}

func TestTemplateGenerateIsIdempotent(t *testing.T) {
	g := newTemplateGenerator()
	a, err := g.Generate(context.Background(), codingInput())
	require.NoError(t, err)
	b, err := g.Generate(context.Background(), codingInput())
	require.NoError(t, err)
	assert.Equal(t, a.Text, b.Text)
}

func TestTemplateGenerateDefaults(t *testing.T) {
	out, err := newTemplateGenerator().Generate(context.Background(), Input{Objective: "plan a trip", Tone: 10})
	require.NoError(t, err)
	assert.Contains(t, out.Text, DefaultCategoryLabel)
	assert.Contains(t, out.Text, DefaultPersona)
	assert.Contains(t, out.Text, DefaultTargetModel)
	assert.Contains(t, out.Text, "casual and friendly")
}

func TestTemplateGenerateImageModel(t *testing.T) {
	in := codingInput()
	in.Category = "art"
	in.TargetModel = "midjourney-v6"
	out, err := newTemplateGenerator().Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Contains(t, out.Text, "Midjourney v6")
	assert.Contains(t, out.Text, "visual direction")
}

func TestGenerateAcceptsEmptyObjective(t *testing.T) {
	in := codingInput()
	in.Objective = "   "
	out, err := newTemplateGenerator().Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Contains(t, out.Text, "# Role")
	assert.Contains(t, out.Text, in.Persona)
}

func TestLLMGenerateUsesMetaPromptAndCache(t *testing.T) {
	fm := &fakeChatModel{reply: "  # Role\nYou are a senior architect.  "}
	cache := &memoryCache{data: map[string][]byte{}}
	g := NewGenerator(catalog.Default(), prompt.NewRegistry(), &fakeFactory{model: fm}, cache,
		config.GenerationConfig{Mode: config.GenerationModeLLM, Provider: "groq", CacheTTL: time.Minute})

	out, err := g.Generate(context.Background(), codingInput())
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, out.Source)
	assert.Equal(t, "# Role\nYou are a senior architect.", out.Text)

	require.Len(t, fm.seen, 2)
	assert.Equal(t, schema.System, fm.seen[0].Role)
	assert.Contains(t, fm.seen[0].Content, "Coding")
	assert.Contains(t, fm.seen[0].Content, "Do NOT generate the output")
	assert.Contains(t, fm.seen[1].Content, "fix my bug")
	assert.Contains(t, fm.seen[1].Content, "Senior Architect")

	again, err := g.Generate(context.Background(), codingInput())
	require.NoError(t, err)
	assert.Equal(t, out.Text, again.Text)
	assert.EqualValues(t, 1, fm.calls.Load())
}

func TestLLMGenerateFailureIsReported(t *testing.T) {
	fm := &fakeChatModel{err: errors.New("upstream 500")}
	g := NewGenerator(catalog.Default(), prompt.NewRegistry(), &fakeFactory{model: fm}, nil,
		config.GenerationConfig{Mode: config.GenerationModeLLM, Provider: "groq"})

	out, err := g.Generate(context.Background(), codingInput())
	require.Error(t, err)
	assert.Nil(t, out, "no template fallback on LLM failure")
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeGenerationFailed, appErr.Code)
	assert.Contains(t, appErr.Detail, "upstream 500")
}

func TestLLMGenerateEmptyCompletionFails(t *testing.T) {
	g := NewGenerator(catalog.Default(), prompt.NewRegistry(), &fakeFactory{model: &fakeChatModel{reply: "  "}}, nil,
		config.GenerationConfig{Mode: config.GenerationModeLLM})
	_, err := g.Generate(context.Background(), codingInput())
	assert.ErrorIs(t, err, apperrors.ErrGenerationFailed)
}

func TestLLMGenerateTimeout(t *testing.T) {
	fm := &fakeChatModel{reply: "late", delay: time.Second}
	g := NewGenerator(catalog.Default(), prompt.NewRegistry(), &fakeFactory{model: fm}, nil,
		config.GenerationConfig{Mode: config.GenerationModeLLM, Timeout: 20 * time.Millisecond})

	_, err := g.Generate(context.Background(), codingInput())
	assert.ErrorIs(t, err, apperrors.ErrGenerationTimeout)
}

func TestLLMGenerateWithoutFactory(t *testing.T) {
	g := NewGenerator(catalog.Default(), prompt.NewRegistry(), nil, nil, config.GenerationConfig{Mode: config.GenerationModeLLM})
	_, err := g.Generate(context.Background(), codingInput())
	assert.ErrorIs(t, err, apperrors.ErrLLMNotConfigured)
}

func TestLLMProviderLookupFailure(t *testing.T) {
	g := NewGenerator(catalog.Default(), prompt.NewRegistry(), &fakeFactory{err: errors.New("provider groq not found")}, nil,
		config.GenerationConfig{Mode: config.GenerationModeLLM, Provider: "groq"})
	_, err := g.Generate(context.Background(), codingInput())
	assert.ErrorIs(t, err, apperrors.ErrLLMNotConfigured)
}
