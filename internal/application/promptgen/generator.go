package promptgen

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"refine-ai-api/internal/config"
	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/domain/service"
	"refine-ai-api/internal/workflow/node"
	"refine-ai-api/internal/workflow/port"
	"refine-ai-api/internal/workflow/prompt"
	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
	"refine-ai-api/pkg/metrics"
	"refine-ai-api/pkg/tracer"

	"go.opentelemetry.io/otel/attribute"
)

// 结果来源
const (
	SourceTemplate = "smart-template"
	SourceLLM      = "llm"
)

const defaultTimeout = 30 * time.Second

// ResultCache LLM 结果缓存（Read-Through + singleflight）
type ResultCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// Output 生成结果
type Output struct {
	Text   string `json:"refinedPrompt"`
	Source string `json:"source"`
}

// Generator 按配置选择本地模板或 LLM 生成精炼提示
type Generator struct {
	renderer *Renderer
	models   port.ChatModelFactory
	cache    ResultCache
	cfg      config.GenerationConfig
}

// NewGenerator 创建生成器；models/cache 仅在 llm 模式下使用，可为 nil
func NewGenerator(cat *catalog.Catalog, registry *prompt.Registry, models port.ChatModelFactory, cache ResultCache, cfg config.GenerationConfig) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Mode == "" {
		cfg.Mode = config.GenerationModeTemplate
	}
	return &Generator{
		renderer: NewRenderer(cat, registry),
		models:   models,
		cache:    cache,
		cfg:      cfg,
	}
}

// Source 当前配置下的结果来源
func (g *Generator) Source() string {
	if g.cfg.Mode == config.GenerationModeLLM {
		return SourceLLM
	}
	return SourceTemplate
}

// Generate 生成精炼提示。空 objective 照常渲染，必填校验由向导负责。
// LLM 失败时直接返回错误，不回退到模板
func (g *Generator) Generate(ctx context.Context, in Input) (*Output, error) {
	source := g.Source()
	ctx, span := tracer.Start(ctx, "promptgen.Generate")
	span.SetAttributes(attribute.String("promptgen.source", source))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	var (
		text string
		err  error
	)
	if source == SourceLLM {
		text, err = g.generateWithLLM(ctx, in)
	} else {
		text, err = g.renderer.Render(ctx, in)
	}
	metrics.PromptGenerationDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	metrics.PromptGenerationTotal.WithLabelValues(source, metrics.StatusLabel(err)).Inc()

	if err != nil {
		span.RecordError(err)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.Wrap(err, apperrors.CodeGenerationTimeout, "prompt generation timed out")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "Failed to generate prompt").WithDetail(err.Error())
	}

	logger.Debug(ctx, "prompt generated",
		"source", source,
		"length", len(text),
		"preview", node.TruncateByRunes(text, 80),
	)
	return &Output{Text: text, Source: source}, nil
}

func (g *Generator) generateWithLLM(ctx context.Context, in Input) (string, error) {
	if g.models == nil {
		return "", apperrors.ErrLLMNotConfigured.WithDetail("generation.mode is llm but no chat model factory is wired")
	}
	if g.cache == nil {
		return g.callLLM(ctx, in)
	}

	key := fmt.Sprintf("promptgen:%s:%s", g.cfg.Provider, resolve(g.renderer.catalog, in).cacheKey())
	raw, err := g.cache.GetOrLoadSafe(ctx, key, g.cfg.CacheTTL, func() (interface{}, error) {
		return g.callLLM(ctx, in)
	})
	if err != nil {
		return "", err
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("decode cached generation: %w", err)
	}
	return text, nil
}

func (g *Generator) callLLM(ctx context.Context, in Input) (string, error) {
	msgs, err := g.renderer.MetaMessages(ctx, in)
	if err != nil {
		return "", err
	}
	ctx = service.WithWorkflow(ctx, service.WorkflowGenerate)
	chatModel, err := g.models.Get(ctx, g.cfg.Provider)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeLLMNotConfigured, "LLM provider not configured").WithDetail(err.Error())
	}
	resp, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	text := ""
	if resp != nil {
		text = node.StripCodeFence(resp.Content)
	}
	if text == "" {
		return "", fmt.Errorf("model returned an empty completion")
	}
	return text, nil
}
