package testrun

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

	"refine-ai-api/internal/config"
	"refine-ai-api/internal/domain/catalog"
	wfmodel "refine-ai-api/internal/workflow/model"
	"refine-ai-api/internal/workflow/node"
	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
	"refine-ai-api/pkg/metrics"
	"refine-ai-api/pkg/tracer"
)

const defaultTimeout = 120 * time.Second

// ErrRefused 图像生成请求不做试运行
var ErrRefused = errors.New("test run refused: image generation request")

// Streamer 产生试运行流
type Streamer interface {
	Stream(ctx context.Context, in *wfmodel.TestRunInput) (*schema.StreamReader[*schema.Message], error)
}

// Runner 试运行。只调用 test_run.provider 指定的一个提供商，不做任何回退
type Runner struct {
	catalog  *catalog.Catalog
	streamer Streamer
	cfg      config.TestRunConfig
}

// NewRunner 创建试运行器
func NewRunner(cat *catalog.Catalog, streamer Streamer, cfg config.TestRunConfig) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Runner{catalog: cat, streamer: streamer, cfg: cfg}
}

// Provider 配置的提供商名称
func (r *Runner) Provider() string {
	return r.cfg.Provider
}

// Refuses 是否拒绝该请求
func (r *Runner) Refuses(req Request) bool {
	return IsImageRequest(r.catalog, req)
}

// Start 校验请求并启动模型流（生产者）。调用方负责限定 ctx 的时限并关闭返回的流
func (r *Runner) Start(ctx context.Context, req Request) (*schema.StreamReader[*schema.Message], error) {
	if r.Refuses(req) {
		metrics.TestRunRefusedTotal.Inc()
		return nil, ErrRefused
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("prompt is required")
	}
	if strings.TrimSpace(r.cfg.Provider) == "" {
		return nil, apperrors.ErrLLMNotConfigured.WithDetail("test_run.provider is not set")
	}
	if r.streamer == nil {
		return nil, apperrors.ErrLLMNotConfigured.WithDetail("no chat model factory is wired")
	}

	reader, err := r.streamer.Stream(ctx, &wfmodel.TestRunInput{
		Provider:  r.cfg.Provider,
		Prompt:    req.Prompt,
		Objective: req.Objective,
	})
	if err != nil {
		return nil, classify(err)
	}
	return reader, nil
}

// Run 启动试运行并消费到结束，每个片段回调 onChunk。整个过程受 test_run.timeout 限制
func (r *Runner) Run(ctx context.Context, req Request, onChunk func(string) error) (string, error) {
	ctx, span := tracer.Start(ctx, "testrun.Run")
	span.SetAttributes(attribute.String("testrun.provider", r.cfg.Provider))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	reader, err := r.Start(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrRefused) {
			span.RecordError(err)
			metrics.TestRunTotal.WithLabelValues(r.cfg.Provider, "error").Inc()
		}
		return "", err
	}

	chunks := 0
	text, err := Accumulate(ctx, reader, func(chunk string) error {
		if chunk != ErrorMarker {
			chunks++
		}
		if onChunk == nil {
			return nil
		}
		return onChunk(chunk)
	})
	metrics.TestRunChunks.WithLabelValues(r.cfg.Provider).Observe(float64(chunks))

	switch {
	case err == nil:
		metrics.TestRunTotal.WithLabelValues(r.cfg.Provider, "success").Inc()
		logger.Debug(ctx, "test run completed",
			"provider", r.cfg.Provider,
			"chunks", chunks,
			"length", len(text),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return text, nil
	case errors.Is(err, context.Canceled):
		metrics.TestRunTotal.WithLabelValues(r.cfg.Provider, "aborted").Inc()
		return text, err
	default:
		span.RecordError(err)
		metrics.TestRunTotal.WithLabelValues(r.cfg.Provider, "error").Inc()
		logger.Warn(ctx, "test run failed",
			"provider", r.cfg.Provider,
			"chunks", chunks,
			"error", err.Error(),
		)
		return text, classify(err)
	}
}

// classify 将提供商错误归类为配置缺失、超时或调用失败
func classify(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	switch {
	case node.IsProviderConfigError(err):
		return apperrors.Wrap(err, apperrors.CodeLLMNotConfigured, "LLM provider not configured").WithDetail(err.Error())
	case node.IsTimeoutError(err):
		return apperrors.Wrap(err, apperrors.CodeTestRunTimeout, "test run timed out")
	default:
		return apperrors.Wrap(err, apperrors.CodeTestRunFailed, "test run failed").WithDetail(err.Error())
	}
}
