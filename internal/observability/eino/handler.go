package eino

import (
	"context"
	"errors"
	"io"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"refine-ai-api/internal/domain/service"
	"refine-ai-api/pkg/metrics"
)

// startTimeKey 在 OnStart 中记录开始时间，供 OnEnd/OnError 计算耗时
type startTimeKey struct{}

// callLabels 一次调用的指标标签
type callLabels struct {
	workflow string
	provider string
	model    string
}

func labelsOf(ctx context.Context, info *einocb.RunInfo, modelName string) callLabels {
	l := callLabels{workflow: service.WorkflowFromContext(ctx), provider: "unknown", model: modelName}
	if info != nil && info.Name != "" {
		l.provider = info.Name
	}
	return l
}

// newChatModelCallbackHandler 为每次 ChatModel 调用记录次数、耗时、Token 与链路
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			l := labelsOf(ctx, info, modelNameFromInput(input))
			attrs := []attribute.KeyValue{
				attribute.String("eino.workflow", l.workflow),
				attribute.String("llm.provider", l.provider),
				attribute.String("llm.model", l.model),
			}
			if info != nil {
				attrs = append(attrs, attribute.String("eino.type", info.Type))
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			var usage *model.TokenUsage
			if output != nil {
				usage = output.TokenUsage
			}
			finishCall(ctx, labelsOf(ctx, info, modelNameFromOutput(output)), usage, nil)
			return ctx
		},

		OnEndWithStreamOutput: func(ctx context.Context, info *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			// 必须消费并关闭副本，否则会阻塞生产者
			go func() {
				defer output.Close()
				var (
					usage     *model.TokenUsage
					modelName string
					streamErr error
				)
				for {
					chunk, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						streamErr = err
						break
					}
					if chunk == nil {
						continue
					}
					if chunk.TokenUsage != nil {
						usage = chunk.TokenUsage
					}
					if modelName == "" {
						modelName = modelNameFromOutput(chunk)
					}
				}
				finishCall(ctx, labelsOf(ctx, info, modelName), usage, streamErr)
			}()
			return ctx
		},

		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			finishCall(ctx, labelsOf(ctx, info, ""), nil, err)
			return ctx
		},
	}
}

func finishCall(ctx context.Context, l callLabels, usage *model.TokenUsage, err error) {
	metrics.LLMCallTotal.WithLabelValues(l.workflow, l.provider, l.model, metrics.StatusLabel(err)).Inc()
	if d := elapsedSeconds(ctx); d > 0 {
		metrics.LLMCallDuration.WithLabelValues(l.workflow, l.provider, l.model).Observe(d)
	}
	if usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(l.workflow, l.provider, l.model, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(l.workflow, l.provider, l.model, "completion").Add(float64(usage.CompletionTokens))
	}

	span := trace.SpanFromContext(ctx)
	if usage != nil {
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// elapsedSeconds 从 OnStart 记录的时间计算耗时（秒），缺失时返回 0
func elapsedSeconds(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

// modelNameFromInput 从输入配置中提取模型名称
func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

// modelNameFromOutput 从输出配置中提取模型名称
func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
