package llm

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"refine-ai-api/internal/config"
)

// callOptions 合并配置默认值与调用时传入的 model.Option
func callOptions(p config.ProviderConfig, opts ...model.Option) *model.Options {
	temperature := float32(p.Temperature)
	maxTokens := p.MaxTokens
	modelName := p.Model
	return model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Model:       &modelName,
	}, opts...)
}

func callbackConfig(o *model.Options) *model.Config {
	cfg := &model.Config{}
	if o.Model != nil {
		cfg.Model = *o.Model
	}
	if o.MaxTokens != nil {
		cfg.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		cfg.Temperature = *o.Temperature
	}
	return cfg
}

// splitSystem 拆分 system 指令与对话轮次
func splitSystem(input []*schema.Message) (string, []*schema.Message) {
	var system []string
	turns := make([]*schema.Message, 0, len(input))
	for _, m := range input {
		if m == nil {
			continue
		}
		if m.Role == schema.System {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}

// streamWithCallbacks 触发 OnEndWithStreamOutput，并返回供调用方消费的副本
func streamWithCallbacks(ctx context.Context, cfg *model.Config, sr *schema.StreamReader[*schema.Message]) *schema.StreamReader[*schema.Message] {
	out := schema.StreamReaderWithConvert(sr, func(m *schema.Message) (*model.CallbackOutput, error) {
		return &model.CallbackOutput{Message: m, Config: cfg}, nil
	})
	_, out = callbacks.OnEndWithStreamOutput(ctx, out)
	return schema.StreamReaderWithConvert(out, func(o *model.CallbackOutput) (*schema.Message, error) {
		return o.Message, nil
	})
}

// pipeStream 启动生产者协程，将 emit 推送的文本片段写入 eino 流
// emit 返回 false 表示消费方已关闭，生产者应停止
func pipeStream(ctx context.Context, produce func(emit func(string) bool) error) *schema.StreamReader[*schema.Message] {
	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer sw.Close()
		emit := func(chunk string) bool {
			if chunk == "" {
				return true
			}
			if ctx.Err() != nil {
				return false
			}
			return !sw.Send(schema.AssistantMessage(chunk, nil), nil)
		}
		if err := produce(emit); err != nil {
			sw.Send(nil, err)
		}
	}()
	return sr
}
