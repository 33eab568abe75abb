package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"refine-ai-api/internal/config"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicChatModel 基于 Anthropic Messages API 的 Eino ChatModel
type AnthropicChatModel struct {
	client anthropic.Client
	cfg    config.ProviderConfig
}

// NewAnthropicChatModel 创建 Anthropic ChatModel
func NewAnthropicChatModel(p config.ProviderConfig) (*AnthropicChatModel, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("api_key is empty")
	}
	if p.Model == "" {
		return nil, fmt.Errorf("model is empty")
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = defaultAnthropicMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(p.APIKey)}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL))
	}
	if p.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(p.Timeout))
	}

	return &AnthropicChatModel{
		client: anthropic.NewClient(opts...),
		cfg:    p,
	}, nil
}

func (m *AnthropicChatModel) params(input []*schema.Message, o *model.Options) anthropic.MessageNewParams {
	system, turns := splitSystem(input)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(*o.Model),
		MaxTokens: int64(*o.MaxTokens),
	}
	if o.Temperature != nil && *o.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(*o.Temperature))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == schema.Assistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}
	return params
}

// Generate 一次性生成
func (m *AnthropicChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (out *schema.Message, err error) {
	o := callOptions(m.cfg, opts...)
	cbCfg := callbackConfig(o)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: cbCfg})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	resp, err := m.client.Messages.New(ctx, m.params(input, o))
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	out = schema.AssistantMessage(sb.String(), nil)
	usage := &model.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	callbacks.OnEnd(ctx, &model.CallbackOutput{Message: out, Config: cbCfg, TokenUsage: usage})
	return out, nil
}

// Stream 流式生成，逐个文本增量输出
func (m *AnthropicChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	o := callOptions(m.cfg, opts...)
	cbCfg := callbackConfig(o)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: cbCfg})

	stream := m.client.Messages.NewStreaming(ctx, m.params(input, o))
	sr := pipeStream(ctx, func(emit func(string) bool) error {
		defer stream.Close()
		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
					if !emit(delta.Text) {
						return nil
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("anthropic stream error: %w", err)
		}
		return nil
	})
	return streamWithCallbacks(ctx, cbCfg, sr), nil
}

// IsCallbacksEnabled 组件自行触发 callbacks
func (m *AnthropicChatModel) IsCallbacksEnabled() bool {
	return true
}
