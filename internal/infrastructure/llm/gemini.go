package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"refine-ai-api/internal/config"
)

// GeminiChatModel 基于 Google GenAI SDK 的 Eino ChatModel
type GeminiChatModel struct {
	client *genai.Client
	cfg    config.ProviderConfig
}

// NewGeminiChatModel 创建 Gemini ChatModel
func NewGeminiChatModel(ctx context.Context, p config.ProviderConfig) (*GeminiChatModel, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("api_key is empty")
	}
	if p.Model == "" {
		return nil, fmt.Errorf("model is empty")
	}

	cc := &genai.ClientConfig{
		APIKey:  p.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiChatModel{client: client, cfg: p}, nil
}

func (m *GeminiChatModel) request(input []*schema.Message, o *model.Options) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, turns := splitSystem(input)

	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == schema.Assistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, genai.Role(role)))
	}

	gc := &genai.GenerateContentConfig{}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if o.Temperature != nil && *o.Temperature > 0 {
		gc.Temperature = genai.Ptr(*o.Temperature)
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(*o.MaxTokens)
	}
	return contents, gc
}

// Generate 一次性生成
func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (out *schema.Message, err error) {
	o := callOptions(m.cfg, opts...)
	cbCfg := callbackConfig(o)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: cbCfg})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	contents, gc := m.request(input, o)
	resp, err := m.client.Models.GenerateContent(ctx, *o.Model, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	out = schema.AssistantMessage(resp.Text(), nil)
	var usage *model.TokenUsage
	if resp.UsageMetadata != nil {
		usage = &model.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	callbacks.OnEnd(ctx, &model.CallbackOutput{Message: out, Config: cbCfg, TokenUsage: usage})
	return out, nil
}

// Stream 流式生成
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	o := callOptions(m.cfg, opts...)
	cbCfg := callbackConfig(o)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: cbCfg})

	contents, gc := m.request(input, o)
	sr := pipeStream(ctx, func(emit func(string) bool) error {
		for resp, err := range m.client.Models.GenerateContentStream(ctx, *o.Model, contents, gc) {
			if err != nil {
				return fmt.Errorf("gemini stream error: %w", err)
			}
			if !emit(resp.Text()) {
				return nil
			}
		}
		return nil
	})
	return streamWithCallbacks(ctx, cbCfg, sr), nil
}

// IsCallbacksEnabled 组件自行触发 callbacks
func (m *GeminiChatModel) IsCallbacksEnabled() bool {
	return true
}
