package llm

import (
	"context"
	"fmt"
	"sync"

	"refine-ai-api/internal/config"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoFactory 管理多个 Eino ChatModel 客户端实例
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	chatModel, err := newChatModel(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	m = &instrumentedModel{
		inner: chatModel,
		info: &callbacks.RunInfo{
			Name:      name,
			Type:      providerType(providerCfg),
			Component: components.ComponentOfChatModel,
		},
	}
	f.models[name] = m
	return m, nil
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

// ProviderType 返回已配置提供商的协议类型
func (f *EinoFactory) ProviderType(name string) (string, bool) {
	if name == "" {
		name = f.config.DefaultProvider
	}
	p, ok := f.config.Providers[name]
	if !ok {
		return "", false
	}
	return providerType(p), true
}

func providerType(p config.ProviderConfig) string {
	if p.Type == "" {
		return config.ProviderTypeOpenAI
	}
	return p.Type
}

func newChatModel(ctx context.Context, p config.ProviderConfig) (model.BaseChatModel, error) {
	switch providerType(p) {
	case config.ProviderTypeOpenAI:
		if p.APIKey == "" {
			return nil, fmt.Errorf("api_key is empty")
		}
		// 使用 Eino 的 OpenAI 适配器（同样覆盖 Groq 等兼容端点）
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      p.APIKey,
			BaseURL:     p.BaseURL,
			Model:       p.Model,
			MaxTokens:   ptrInt(p.MaxTokens),
			Temperature: ptrFloat32(float32(p.Temperature)),
			Timeout:     p.Timeout,
		})
	case config.ProviderTypeAnthropic:
		return NewAnthropicChatModel(p)
	case config.ProviderTypeGemini:
		return NewGeminiChatModel(ctx, p)
	case config.ProviderTypeSimulated:
		return NewSimulatedChatModel(p), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", p.Type)
	}
}

// instrumentedModel 在调用前初始化 Eino callbacks，使全局处理器（指标、追踪）生效
type instrumentedModel struct {
	inner model.BaseChatModel
	info  *callbacks.RunInfo
}

func (m *instrumentedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	ctx = callbacks.InitCallbacks(ctx, m.info)
	return m.inner.Generate(ctx, input, opts...)
}

func (m *instrumentedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	ctx = callbacks.InitCallbacks(ctx, m.info)
	return m.inner.Stream(ctx, input, opts...)
}

func ptrFloat32(f float32) *float32 {
	return &f
}

func ptrInt(i int) *int {
	if i <= 0 {
		return nil
	}
	return &i
}
