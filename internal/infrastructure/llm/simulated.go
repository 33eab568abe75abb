package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"refine-ai-api/internal/config"
)

// SimulatedNotice 模拟输出的首行标记
const SimulatedNotice = "[SIMULATED TEST RUN - no live model was called]"

// SimulatedChatModel 不调用任何外部服务的确定性模型，按词流式输出
type SimulatedChatModel struct {
	cfg config.ProviderConfig
}

// NewSimulatedChatModel 创建模拟 ChatModel
func NewSimulatedChatModel(p config.ProviderConfig) *SimulatedChatModel {
	if p.Model == "" {
		p.Model = "simulated"
	}
	return &SimulatedChatModel{cfg: p}
}

// Respond 根据输入生成确定性的模拟回复
func (m *SimulatedChatModel) Respond(input []*schema.Message) string {
	system, turns := splitSystem(input)
	objective := ""
	if len(turns) > 0 {
		objective = strings.TrimSpace(turns[len(turns)-1].Content)
	}

	var sections []string
	for _, line := range strings.Split(system, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			sections = append(sections, strings.TrimSpace(strings.TrimLeft(line, "#")))
		}
	}

	var sb strings.Builder
	sb.WriteString(SimulatedNotice)
	sb.WriteString("\n\nBased on your prompt, here is a simulated response structure using your formatting rules:\n\n# Response\n\n")
	if objective != "" {
		fmt.Fprintf(&sb, "Objective received: %s\n\n", objective)
	}
	if len(sections) > 0 {
		sb.WriteString("Your prompt defines these sections:\n")
		for _, s := range sections {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Configure a live provider for test runs to see a real completion, or copy the prompt into your model of choice.")
	return sb.String()
}

// Generate 一次性返回模拟回复
func (m *SimulatedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	o := callOptions(m.cfg, opts...)
	cbCfg := callbackConfig(o)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: cbCfg})

	out := schema.AssistantMessage(m.Respond(input), nil)
	callbacks.OnEnd(ctx, &model.CallbackOutput{Message: out, Config: cbCfg})
	return out, nil
}

// Stream 按空格切分逐词输出，每个片段间隔 chunk_delay
func (m *SimulatedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	o := callOptions(m.cfg, opts...)
	cbCfg := callbackConfig(o)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: cbCfg})

	words := strings.Split(m.Respond(input), " ")
	delay := m.cfg.ChunkDelay
	sr := pipeStream(ctx, func(emit func(string) bool) error {
		var ticker *time.Ticker
		if delay > 0 {
			ticker = time.NewTicker(delay)
			defer ticker.Stop()
		}
		for i, w := range words {
			if ticker != nil {
				select {
				case <-ticker.C:
				case <-ctx.Done():
					return nil
				}
			}
			if i < len(words)-1 {
				w += " "
			}
			if !emit(w) {
				return nil
			}
		}
		return nil
	})
	return streamWithCallbacks(ctx, cbCfg, sr), nil
}

// IsCallbacksEnabled 组件自行触发 callbacks
func (m *SimulatedChatModel) IsCallbacksEnabled() bool {
	return true
}
