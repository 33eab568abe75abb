package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	llmctx "refine-ai-api/internal/domain/service"
	wfmodel "refine-ai-api/internal/workflow/model"
	workflowport "refine-ai-api/internal/workflow/port"
	workflowprompt "refine-ai-api/internal/workflow/prompt"
)

// defaultObjective 目标为空时发送的用户消息
const defaultObjective = "Follow the instructions above."

type TestRunChain struct {
	factory  workflowport.ChatModelFactory
	registry *workflowprompt.Registry
}

func NewTestRunChain(factory workflowport.ChatModelFactory, registry *workflowprompt.Registry) *TestRunChain {
	if registry == nil {
		registry = workflowprompt.NewRegistry()
	}
	return &TestRunChain{factory: factory, registry: registry}
}

// Stream 返回 Eino StreamReader；调用方负责 Close()。
func (c *TestRunChain) Stream(ctx context.Context, in *wfmodel.TestRunInput) (*schema.StreamReader[*schema.Message], error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	ctx = llmctx.WithWorkflow(ctx, llmctx.WorkflowTestRun)
	chatModel, err := c.factory.Get(ctx, strings.TrimSpace(in.Provider))
	if err != nil {
		return nil, err
	}

	msgs, err := c.formatMessages(ctx, in)
	if err != nil {
		return nil, err
	}
	return chatModel.Stream(ctx, msgs, buildTestRunModelOptions(in)...)
}

func (c *TestRunChain) formatMessages(ctx context.Context, in *wfmodel.TestRunInput) ([]*schema.Message, error) {
	objective := strings.TrimSpace(in.Objective)
	if objective == "" {
		objective = defaultObjective
	}
	return c.registry.Format(ctx, workflowprompt.PromptTestRunV1, map[string]any{
		"prompt":    strings.TrimSpace(in.Prompt),
		"objective": objective,
	})
}

func buildTestRunModelOptions(in *wfmodel.TestRunInput) []model.Option {
	opts := make([]model.Option, 0, 2)
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	return opts
}
