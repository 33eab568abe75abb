// Package service 提供跨层共享的上下文约定
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const llmCtxKeyWorkflow llmCtxKey = "llm_workflow"

// LLM 调用所属的业务流程，用作指标标签
const (
	WorkflowGenerate = "prompt_generate"
	WorkflowTestRun  = "test_run"
)

// WithWorkflow 标记后续 LLM 调用所属流程
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	w := strings.TrimSpace(workflow)
	if w == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyWorkflow, w)
}

// WorkflowFromContext 读取流程标记，缺失时为 unknown
func WorkflowFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if s, ok := ctx.Value(llmCtxKeyWorkflow).(string); ok && s != "" {
		return s
	}
	return "unknown"
}
