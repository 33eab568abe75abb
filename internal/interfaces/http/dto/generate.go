package dto

import (
	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/application/testrun"
)

// 生成与试运行接口沿用浏览器端约定的 camelCase 字段

// GeneratePromptRequest 生成请求。tone 可以是数字或数字字符串
type GeneratePromptRequest struct {
	Category    string `json:"category"`
	Objective   string `json:"objective"`
	Persona     string `json:"persona"`
	TargetModel string `json:"targetModel"`
	Format      string `json:"format"`
	Tone        any    `json:"tone"`
}

// Input 转换为生成输入，语气缺失或无效时为 50
func (r GeneratePromptRequest) Input() promptgen.Input {
	return promptgen.Input{
		Category:    r.Category,
		Objective:   r.Objective,
		Persona:     r.Persona,
		TargetModel: r.TargetModel,
		Format:      r.Format,
		Tone:        promptgen.CoerceTone(r.Tone),
	}
}

// GeneratePromptResponse 生成成功响应
type GeneratePromptResponse struct {
	RefinedPrompt string `json:"refinedPrompt"`
	Success       bool   `json:"success"`
	Source        string `json:"source"`
}

// ContractError 生成与试运行接口的错误响应
type ContractError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Success bool   `json:"success"`
}

// TestRunRequest 试运行请求
type TestRunRequest struct {
	Prompt      string `json:"prompt"`
	Objective   string `json:"objective"`
	Category    string `json:"category"`
	TargetModel string `json:"targetModel"`
}

// Request 转换为试运行请求
func (r TestRunRequest) Request() testrun.Request {
	return testrun.Request{
		Prompt:      r.Prompt,
		Objective:   r.Objective,
		Category:    r.Category,
		TargetModel: r.TargetModel,
	}
}

// TestRunRefusal 拒绝试运行时的提示，HTTP 200
type TestRunRefusal struct {
	Success bool   `json:"success"`
	Refused bool   `json:"refused"`
	Notice  string `json:"notice"`
}

// NewTestRunRefusal 图像生成请求的拒绝提示
func NewTestRunRefusal() TestRunRefusal {
	return TestRunRefusal{Success: false, Refused: true, Notice: testrun.RefusalNotice}
}
