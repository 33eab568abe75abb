package model

// TestRunInput 试运行输入：精炼后的提示作为 system 指令，目标作为用户消息
type TestRunInput struct {
	Provider  string
	Prompt    string
	Objective string

	Temperature *float32
	MaxTokens   *int
}
