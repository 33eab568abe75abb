package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	// PromptRefinedDocumentV1 本地模板渲染的完整指令文档（单条 user 消息）
	PromptRefinedDocumentV1 PromptID = "refined_document_v1"
	// PromptRefineMetaV1 交给 LLM 改写的 system/user 元提示
	PromptRefineMetaV1 PromptID = "refine_meta_v1"
	// PromptTestRunV1 试运行：以精炼后的提示为 system，以目标为 user
	PromptTestRunV1 PromptID = "test_run_v1"
)

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}

	var messages []schema.MessagesTemplate
	if systemPath != "" {
		system, err := readEmbeddedText(systemPath)
		if err != nil {
			return nil, err
		}
		messages = append(messages, schema.SystemMessage(system))
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}
	messages = append(messages, schema.UserMessage(user))

	tpl := einoprompt.FromMessages(schema.FString, messages...)
	r.cache[id] = tpl
	return tpl, nil
}

// Format 渲染模板为消息列表
func (r *Registry) Format(ctx context.Context, id PromptID, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", id, err)
	}
	return msgs, nil
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	switch id {
	case PromptRefinedDocumentV1:
		return "", "templates/refined_document_v1.user.txt", nil
	case PromptRefineMetaV1:
		return "templates/refine_meta_v1.system.txt", "templates/refine_meta_v1.user.txt", nil
	case PromptTestRunV1:
		return "templates/test_run_v1.system.txt", "templates/test_run_v1.user.txt", nil
	default:
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
