package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFormatsTestRun(t *testing.T) {
	r := NewRegistry()

	msgs, err := r.Format(context.Background(), PromptTestRunV1, map[string]any{
		"prompt":    "You are a {careful} reviewer.",
		"objective": "review my essay",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	// 变量值中的花括号原样保留
	assert.Equal(t, "You are a {careful} reviewer.", msgs[0].Content)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "review my essay", msgs[1].Content)
}

func TestRegistryDocumentIsSingleMessage(t *testing.T) {
	vars := map[string]any{
		"role_expertise": "an expert", "persona": "Tutor", "category": "School/College",
		"target_model": "GPT-4o", "model_guidance": "",
		"objective": "explain fractions", "tone_phrase": "casual and friendly",
		"category_guidance": "Be accurate.", "format": "Markdown", "format_instruction": "",
	}
	msgs, err := NewRegistry().Format(context.Background(), PromptRefinedDocumentV1, vars)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "explain fractions")
}

func TestRegistryCachesTemplates(t *testing.T) {
	r := NewRegistry()
	a, err := r.ChatTemplate(PromptRefineMetaV1)
	require.NoError(t, err)
	b, err := r.ChatTemplate(PromptRefineMetaV1)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = r.ChatTemplate(PromptID("nope"))
	assert.ErrorContains(t, err, "unknown prompt id")
}
