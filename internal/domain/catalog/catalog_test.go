package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	ids := make([]string, 0, len(c.Categories()))
	for _, cat := range c.Categories() {
		ids = append(ids, cat.ID)
	}
	assert.Equal(t, []string{"work", "school", "coding", "creative", "fun", "therapy", "consulting", "medical", "art"}, ids)

	assert.Equal(t, "GPT-4o", c.DefaultModel().Name)
	assert.Equal(t, "Markdown", c.DefaultFormat())
	assert.Len(t, c.Models(), 10)
	assert.Len(t, c.Formats(), 10)
}

func TestLookups(t *testing.T) {
	c := Default()

	cat, ok := c.CategoryByIDOrLabel("Creative Writing")
	require.True(t, ok)
	assert.Equal(t, "creative", cat.ID)

	_, ok = c.Category("Coding")
	assert.False(t, ok, "Category matches ids only")

	m, ok := c.ModelByIDOrName("llama 3 (70b)")
	require.True(t, ok)
	assert.Equal(t, "llama-3-70b", m.ID)

	m, ok = c.ModelByIDOrName("sdxl")
	require.True(t, ok)
	assert.True(t, m.IsImage())

	assert.True(t, c.IsFormat("python script"))
	assert.False(t, c.IsFormat("haiku"))
}

func TestPersonaSuggestionsAndPlaceholders(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{"Senior Architect", "Debug Specialist", "Clean Code Mentor", "LeetCode Interviewer"}, c.PersonaSuggestions("coding"))
	assert.Empty(t, c.PersonaSuggestions("unknown"))
	assert.Equal(t, "Describe what you need help with...", c.Placeholder("unknown"))
	assert.Contains(t, c.Placeholder("art"), "visual concept")

	// 返回副本，调用方修改不影响目录
	s := c.PersonaSuggestions("work")
	s[0] = "changed"
	assert.Equal(t, "Executive Assistant", c.PersonaSuggestions("work")[0])
}

func TestModelsByProviderKeepsOrder(t *testing.T) {
	groups := Default().ModelsByProvider()
	require.NotEmpty(t, groups)
	assert.Equal(t, "OpenAI", groups[0].Provider)
	assert.Len(t, groups[0].Models, 3)
	assert.Equal(t, "Stability AI", groups[len(groups)-1].Provider)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("categories: []"))
	assert.Error(t, err)

	_, err = Parse([]byte(`
default_format: Markdown
categories:
  - {id: a, label: A}
  - {id: a, label: B}
models:
  - {id: m, name: M, provider: P, modality: text}
formats:
  - {name: Markdown}
`))
	assert.ErrorContains(t, err, "duplicate category id")

	_, err = Parse([]byte(`
default_format: Markdown
categories:
  - {id: a, label: A}
models:
  - {id: m, name: M, provider: P, modality: video}
formats:
  - {name: Markdown}
`))
	assert.ErrorContains(t, err, "unknown modality")

	_, err = Parse([]byte(`
default_format: Markdown
categories:
  - {id: a, label: A}
models:
  - {id: m-1, name: M 1, provider: P, modality: text}
  - {id: m-2, name: m-1, provider: P, modality: text}
formats:
  - {name: Markdown}
`))
	assert.ErrorContains(t, err, "duplicate model key: m-1")
}

func TestParseAcceptsModelIDEqualToName(t *testing.T) {
	c, err := Parse([]byte(`
default_format: Markdown
categories:
  - {id: a, label: A}
models:
  - {id: gpt-4o, name: GPT-4o, provider: OpenAI, modality: text}
formats:
  - {name: Markdown}
`))
	require.NoError(t, err)

	m, ok := c.ModelByIDOrName("GPT-4o")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", m.ID)
}
