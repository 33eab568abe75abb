package node

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "", TruncateByRunes("abc", 0))
	assert.Equal(t, "abc", TruncateByRunes("abc", 5))
	assert.Equal(t, "ab", TruncateByRunes("abc", 2))
	assert.Equal(t, "提示", TruncateByRunes("提示词优化", 2))
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  # Role\nExpert  ", "# Role\nExpert"},
		{"markdown fence", "```markdown\n# Role\nExpert\n```", "# Role\nExpert"},
		{"bare fence", "```\nhello\n```", "hello"},
		{"inner block kept", "```md\nRun:\n```bash\nls\n```\n```", "Run:\n```bash\nls\n```"},
		{"separate blocks", "```go\na\n```\ntext\n```go\nb\n```", "```go\na\n```\ntext\n```go\nb\n```"},
		{"single line", "```x```", "```x```"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFence(tc.in))
		})
	}
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsProviderConfigError(errors.New(`provider "groq" not found in LLM config`)))
	assert.True(t, IsProviderConfigError(errors.New("status 401: Unauthorized")))
	assert.True(t, IsProviderConfigError(errors.New("authentication_error: invalid x-api-key")))
	assert.False(t, IsProviderConfigError(errors.New("status 500: internal")))
	assert.False(t, IsProviderConfigError(nil))

	assert.True(t, IsTimeoutError(fmt.Errorf("stream: %w", context.DeadlineExceeded)))
	assert.True(t, IsTimeoutError(errors.New("i/o timeout")))
	assert.False(t, IsTimeoutError(errors.New("connection reset")))
	assert.False(t, IsTimeoutError(nil))
}
