package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeInvalidParam:      http.StatusBadRequest,
		CodeUnauthorized:      http.StatusUnauthorized,
		CodeTemplateNotFound:  http.StatusNotFound,
		CodePromptNotFound:    http.StatusNotFound,
		CodeWizardValidation:  http.StatusUnprocessableEntity,
		CodeGenerationFailed:  http.StatusInternalServerError,
		CodeGenerationTimeout: http.StatusGatewayTimeout,
		CodeTestRunFailed:     http.StatusBadGateway,
		CodeLLMNotConfigured:  http.StatusServiceUnavailable,
		CodeDatabaseError:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, New(code, "x").HTTPStatus, "code %s", code)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load: %w", ErrTemplateNotFound.WithDetail("tpl-1"))
	assert.True(t, Is(err, ErrTemplateNotFound))
	assert.False(t, Is(err, ErrPromptNotFound))
}

func TestWithDetailDoesNotMutateShared(t *testing.T) {
	_ = ErrGenerationFailed.WithDetail("boom")
	assert.Empty(t, ErrGenerationFailed.Detail)
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Wrap(context.DeadlineExceeded, CodeGenerationTimeout, "timeout"))
	appErr := AsAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeGenerationTimeout, appErr.Code)
	assert.ErrorIs(t, appErr, context.DeadlineExceeded)

	plain := AsAppError(fmt.Errorf("plain"))
	assert.Equal(t, CodeUnknown, plain.Code)
	assert.False(t, IsAppError(fmt.Errorf("plain")))
}
