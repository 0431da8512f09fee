package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMError_Error(t *testing.T) {
	err := NewConfigurationError("gateway", "gpt-4o", "no client registered for provider \"acme\"")
	assert.Contains(t, err.Error(), TypeConfiguration)
	assert.Contains(t, err.Error(), "provider=gateway")
	assert.Contains(t, err.Error(), "acme")
}

func TestLLMError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *LLMError
		want int
	}{
		{"configuration", NewConfigurationError("p", "m", "msg"), http.StatusInternalServerError},
		{"policy violation", NewPolicyViolationError("p", "m", "msg"), http.StatusForbidden},
		{"rate limit", NewRateLimitError("p", "m", "msg"), http.StatusTooManyRequests},
		{"timeout", NewTimeoutError("p", "m", "msg"), http.StatusRequestTimeout},
		{"provider", NewProviderError("p", "m", errors.New("boom")), http.StatusBadGateway},
		{"zero status falls back to 500", &LLMError{}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatusCode())
		})
	}
}

func TestLLMError_Retryable(t *testing.T) {
	assert.False(t, NewConfigurationError("p", "m", "msg").Retryable)
	assert.False(t, NewPolicyViolationError("p", "m", "msg").Retryable)
	assert.True(t, NewRateLimitError("p", "m", "msg").Retryable)
	assert.True(t, NewServiceUnavailableError("p", "m", "msg").Retryable)
}

func TestLLMError_AsTarget(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", NewPolicyViolationError("openai", "gpt-4o", "provider not allowed"))

	var llmErr *LLMError
	assert.True(t, errors.As(wrapped, &llmErr))
	assert.Equal(t, TypePolicyViolation, llmErr.Type)
}
