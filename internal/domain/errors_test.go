package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unknown owner", ErrUnknownOwner, ErrCodeUnknownOwner},
		{"invalid expression", ErrInvalidExpression, ErrCodeInvalidExpression},
		{"wrapped invalid expression", fmt.Errorf("%w: missing closing )", ErrInvalidExpression), ErrCodeInvalidExpression},
		{"invalid window", ErrInvalidWindow, ErrCodeInvalidWindow},
		{"invalid context", ErrInvalidContext, ErrCodeInvalidContext},
		{"file access", fmt.Errorf("%w: /logs/a-json.log", ErrFileAccess), ErrCodeFileAccess},
		{"rate limited", ErrRateLimited, ErrCodeRateLimited},
		{"unknown error", errors.New("some error"), "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}
