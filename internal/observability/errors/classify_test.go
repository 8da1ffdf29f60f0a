package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/serm-lab/admin-console/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"app error", apperrors.InvalidCredential("Invalid password"), "invalid_credential"},
		{"wrapped app error", fmt.Errorf("login: %w", apperrors.AccountDisabled("x")), "account_disabled"},
		{"deadline", fmt.Errorf("me: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"plain", errors.New("boom"), "errors_errorstring"},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, "errors_errorstring"},
		{"dns error", &net.DNSError{Err: "no such host"}, "net_dnserror"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
