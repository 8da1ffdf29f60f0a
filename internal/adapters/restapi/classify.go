package restapi

import (
	"net/http"
	"strings"

	apperrors "github.com/serm-lab/admin-console/internal/errors"
)

// Backend detail messages with a fixed meaning.
const (
	DetailInvalidPassword = "Invalid password"
	DetailUserDisabled    = "User is disabled"
	DetailCodeNotFound    = "Auth code not found"
	DetailCodeExpired     = "Auth code wrong or expired"
	DetailEmailNotFound   = "Email not found"
)

// Classify maps a failed backend answer to an AppError. The backend reports
// every login failure as 404, so the detail text decides before the status.
func Classify(op string, status int, detail string) *apperrors.AppError {
	code := classifyCode(op, status, detail)
	msg := detail
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = op + " failed"
	}
	return &apperrors.AppError{Code: code, Message: msg, Status: status}
}

func classifyCode(op string, status int, detail string) apperrors.ErrorCode {
	switch {
	case strings.EqualFold(detail, DetailInvalidPassword), strings.EqualFold(detail, DetailCodeExpired):
		return apperrors.ErrCodeInvalidCredential
	case strings.EqualFold(detail, DetailUserDisabled):
		return apperrors.ErrCodeAccountDisabled
	case strings.EqualFold(detail, DetailCodeNotFound):
		// An unknown one-time code is a bad credential, not a missing account.
		return apperrors.ErrCodeInvalidCredential
	case strings.HasSuffix(strings.ToLower(detail), "not found"):
		return apperrors.ErrCodeNotFound
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.ErrCodeInvalidCredential
	case http.StatusNotFound:
		switch op {
		case "login", "start_reset_password":
			return apperrors.ErrCodeNotFound
		case "reset_password", "activate":
			return apperrors.ErrCodeInvalidCredential
		}
	case http.StatusConflict:
		return apperrors.ErrCodeConflict
	case http.StatusBadRequest:
		if op == "register" {
			return apperrors.ErrCodeValidation
		}
	}
	return apperrors.ErrCodeUnknown
}
