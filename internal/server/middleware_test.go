package server

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/facilityhub/dept-chat/internal/models"
	pkgmdw "github.com/facilityhub/dept-chat/internal/server/middleware"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unauthorized",
			err:        models.ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "access denied",
			err:        models.ErrAccessDenied,
			wantStatus: http.StatusForbidden,
			wantCode:   "access_denied",
		},
		{
			name:       "not found or forbidden",
			err:        models.ErrNotFoundOrForbidden,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			// Tombstoned messages also answer 404; the error_code is the
			// only way callers can tell the two apart.
			name:       "already deleted",
			err:        models.ErrAlreadyDeleted,
			wantStatus: http.StatusNotFound,
			wantCode:   "already_deleted",
		},
		{
			name:       "validation",
			err:        models.ValidationError("content too long"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_argument",
		},
		{
			name:       "dependency",
			err:        models.ErrDependency,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "dependency_unavailable",
		},
		{
			name:       "echo http error",
			err:        echo.NewHTTPError(http.StatusBadRequest, "invalid chat id"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "response error",
			err: &pkgmdw.ResponseError{
				Status:       http.StatusUnauthorized,
				Err:          models.ErrUnauthorized,
				ErrorCode:    "unauthorized",
				ErrorMessage: "caller identity required",
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "unknown",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body.ErrorCode)
		})
	}
}
