package server

import (
	"errors"
	"net/http"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/labstack/echo/v4"
	"google.golang.org/grpc/codes"

	"github.com/facilityhub/dept-chat/internal/models"
	pkgmdw "github.com/facilityhub/dept-chat/internal/server/middleware"
)

type errorBody struct {
	Success      bool   `json:"success"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message"`
}

// errorHandler translates domain errors into stable HTTP responses.
// Deleted messages intentionally surface as 404 so callers cannot
// distinguish "never existed" from "gone", except through error_code.
func errorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			log.Errorw(c.Request().Context(), "request failed", "error", err)
		}

		if !c.Response().Committed {
			var werr error
			if c.Request().Method == http.MethodHead {
				werr = c.NoContent(status)
			} else {
				werr = c.JSON(status, body)
			}
			if werr != nil {
				log.Errorw(c.Request().Context(), "write error response", "error", werr)
			}
		}
	}
}

func classify(err error) (int, errorBody) {
	var re *pkgmdw.ResponseError
	if errors.As(err, &re) {
		return re.Status, errorBody{
			ErrorCode:    re.ErrorCode,
			ErrorMessage: re.ErrorMessage,
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorBody{ErrorMessage: he.Error()}
	}

	switch models.CodeOf(err) {
	case codes.Unauthenticated:
		return http.StatusUnauthorized, errorBody{ErrorCode: "unauthorized", ErrorMessage: err.Error()}
	case codes.PermissionDenied:
		return http.StatusForbidden, errorBody{ErrorCode: "access_denied", ErrorMessage: err.Error()}
	case codes.NotFound:
		return http.StatusNotFound, errorBody{ErrorCode: "not_found", ErrorMessage: err.Error()}
	case codes.FailedPrecondition:
		return http.StatusNotFound, errorBody{ErrorCode: "already_deleted", ErrorMessage: err.Error()}
	case codes.InvalidArgument:
		return http.StatusBadRequest, errorBody{ErrorCode: "invalid_argument", ErrorMessage: err.Error()}
	case codes.Unavailable:
		return http.StatusServiceUnavailable, errorBody{ErrorCode: "dependency_unavailable", ErrorMessage: err.Error()}
	}

	return http.StatusInternalServerError, errorBody{
		ErrorMessage: http.StatusText(http.StatusInternalServerError),
	}
}
