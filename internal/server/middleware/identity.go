package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/facilityhub/dept-chat/internal/models"
)

// Identity headers set by the facility-hub gateway after it authenticates
// the request. The chat service trusts them; it never sees credentials.
const (
	HeaderUserID     = "X-User-Id"
	HeaderUserName   = "X-User-Name"
	HeaderUserEmail  = "X-User-Email"
	HeaderDepartment = "X-User-Department"
	HeaderRole       = "X-User-Role"

	identityContextKey = "caller_identity"
)

// Identity extracts the caller identity from gateway headers and rejects
// requests without one.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			caller := models.Identity{
				ID:         h.Get(HeaderUserID),
				Name:       h.Get(HeaderUserName),
				Email:      h.Get(HeaderUserEmail),
				Department: h.Get(HeaderDepartment),
				Role:       h.Get(HeaderRole),
			}
			if !caller.Valid() {
				return &ResponseError{
					Status:       http.StatusUnauthorized,
					Err:          models.ErrUnauthorized,
					ErrorCode:    "unauthorized",
					ErrorMessage: "caller identity required",
				}
			}

			c.Set(identityContextKey, caller)
			return next(c)
		}
	}
}

// GetIdentity returns the caller identity injected by Identity, or the
// zero Identity outside its scope.
func GetIdentity(c echo.Context) models.Identity {
	caller, _ := c.Get(identityContextKey).(models.Identity)
	return caller
}

// GetUserID returns the caller's user id, or "" outside the identity scope.
func GetUserID(c echo.Context) string {
	return GetIdentity(c).ID
}
