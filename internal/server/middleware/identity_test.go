package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilityhub/dept-chat/internal/models"
)

func TestIdentityMiddleware_InjectsCaller(t *testing.T) {
	e := echo.New()

	handler := func(c echo.Context) error {
		caller := GetIdentity(c)
		assert.Equal(t, "user-1", caller.ID)
		assert.Equal(t, "Alice", caller.Name)
		assert.Equal(t, "maintenance", caller.Department)
		assert.Equal(t, "user-1", GetUserID(c))
		return c.NoContent(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "user-1")
	req.Header.Set(HeaderUserName, "Alice")
	req.Header.Set(HeaderUserEmail, "alice@facilityhub.test")
	req.Header.Set(HeaderDepartment, "maintenance")
	req.Header.Set(HeaderRole, "staff")
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	err := Identity()(handler)(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentityMiddleware_RejectsMissingHeaders(t *testing.T) {
	e := echo.New()

	handler := func(c echo.Context) error {
		t.Fatal("handler must not run without identity")
		return nil
	}

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "no headers"},
		{
			name:    "missing department",
			headers: map[string]string{HeaderUserID: "user-1"},
		},
		{
			name:    "missing user id",
			headers: map[string]string{HeaderDepartment: "maintenance"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			c := e.NewContext(req, rec)
			err := Identity()(handler)(c)

			require.Error(t, err)
			var re *ResponseError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, http.StatusUnauthorized, re.Status)
			assert.ErrorIs(t, re.Err, models.ErrUnauthorized)
		})
	}
}

func TestGetIdentity_OutsideScope(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.False(t, GetIdentity(c).Valid())
	assert.Empty(t, GetUserID(c))
}
