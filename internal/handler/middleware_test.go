package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/controla/backend/internal/tenant"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddlewareScopesTenant(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware(newTokenParser()))
	r.GET("/whoami", func(c *gin.Context) {
		user := GetAuthUser(c)
		require.NotNil(t, user)
		c.String(http.StatusOK, user.LoginID+"@"+tenant.FromContext(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer token-b")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob@tenant-b", w.Body.String())
}

func TestAuthMiddlewareRejects(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware(newTokenParser()))
	r.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, header := range []string{"", "token-a", "Bearer ", "Bearer unknown", "Basic dXNlcjpwYXNz"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.com", " "}, true))
	r.GET("/ping", Ping)

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
