package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(secret))
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/tasks", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(SubjectKey)) })
	return r
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	r := newRouter()
	token := sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{
		Subject:   "ann",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	w := do(r, "/tasks", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ann", w.Body.String())

	w = do(r, "/tasks", "bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	r := newRouter()
	valid := jwt.NewNumericDate(time.Now().Add(time.Hour))

	cases := map[string]string{
		"no header":    "",
		"wrong scheme": "Basic abc",
		"empty token":  "Bearer ",
		"garbage":      "Bearer not-a-jwt",
		"wrong key": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{
			ExpiresAt: valid,
		}),
		"wrong alg": "Bearer " + sign(t, jwt.SigningMethodHS512, secret, jwt.RegisteredClaims{
			ExpiresAt: valid,
		}),
		"expired": "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}),
		"no expiry": "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{Subject: "ann"}),
	}
	for name, auth := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(r, "/tasks", auth)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestAuthMiddlewareSkipsHealthz(t *testing.T) {
	w := do(newRouter(), "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
