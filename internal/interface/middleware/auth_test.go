package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/feedstream/pkg/helpers"
)

func newAuthRouter(tokens *helpers.TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Auth(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserIDKey))
	})
	return r
}

func doGet(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMissingHeader(t *testing.T) {
	tokens := helpers.NewTokenManager("test-secret", time.Hour)
	r := newAuthRouter(tokens)

	if w := doGet(r, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMalformedHeader(t *testing.T) {
	tokens := helpers.NewTokenManager("test-secret", time.Hour)
	r := newAuthRouter(tokens)

	for _, header := range []string{"Token abc", "Bearer", "Bearer "} {
		if w := doGet(r, header); w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, w.Code)
		}
	}
}

func TestAuthInvalidToken(t *testing.T) {
	tokens := helpers.NewTokenManager("test-secret", time.Hour)
	r := newAuthRouter(tokens)

	if w := doGet(r, "Bearer not.a.token"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthExpiredToken(t *testing.T) {
	expired := helpers.NewTokenManager("test-secret", -time.Minute)
	token, _, err := expired.Generate("user-42", "a@x.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	r := newAuthRouter(helpers.NewTokenManager("test-secret", time.Hour))
	if w := doGet(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthValidTokenInjectsIdentity(t *testing.T) {
	tokens := helpers.NewTokenManager("test-secret", time.Hour)
	token, _, err := tokens.Generate("user-42", "a@x.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	r := newAuthRouter(tokens)
	w := doGet(r, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "user-42" {
		t.Errorf("user id = %q, want user-42", got)
	}
}
