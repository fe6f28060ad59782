package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/feedstream/internal/application"
	"github.com/oksasatya/feedstream/internal/domain/entity"
	"github.com/oksasatya/feedstream/internal/interface/middleware"
	"github.com/oksasatya/feedstream/pkg/helpers"
	"github.com/oksasatya/feedstream/pkg/validation"
)

// newAPIServer wires auth and feed endpoints behind the real token
// middleware, backed by in-memory stores.
func newAPIServer() *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.Init()

	posts := &memPosts{byID: map[string]entity.Post{}}
	users := &memUsers{byID: map[string]entity.User{}}
	tokens := helpers.NewTokenManager("scenario-secret", time.Hour)

	feedSvc := application.NewFeedService(posts, users, nopHub{}, nil, nil, nil, nil, "", 2)
	authSvc := application.NewAuthService(users, tokens, nil, nil)

	fh := NewFeedHandler(feedSvc, nil)
	ah := NewAuthHandler(authSvc, nil)

	r := gin.New()
	api := r.Group("/api")
	api.PUT("/auth/signup", ah.Signup)
	api.POST("/auth/login", ah.Login)
	api.GET("/feed/posts", fh.List)
	authed := api.Group("/", middleware.Auth(tokens))
	authed.POST("/feed/posts", fh.Create)
	authed.DELETE("/feed/posts/:postID", fh.Delete)
	return r
}

func doAuth(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSignupLoginCreateDeleteScenario(t *testing.T) {
	r := newAPIServer()

	// signup two users
	for i, body := range []string{
		`{"email":"alice@x.com","name":"Alice","password":"seekrit"}`,
		`{"email":"bob@x.com","name":"Bob","password":"seekrit"}`,
	} {
		if w := do(r, http.MethodPut, "/api/auth/signup", body); w.Code != http.StatusCreated {
			t.Fatalf("signup %d: status = %d, body %s", i, w.Code, w.Body.String())
		}
	}

	// short password is rejected with a field detail
	if w := do(r, http.MethodPut, "/api/auth/signup", `{"email":"c@x.com","name":"C","password":"abcd"}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short password: status = %d, want 422", w.Code)
	}

	login := func(email string) string {
		w := do(r, http.MethodPost, "/api/auth/login", fmt.Sprintf(`{"email":%q,"password":"seekrit"}`, email))
		if w.Code != http.StatusOK {
			t.Fatalf("login %s: status = %d, body %s", email, w.Code, w.Body.String())
		}
		var resp struct {
			Data struct {
				Token string `json:"token"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Data.Token == "" {
			t.Fatalf("login %s: no token in %s", email, w.Body.String())
		}
		return resp.Data.Token
	}
	aliceToken := login("alice@x.com")
	bobToken := login("bob@x.com")

	// wrong password is a 401
	if w := do(r, http.MethodPost, "/api/auth/login", `{"email":"alice@x.com","password":"wrong"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want 401", w.Code)
	}

	// anonymous create is rejected
	if w := do(r, http.MethodPost, "/api/feed/posts", `{"title":"x","content":"y","image_url":"https://img.test/1.png"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create: status = %d, want 401", w.Code)
	}

	// alice creates a post
	w := doAuth(r, http.MethodPost, "/api/feed/posts", `{"title":"Hello","content":"World","image_url":"https://img.test/1.png"}`, aliceToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		Data struct {
			Post entity.Post `json:"post"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.Data.Post.ID == "" {
		t.Fatalf("create: no post in %s", w.Body.String())
	}
	postID := created.Data.Post.ID

	// bob cannot delete alice's post
	if w := doAuth(r, http.MethodDelete, "/api/feed/posts/"+postID, "", bobToken); w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: status = %d, want 403", w.Code)
	}

	// the post is still listed
	if w := do(r, http.MethodGet, "/api/feed/posts", ""); w.Code != http.StatusOK {
		t.Fatalf("list: status = %d", w.Code)
	}

	// alice deletes her own post
	if w := doAuth(r, http.MethodDelete, "/api/feed/posts/"+postID, "", aliceToken); w.Code != http.StatusOK {
		t.Fatalf("owner delete: status = %d, body %s", w.Code, w.Body.String())
	}

	// a second delete is a 404
	if w := doAuth(r, http.MethodDelete, "/api/feed/posts/"+postID, "", aliceToken); w.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: status = %d, want 404", w.Code)
	}
}
