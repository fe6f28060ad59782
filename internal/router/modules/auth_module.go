package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/feedstream/internal/container"
	handlers "github.com/oksasatya/feedstream/internal/interface/http"
	"github.com/oksasatya/feedstream/internal/interface/middleware"
	"github.com/oksasatya/feedstream/pkg/helpers"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	Tokens  *helpers.TokenManager
}

func NewAuthModule(h *handlers.AuthHandler, tokens *helpers.TokenManager) *AuthModule {
	return &AuthModule{Handler: h, Tokens: tokens}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP-based rate limits
	signupLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), nil)

	rg.PUT("/auth/signup", signupLimiter, m.Handler.Signup)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)

	// Status endpoints are scoped to the authenticated caller
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Tokens))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/auth/status", m.Handler.GetStatus)
		auth.PATCH("/auth/status", m.Handler.UpdateStatus)
	}
}
