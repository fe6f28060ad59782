package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/feedstream/internal/container"
	handlers "github.com/oksasatya/feedstream/internal/interface/http"
	"github.com/oksasatya/feedstream/internal/interface/middleware"
	"github.com/oksasatya/feedstream/pkg/helpers"
)

// FeedModule wires post CRUD, image upload, search and the event stream.
// Public: GET /api/feed/posts, GET /api/feed/posts/:postID,
// GET /api/feed/search, GET /api/feed/stream
// Protected: POST/PUT/DELETE on posts, POST /api/feed/images

type FeedModule struct {
	Handler *handlers.FeedHandler
	Stream  *handlers.StreamHandler
	Tokens  *helpers.TokenManager
}

func NewFeedModule(h *handlers.FeedHandler, s *handlers.StreamHandler, tokens *helpers.TokenManager) *FeedModule {
	return &FeedModule{Handler: h, Stream: s, Tokens: tokens}
}

func (m *FeedModule) Register(rg *gin.RouterGroup) {
	listLimiter := middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), nil)

	rg.GET("/feed/posts", listLimiter, m.Handler.List)
	rg.GET("/feed/posts/:postID", listLimiter, m.Handler.Get)
	rg.GET("/feed/search", listLimiter, m.Handler.Search)
	rg.GET("/feed/stream", m.Stream.Stream)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Tokens))
	auth.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/feed/posts", m.Handler.Create)
		auth.PUT("/feed/posts/:postID", m.Handler.Update)
		auth.DELETE("/feed/posts/:postID", m.Handler.Delete)
		auth.POST("/feed/images", m.Handler.UploadImage)
	}
}
