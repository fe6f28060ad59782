package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/feedstream/internal/application"
	"github.com/oksasatya/feedstream/internal/interface/middleware"
	"github.com/oksasatya/feedstream/internal/monitoring"
	"github.com/oksasatya/feedstream/pkg/response"
	"github.com/oksasatya/feedstream/pkg/validation"
)

type FeedHandler struct {
	Svc    *application.FeedService
	Logger *logrus.Logger
}

func NewFeedHandler(svc *application.FeedService, logger *logrus.Logger) *FeedHandler {
	return &FeedHandler{Svc: svc, Logger: logger}
}

type createPostRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	ImageURL string `json:"image_url" binding:"required,url"`
}

type updatePostRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	ImageURL string `json:"image_url" binding:"required,url"`
}

// List GET /api/feed/posts?page=N (public)
func (h *FeedHandler) List(c *gin.Context) {
	page := 1
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	res, err := h.Svc.List(c.Request.Context(), page)
	if err != nil {
		h.serverError(c, err, "list posts failed")
		return
	}
	resp := response.Success(c, http.StatusOK, res.Posts, "fetched posts", gin.H{
		"page":        res.Page,
		"per_page":    res.PerPage,
		"total_items": res.TotalItems,
	})
	c.JSON(resp.Status, resp)
}

// Get GET /api/feed/posts/:postID (public)
func (h *FeedHandler) Get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), c.Param("postID"))
	if err != nil {
		h.feedError(c, err, "get post failed")
		return
	}
	resp := response.Success(c, http.StatusOK, p, "post fetched", nil)
	c.JSON(resp.Status, resp)
}

// Create POST /api/feed/posts (auth)
func (h *FeedHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusUnprocessableEntity, "validation failed", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	p, creator, err := h.Svc.Create(c.Request.Context(), uid, application.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		h.feedError(c, err, "create post failed")
		return
	}
	monitoring.PostsCreated.Inc()
	monitoring.EventsPublished.WithLabelValues("create").Inc()
	resp := response.Success(c, http.StatusCreated, gin.H{"post": p, "creator": creator}, "post created", nil)
	c.JSON(resp.Status, resp)
}

// Update PUT /api/feed/posts/:postID (auth, owner only)
func (h *FeedHandler) Update(c *gin.Context) {
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusUnprocessableEntity, "validation failed", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	p, err := h.Svc.Update(c.Request.Context(), uid, c.Param("postID"), application.UpdatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		h.feedError(c, err, "update post failed")
		return
	}
	monitoring.EventsPublished.WithLabelValues("update").Inc()
	resp := response.Success(c, http.StatusOK, gin.H{"post": p}, "post updated", nil)
	c.JSON(resp.Status, resp)
}

// Delete DELETE /api/feed/posts/:postID (auth, owner only)
func (h *FeedHandler) Delete(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.Delete(c.Request.Context(), uid, c.Param("postID")); err != nil {
		h.feedError(c, err, "delete post failed")
		return
	}
	monitoring.PostsDeleted.Inc()
	monitoring.EventsPublished.WithLabelValues("delete").Inc()
	resp := response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "post deleted", nil)
	c.JSON(resp.Status, resp)
}

// UploadImage POST /api/feed/images (auth, multipart)
func (h *FeedHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		resp := response.Error[any](c, http.StatusUnprocessableEntity, "no image provided", nil)
		c.JSON(resp.Status, resp)
		return
	}
	contentType := file.Header.Get("Content-Type")
	switch contentType {
	case "image/png", "image/jpg", "image/jpeg":
	default:
		resp := response.Error[any](c, http.StatusUnprocessableEntity, "unsupported image type", gin.H{"content_type": contentType})
		c.JSON(resp.Status, resp)
		return
	}
	f, err := file.Open()
	if err != nil {
		h.serverError(c, err, "open upload failed")
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.StoreImage(c.Request.Context(), f, file.Filename, contentType)
	if err != nil {
		h.serverError(c, err, "store image failed")
		return
	}
	resp := response.Success(c, http.StatusCreated, gin.H{"image_url": url}, "image stored", nil)
	c.JSON(resp.Status, resp)
}

// Search GET /api/feed/search?q= (public)
func (h *FeedHandler) Search(c *gin.Context) {
	q := c.Query("q")
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.Search(c.Request.Context(), q, size)
	if err != nil {
		h.serverError(c, err, "search failed")
		return
	}
	resp := response.Success(c, http.StatusOK, hits, "search results", gin.H{"query": q})
	c.JSON(resp.Status, resp)
}

// feedError maps domain errors to their caller-facing status; everything
// else is a storage fault and surfaces generically.
func (h *FeedHandler) feedError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, application.ErrPostNotFound):
		resp := response.Error[any](c, http.StatusNotFound, "post not found", nil)
		c.JSON(resp.Status, resp)
	case errors.Is(err, application.ErrForbidden):
		resp := response.Error[any](c, http.StatusForbidden, "not authorized", nil)
		c.JSON(resp.Status, resp)
	case errors.Is(err, application.ErrUserNotFound):
		resp := response.Error[any](c, http.StatusNotFound, "user not found", nil)
		c.JSON(resp.Status, resp)
	default:
		h.serverError(c, err, logMsg)
	}
}

func (h *FeedHandler) serverError(c *gin.Context, err error, logMsg string) {
	if h.Logger != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(logMsg)
	}
	resp := response.Error[any](c, http.StatusInternalServerError, "something went wrong", nil)
	c.JSON(resp.Status, resp)
}
