package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/feedstream/internal/application"
	"github.com/oksasatya/feedstream/internal/interface/middleware"
	"github.com/oksasatya/feedstream/internal/monitoring"
	"github.com/oksasatya/feedstream/pkg/response"
	"github.com/oksasatya/feedstream/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Signup PUT /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusUnprocessableEntity, "validation failed", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	u, err := h.Svc.Signup(c.Request.Context(), application.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			resp := response.Error[any](c, http.StatusUnprocessableEntity, "validation failed", gin.H{"email": "already registered"})
			c.JSON(resp.Status, resp)
			return
		}
		h.serverError(c, err, "signup failed")
		return
	}
	monitoring.SignupSuccess.Inc()
	resp := response.Success(c, http.StatusCreated, gin.H{"user_id": u.ID}, "user created", nil)
	c.JSON(resp.Status, resp)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusUnprocessableEntity, "validation failed", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			monitoring.LoginFailure.Inc()
			resp := response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
			c.JSON(resp.Status, resp)
			return
		}
		h.serverError(c, err, "login failed")
		return
	}
	monitoring.LoginSuccess.Inc()
	resp := response.Success(c, http.StatusOK, res, "login successful", gin.H{"expires_at": res.Expires})
	c.JSON(resp.Status, resp)
}

// GetStatus GET /api/auth/status (auth)
func (h *AuthHandler) GetStatus(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	status, err := h.Svc.GetStatus(c.Request.Context(), uid)
	if err != nil {
		h.statusError(c, err, "get status failed")
		return
	}
	resp := response.Success(c, http.StatusOK, gin.H{"status": status}, "status fetched", nil)
	c.JSON(resp.Status, resp)
}

// UpdateStatus PATCH /api/auth/status (auth)
func (h *AuthHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusUnprocessableEntity, "validation failed", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	status, err := h.Svc.UpdateStatus(c.Request.Context(), uid, req.Status)
	if err != nil {
		h.statusError(c, err, "update status failed")
		return
	}
	resp := response.Success(c, http.StatusOK, gin.H{"status": status}, "status updated", nil)
	c.JSON(resp.Status, resp)
}

func (h *AuthHandler) statusError(c *gin.Context, err error, logMsg string) {
	if errors.Is(err, application.ErrUserNotFound) {
		resp := response.Error[any](c, http.StatusNotFound, "user not found", nil)
		c.JSON(resp.Status, resp)
		return
	}
	h.serverError(c, err, logMsg)
}

func (h *AuthHandler) serverError(c *gin.Context, err error, logMsg string) {
	if h.Logger != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(logMsg)
	}
	resp := response.Error[any](c, http.StatusInternalServerError, "something went wrong", nil)
	c.JSON(resp.Status, resp)
}
