package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/user-auth/internal/core/domain"
	"github.com/duynhne/user-auth/internal/core/session"
	"github.com/duynhne/user-auth/internal/logger"
	logicv1 "github.com/duynhne/user-auth/internal/logic/v1"
	"github.com/duynhne/user-auth/middleware"
)

// Handler groups HTTP handlers for the auth API v1.
// Dependencies are injected via the constructor, no global state.
type Handler struct {
	auth *logicv1.AuthService
}

// NewHandler creates a new Handler with the given AuthService.
func NewHandler(auth *logicv1.AuthService) *Handler {
	return &Handler{auth: auth}
}

// RegisterRoutes registers all auth API v1 routes on the given router group.
// The group must run middleware.SessionMiddleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.Register)
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/logout", h.Logout)
	rg.POST("/auth/forgot-password", h.ForgotPassword)
	rg.POST("/auth/change-password", h.ChangePassword)
	rg.GET("/auth/me", h.Me)
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	var req domain.RegisterRequest
	if !bind(c, span, &req) {
		return
	}
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	response, err := h.auth.Register(ctx, req, sess)
	if err != nil {
		span.RecordError(err)
		renderError(c, err, "Registration failed")
		return
	}

	if response.User != nil {
		logger.FromContext(ctx).Info().Int("user_id", response.User.ID).Msg("Registration successful")
	}
	c.JSON(http.StatusOK, response)
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	var req domain.LoginRequest
	if !bind(c, span, &req) {
		return
	}
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	response, err := h.auth.Login(ctx, req, sess)
	if err != nil {
		span.RecordError(err)
		renderError(c, err, "Login failed")
		return
	}

	if response.User != nil {
		logger.FromContext(ctx).Info().Int("user_id", response.User.ID).Msg("Login successful")
	}
	c.JSON(http.StatusOK, response)
}

// Logout handles POST /api/v1/auth/logout. It never fails the request;
// the body reports whether the session record was removed.
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	sess, ok := requireSession(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": h.auth.Logout(ctx, sess)})
}

// ForgotPassword handles POST /api/v1/auth/forgot-password.
// The answer is the same whether or not the email is registered.
func (h *Handler) ForgotPassword(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	var req domain.ForgotPasswordRequest
	if !bind(c, span, &req) {
		return
	}

	sent, err := h.auth.ForgotPassword(ctx, req)
	if err != nil {
		span.RecordError(err)
		renderError(c, err, "Forgot password failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": sent})
}

// ChangePassword handles POST /api/v1/auth/change-password.
func (h *Handler) ChangePassword(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	var req domain.ChangePasswordRequest
	if !bind(c, span, &req) {
		return
	}
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	response, err := h.auth.ChangePassword(ctx, req, sess)
	if err != nil {
		span.RecordError(err)
		renderError(c, err, "Change password failed")
		return
	}

	if response.User != nil {
		logger.FromContext(ctx).Info().Int("user_id", response.User.ID).Msg("Password changed")
	}
	c.JSON(http.StatusOK, response)
}

// Me handles GET /api/v1/auth/me.
// Anonymous callers get {"user": null}, not an error status.
func (h *Handler) Me(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	sess, ok := requireSession(c)
	if !ok {
		return
	}

	user, err := h.auth.Me(ctx, sess)
	if err != nil {
		span.RecordError(err)
		renderError(c, err, "Session lookup failed")
		return
	}

	span.SetAttributes(attribute.Bool("auth.present", user != nil))
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func startSpan(c *gin.Context) (ctx context.Context, span trace.Span) {
	return middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
}

// bind decodes the JSON body into req and answers 400 when it is malformed.
func bind(c *gin.Context, span trace.Span, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		logger.FromContext(c.Request.Context()).Warn().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": []string{"malformed JSON body"}})
		return false
	}
	span.SetAttributes(attribute.Bool("request.valid", true))
	return true
}

func requireSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := session.FromContext(c.Request.Context())
	if !ok {
		logger.FromContext(c.Request.Context()).Error().Msg("Session middleware not installed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	return sess, true
}

func renderError(c *gin.Context, err error, msg string) {
	log := logger.FromContext(c.Request.Context())

	var verr *logicv1.ValidationError
	switch {
	case errors.As(err, &verr):
		log.Warn().Strs("details", verr.Messages()).Msg(msg)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": verr.Messages()})
	case errors.Is(err, logicv1.ErrInvalidInput):
		log.Warn().Err(err).Msg(msg)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": []string{err.Error()}})
	default:
		log.Error().Err(err).Msg(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
