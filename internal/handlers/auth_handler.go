package handlers

import (
	"net/http"

	"certquiz/internal/config"
	"certquiz/internal/observability"
	"certquiz/internal/session"
	contextutils "certquiz/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuthHandler bridges the identity-provider callback outcome into the cookie
// session and the quiz session. It does not perform the OAuth dance itself;
// the provider has already verified the identity by the time Callback runs.
type AuthHandler struct {
	manager *session.Manager
	config  *config.Config
	logger  *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(manager *session.Manager, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{manager: manager, config: cfg, logger: logger}
}

// CallbackRequest carries the verified identity outcome plus the URL the
// client landed on, so remote-progress reconciliation can respect an
// explicit q parameter.
type CallbackRequest struct {
	UserID   string `json:"user_id" binding:"required,min=1,max=128"`
	RawQuery string `json:"raw_query"`
}

// Callback records a verified identity on the cookie session and reapplies
// the remote progress pointer to the quiz session.
func (h *AuthHandler) Callback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "auth_callback")
	defer observability.FinishSpan(span, nil)

	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	span.SetAttributes(observability.AttributeUserID(req.UserID))

	sessionID, err := ensureSessionID(c)
	if err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to persist session"))
		return
	}

	cookieSession := sessions.Default(c)
	cookieSession.Set(UserIDKey, req.UserID)
	if err := cookieSession.Save(); err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to persist session"))
		return
	}

	sess, err := h.manager.Resolve(ctx, sessionID, req.RawQuery, req.UserID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if err := sess.SetIdentity(ctx, req.UserID, req.RawQuery); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info(ctx, "Identity recorded on session", map[string]interface{}{
		"user_id": req.UserID,
	})
	c.JSON(http.StatusOK, sess.State())
}

// Logout clears the identity and drops the quiz session.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "auth_logout")
	defer observability.FinishSpan(span, nil)

	cookieSession := sessions.Default(c)
	if id, ok := cookieSession.Get(SessionIDKey).(string); ok && id != "" {
		h.manager.Drop(id)
	}
	cookieSession.Clear()
	if err := cookieSession.Save(); err != nil {
		h.logger.Warn(ctx, "Failed to clear cookie session on logout", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Status reports whether the caller carries a verified identity.
func (h *AuthHandler) Status(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "auth_status")
	defer observability.FinishSpan(span, nil)

	userID := sessionUserID(c)
	span.SetAttributes(attribute.Bool("auth.authenticated", userID != ""))

	c.JSON(http.StatusOK, gin.H{
		"authenticated": userID != "",
		"user_id":       userID,
	})
}
