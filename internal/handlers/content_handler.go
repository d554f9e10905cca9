package handlers

import (
	"net/http"

	"certquiz/internal/config"
	"certquiz/internal/models"
	"certquiz/internal/observability"
	"certquiz/internal/session"
	contextutils "certquiz/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ContentHandler serves generated theory and explanation content.
type ContentHandler struct {
	manager *session.Manager
	config  *config.Config
	logger  *observability.Logger
}

// NewContentHandler creates a new ContentHandler instance
func NewContentHandler(manager *session.Manager, cfg *config.Config, logger *observability.Logger) *ContentHandler {
	return &ContentHandler{manager: manager, config: cfg, logger: logger}
}

// Request opens the content panel for the kind in the URL on the current
// question. A second request while a generation is outstanding is rejected
// with 409, not queued.
func (h *ContentHandler) Request(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "content_request")
	defer observability.FinishSpan(span, nil)

	kind := models.ContentKind(c.Param("kind"))
	if !kind.Valid() {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown content kind %q", kind))
		return
	}
	span.SetAttributes(observability.AttributeContentKind(kind))

	sessionID, err := ensureSessionID(c)
	if err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to persist session"))
		return
	}

	sess := h.manager.Get(sessionID)
	content, err := sess.RequestContent(ctx, kind)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("content_length", len(content)))
	c.JSON(http.StatusOK, gin.H{
		"kind":    kind,
		"content": content,
		"state":   sess.State(),
	})
}
