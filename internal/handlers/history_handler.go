package handlers

import (
	"net/http"

	"certquiz/internal/config"
	"certquiz/internal/models"
	"certquiz/internal/observability"
	"certquiz/internal/services"
	contextutils "certquiz/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// HistoryHandler serves per-user answer submission history.
type HistoryHandler struct {
	history services.HistoryServiceInterface
	config  *config.Config
	logger  *observability.Logger
}

// NewHistoryHandler creates a new HistoryHandler instance
func NewHistoryHandler(history services.HistoryServiceInterface, cfg *config.Config, logger *observability.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, config: cfg, logger: logger}
}

// historyGroup is one question's submissions, newest first.
type historyGroup struct {
	QuestionID  string                    `json:"question_id"`
	Submissions []models.AnswerSubmission `json:"submissions"`
}

// List returns the caller's submissions grouped by question, most recently
// answered question first.
func (h *HistoryHandler) List(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "history_list")
	defer observability.FinishSpan(span, nil)

	userID := sessionUserID(c)
	span.SetAttributes(observability.AttributeUserID(userID))

	submissions, err := h.history.List(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	order, grouped := services.GroupSubmissionsByQuestion(submissions)
	groups := make([]historyGroup, 0, len(order))
	for _, questionID := range order {
		groups = append(groups, historyGroup{
			QuestionID:  questionID,
			Submissions: grouped[questionID],
		})
	}

	span.SetAttributes(
		attribute.Int("history.submissions", len(submissions)),
		attribute.Int("history.questions", len(groups)),
	)
	c.JSON(http.StatusOK, gin.H{
		"total":  len(submissions),
		"groups": groups,
	})
}

// Clear deletes the caller's entire submission history.
func (h *HistoryHandler) Clear(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "history_clear")
	defer observability.FinishSpan(span, nil)

	userID := sessionUserID(c)
	span.SetAttributes(observability.AttributeUserID(userID))

	deleted, err := h.history.Clear(ctx, userID)
	if err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to clear history"))
		return
	}

	span.SetAttributes(attribute.Int64("history.deleted", deleted))
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
