package handlers

import (
	"net/http"

	"certquiz/internal/config"
	"certquiz/internal/models"
	"certquiz/internal/observability"
	"certquiz/internal/services"
	"certquiz/internal/session"
	contextutils "certquiz/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// QuizHandler serves the quiz session state machine over HTTP.
type QuizHandler struct {
	manager  *session.Manager
	detector services.LanguageDetectorInterface
	config   *config.Config
	logger   *observability.Logger
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(manager *session.Manager, detector services.LanguageDetectorInterface, cfg *config.Config, logger *observability.Logger) *QuizHandler {
	return &QuizHandler{manager: manager, detector: detector, config: cfg, logger: logger}
}

// AnswerRequest carries one submitted answer for the current question.
type AnswerRequest struct {
	Answer string `json:"answer" binding:"required,answerletters,max=64"`
}

// NavigateRequest moves the active question. Index is 0-based; RawURL is the
// URL the client is currently on, used to detect identity-provider callbacks.
type NavigateRequest struct {
	Index  *int   `json:"index" binding:"required"`
	RawURL string `json:"raw_url"`
}

// LanguageRequest switches the content language.
type LanguageRequest struct {
	Language string `json:"language" binding:"required,oneof=vi en"`
}

// GetState resolves the caller's session against the question bank and
// returns a state snapshot. The request query string participates in index
// reconciliation: an in-range 1-based q parameter beats the remote pointer.
func (h *QuizHandler) GetState(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "quiz_state")
	defer observability.FinishSpan(span, nil)

	sessionID, err := ensureSessionID(c)
	if err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to persist session"))
		return
	}

	sess, err := h.manager.Resolve(ctx, sessionID, c.Request.URL.RawQuery, sessionUserID(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	state := sess.State()
	span.SetAttributes(
		attribute.Int("session.index", state.CurrentIndex),
		attribute.Int("session.questions", state.QuestionCount),
	)
	c.JSON(http.StatusOK, state)
}

// SubmitAnswer records an answer for the current question and reports
// correctness. The whole answer map is persisted before the response.
func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "quiz_answer")
	defer observability.FinishSpan(span, nil)

	var req AnswerRequest
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

	sess, ok := h.readySession(c)
	if !ok {
		return
	}

	correct, err := sess.SubmitAnswer(ctx, req.Answer)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(attribute.Bool("answer.correct", correct))
	c.JSON(http.StatusOK, gin.H{
		"correct": correct,
		"state":   sess.State(),
	})
}

// Navigate moves the active question. Out-of-range targets leave the state
// unchanged rather than failing.
func (h *QuizHandler) Navigate(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "quiz_navigate")
	defer observability.FinishSpan(span, nil)

	var req NavigateRequest
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

	sess, ok := h.readySession(c)
	if !ok {
		return
	}

	sess.ChangeIndex(ctx, *req.Index, req.RawURL)
	c.JSON(http.StatusOK, sess.State())
}

// ChangeLanguage switches the content language and drops the in-memory
// generated content.
func (h *QuizHandler) ChangeLanguage(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "quiz_language")
	defer observability.FinishSpan(span, nil)

	var req LanguageRequest
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

	sess, ok := h.readySession(c)
	if !ok {
		return
	}

	language := models.Language(req.Language)
	if err := sess.ChangeLanguage(ctx, language); err != nil {
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(observability.AttributeLanguage(language))
	c.JSON(http.StatusOK, sess.State())
}

// DetectLanguage picks an initial content language by caller country and
// applies it to the session. Lookup failures keep the configured default.
func (h *QuizHandler) DetectLanguage(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "quiz_language_detect")
	defer observability.FinishSpan(span, nil)

	sess, ok := h.readySession(c)
	if !ok {
		return
	}

	language := h.detector.Detect(ctx)
	if err := sess.ChangeLanguage(ctx, language); err != nil {
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(observability.AttributeLanguage(language))
	c.JSON(http.StatusOK, gin.H{
		"language": language,
		"state":    sess.State(),
	})
}

// readySession fetches the caller's session without resolving it; mutation
// endpoints require a prior GetState.
func (h *QuizHandler) readySession(c *gin.Context) (*session.Session, bool) {
	sessionID, err := ensureSessionID(c)
	if err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to persist session"))
		return nil, false
	}

	sess := h.manager.Get(sessionID)
	if !sess.Ready() {
		HandleAppError(c, contextutils.WrapError(contextutils.ErrSessionNotReady, "session is not resolved"))
		return nil, false
	}
	return sess, true
}
