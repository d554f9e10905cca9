// Package session holds the per-user quiz state machine: the active question
// index, submitted answers, the in-memory generated-content cache, and the
// reconciliation rules that tie them to the URL, the local answer store, and
// the remote progress pointer.
package session

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"certquiz/internal/config"
	"certquiz/internal/localstore"
	"certquiz/internal/models"
	"certquiz/internal/observability"
	"certquiz/internal/services"
	contextutils "certquiz/internal/utils"
	"certquiz/internal/worker"

	"go.opentelemetry.io/otel/attribute"
)

// Dependencies carries everything a session needs to operate.
type Dependencies struct {
	Config   *config.Config
	Logger   *observability.Logger
	Content  services.ContentServiceInterface
	Progress services.ProgressStore
	History  services.HistoryServiceInterface
	Store    *localstore.Store
	Tasks    *worker.Worker
}

// State is a snapshot of session state returned to handlers.
type State struct {
	Ready         bool               `json:"ready"`
	CurrentIndex  int                `json:"current_index"`
	QuestionCount int                `json:"question_count"`
	Question      *models.Question   `json:"question,omitempty"`
	Answer        string             `json:"answer,omitempty"`
	Language      models.Language    `json:"language"`
	ActivePanel   models.ContentKind `json:"active_panel,omitempty"`
	NavQuery      string             `json:"nav_query,omitempty"`
	UserID        string             `json:"user_id,omitempty"`
}

// Session owns one user's quiz state. All state is mutated only through the
// transition methods; handlers never touch fields directly.
type Session struct {
	deps Dependencies

	mu           sync.Mutex
	userID       string
	language     models.Language
	questions    []models.Question
	answers      map[string]string
	currentIndex int
	activePanel  models.ContentKind
	navQuery     string
	ready        bool

	// contentCache holds generated text keyed by type_questionID_language.
	// Cleared wholesale on language change.
	contentCache map[string]string

	// One generation request outstanding at a time, regardless of question.
	inFlight bool
}

// New creates an unresolved session.
func New(deps Dependencies) *Session {
	return &Session{
		deps:         deps,
		language:     deps.Config.DefaultLanguage(),
		answers:      make(map[string]string),
		contentCache: make(map[string]string),
	}
}

// Resolve initializes the session: it adopts the loaded question set, reloads
// the local answer map, and reconciles the active index. The URL q parameter
// (1-based) wins over the remote progress pointer; the pointer applies only
// when no q parameter is present. Out-of-range values from either source are
// ignored.
func (s *Session) Resolve(ctx context.Context, questions []models.Question, rawQuery, userID string) (err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "resolve",
		attribute.Int("questions.count", len(questions)),
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	if len(questions) == 0 {
		return contextutils.WrapError(contextutils.ErrNoQuestionsAvailable, "cannot resolve session without questions")
	}

	answers := s.deps.Store.LoadAnswers(ctx, s.deps.Config.Quiz.AnswerStoreKey)

	index := 0
	qParam := queryParam(rawQuery, "q")
	applied := "default"
	if qParam != "" {
		if n, convErr := strconv.Atoi(qParam); convErr == nil && n >= 1 && n <= len(questions) {
			index = n - 1
			applied = "url"
		}
	} else if userID != "" {
		progress, progErr := s.deps.Progress.Get(ctx, userID)
		if progErr != nil {
			// A failing progress read keeps the default index
			s.deps.Logger.Warn(ctx, "Failed to load remote progress, starting at 0", map[string]interface{}{
				"user_id": userID,
				"error":   progErr.Error(),
			})
		} else if progress != nil && progress.LastQuestionIndex >= 0 && progress.LastQuestionIndex < len(questions) {
			index = progress.LastQuestionIndex
			applied = "remote"
		}
	}

	s.mu.Lock()
	s.questions = questions
	s.answers = answers
	s.userID = userID
	s.currentIndex = index
	s.navQuery = navQueryFor(index)
	s.activePanel = ""
	s.ready = true
	s.mu.Unlock()

	span.SetAttributes(
		attribute.Int("session.index", index),
		attribute.String("session.index_source", applied),
		attribute.Int("session.answers", len(answers)),
	)
	s.deps.Logger.Info(ctx, "Session resolved", map[string]interface{}{
		"user_id":      userID,
		"index":        index,
		"index_source": applied,
		"questions":    len(questions),
		"answers":      len(answers),
	})
	return nil
}

// SetIdentity records a verified identity on an already-resolved session and
// reapplies the remote pointer when no explicit q parameter steered the
// current position.
func (s *Session) SetIdentity(ctx context.Context, userID, rawQuery string) (err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "set_identity",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return contextutils.WrapError(contextutils.ErrSessionNotReady, "session is not resolved")
	}
	s.userID = userID
	length := len(s.questions)
	s.mu.Unlock()

	if userID == "" || queryParam(rawQuery, "q") != "" {
		return nil
	}

	progress, progErr := s.deps.Progress.Get(ctx, userID)
	if progErr != nil {
		s.deps.Logger.Warn(ctx, "Failed to load remote progress on sign-in", map[string]interface{}{
			"user_id": userID,
			"error":   progErr.Error(),
		})
		return nil
	}
	if progress == nil || progress.LastQuestionIndex < 0 || progress.LastQuestionIndex >= length {
		return nil
	}

	s.mu.Lock()
	s.currentIndex = progress.LastQuestionIndex
	s.navQuery = navQueryFor(s.currentIndex)
	s.activePanel = ""
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("session.index", progress.LastQuestionIndex))
	return nil
}

// SubmitAnswer records the answer for the current question, persists the
// whole answer map write-through, and records the submission in history when
// an identity is present. It reports whether the answer was correct.
func (s *Session) SubmitAnswer(ctx context.Context, answer string) (result0 bool, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "submit_answer")
	defer observability.FinishSpan(span, &err)

	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return false, contextutils.WrapError(contextutils.ErrSessionNotReady, "session is not resolved")
	}
	question := s.questions[s.currentIndex]
	s.answers[question.ID] = answer
	snapshot := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		snapshot[k] = v
	}
	userID := s.userID
	s.mu.Unlock()

	correct := question.IsAnswerCorrect(answer)
	span.SetAttributes(
		observability.AttributeQuestionID(question.ID),
		attribute.Bool("answer.correct", correct),
	)

	// Write-through: the whole map is persisted on every submission
	if saveErr := s.deps.Store.SaveAnswers(ctx, s.deps.Config.Quiz.AnswerStoreKey, snapshot); saveErr != nil {
		return correct, contextutils.WrapError(saveErr, "failed to persist answers")
	}

	if userID != "" {
		questionID := question.ID
		s.deps.Tasks.Enqueue("history.record", func(taskCtx context.Context) error {
			return s.deps.History.Record(taskCtx, userID, questionID, answer, correct)
		})
	}

	return correct, nil
}

// ChangeIndex moves the active question. Out-of-range targets leave the
// index unchanged. Navigation closes any open content panel, refreshes the
// canonical nav query unless an identity-provider callback is mid-flight in
// the supplied URL, and fires a background progress write when an identity
// is present.
func (s *Session) ChangeIndex(ctx context.Context, newIndex int, rawURL string) {
	ctx, span := observability.TraceSessionFunction(ctx, "change_index",
		observability.AttributeQuestionIndex(newIndex),
	)
	defer span.End()

	s.mu.Lock()
	if !s.ready || newIndex < 0 || newIndex >= len(s.questions) {
		s.mu.Unlock()
		span.SetAttributes(attribute.String("change.result", "out_of_range"))
		return
	}
	s.currentIndex = newIndex
	s.activePanel = ""
	if !authCallbackInProgress(rawURL) {
		s.navQuery = navQueryFor(newIndex)
	}
	userID := s.userID
	s.mu.Unlock()

	span.SetAttributes(attribute.String("change.result", "moved"))

	if userID != "" {
		s.deps.Tasks.Enqueue("progress.save", func(taskCtx context.Context) error {
			return s.deps.Progress.Save(taskCtx, userID, newIndex)
		})
	}
}

// ChangeLanguage switches the content language, drops the entire in-memory
// generation cache, and closes any open content panel. Stale-language content
// is never shown after a switch.
func (s *Session) ChangeLanguage(ctx context.Context, language models.Language) (err error) {
	_, span := observability.TraceSessionFunction(ctx, "change_language",
		observability.AttributeLanguage(language),
	)
	defer observability.FinishSpan(span, &err)

	if !language.Valid() {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown language %q", language)
	}

	s.mu.Lock()
	s.language = language
	s.contentCache = make(map[string]string)
	s.activePanel = ""
	s.mu.Unlock()
	return nil
}

// RequestContent opens the content panel for kind on the current question,
// serving from the in-memory cache when possible and generating otherwise.
// At most one generation request is outstanding per session; a second request
// while one is in flight is rejected with ErrGenerationInFlight, not queued.
// On generation failure the panel closes instead of showing stale content.
func (s *Session) RequestContent(ctx context.Context, kind models.ContentKind) (result0 string, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "request_content",
		observability.AttributeContentKind(kind),
	)
	defer observability.FinishSpan(span, &err)

	if !kind.Valid() {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown content kind %q", kind)
	}

	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return "", contextutils.WrapError(contextutils.ErrSessionNotReady, "session is not resolved")
	}
	if s.inFlight {
		s.mu.Unlock()
		span.SetAttributes(attribute.String("content.result", "in_flight"))
		return "", contextutils.WrapError(contextutils.ErrGenerationInFlight, "a generation request is already in flight")
	}

	question := s.questions[s.currentIndex]
	language := s.language
	cacheKey := models.ContentCacheKey(kind, question.ID, language)
	if cached, ok := s.contentCache[cacheKey]; ok {
		s.activePanel = kind
		s.mu.Unlock()
		span.SetAttributes(attribute.String("content.result", "memory_hit"))
		return cached, nil
	}

	s.inFlight = true
	s.activePanel = kind
	s.mu.Unlock()

	content, genErr := s.deps.Content.GetContent(ctx, kind, &question, language)

	s.mu.Lock()
	s.inFlight = false
	if genErr != nil {
		// Close the panel rather than leaving it open with nothing to show
		if s.activePanel == kind {
			s.activePanel = ""
		}
		s.mu.Unlock()
		span.SetAttributes(attribute.String("content.result", "failed"))
		return "", genErr
	}
	s.contentCache[cacheKey] = content
	s.mu.Unlock()

	span.SetAttributes(attribute.String("content.result", "generated"), attribute.Int("content_length", len(content)))
	return content, nil
}

// State returns a snapshot for rendering.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Ready:         s.ready,
		CurrentIndex:  s.currentIndex,
		QuestionCount: len(s.questions),
		Language:      s.language,
		ActivePanel:   s.activePanel,
		NavQuery:      s.navQuery,
		UserID:        s.userID,
	}
	if s.ready {
		q := s.questions[s.currentIndex]
		state.Question = &q
		state.Answer = s.answers[q.ID]
	}
	return state
}

// Language returns the active content language.
func (s *Session) Language() models.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// Ready reports whether the session has been resolved.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// navQueryFor renders the canonical 1-based navigation query for an index.
func navQueryFor(index int) string {
	return fmt.Sprintf("?q=%d", index+1)
}

// queryParam extracts one parameter from a raw query string, tolerating a
// leading "?".
func queryParam(rawQuery, key string) string {
	rawQuery = strings.TrimPrefix(rawQuery, "?")
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}
	return values.Get(key)
}

// authCallbackInProgress reports whether the URL carries identity-provider
// callback markers. While one is present the nav query must not be rewritten
// or the callback parameters would be lost.
func authCallbackInProgress(rawURL string) bool {
	fragment := ""
	query := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		fragment = u.Fragment
		query = u.RawQuery
	}
	return strings.Contains(fragment, "access_token") ||
		strings.Contains(fragment, "type=recovery") ||
		strings.Contains(query, "code=")
}
