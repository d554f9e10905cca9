package session

import (
	"context"
	"sync"

	"certquiz/internal/models"
	"certquiz/internal/observability"
	"certquiz/internal/services"
	contextutils "certquiz/internal/utils"
)

// Manager hands out one Session per cookie-session ID. The question bank is
// loaded once and shared read-only across all sessions.
type Manager struct {
	deps      Dependencies
	questions services.QuestionServiceInterface

	mu       sync.Mutex
	bank     []models.Question
	sessions map[string]*Session
}

// NewManager creates a new session manager.
func NewManager(deps Dependencies, questions services.QuestionServiceInterface) *Manager {
	return &Manager{
		deps:      deps,
		questions: questions,
		sessions:  make(map[string]*Session),
	}
}

// LoadQuestionBank loads the shared question set. A failed or empty load is
// fatal: no session can become ready without questions.
func (m *Manager) LoadQuestionBank(ctx context.Context) (err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "load_question_bank")
	defer observability.FinishSpan(span, &err)

	bank, err := m.questions.LoadAll(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.bank = bank
	m.mu.Unlock()
	return nil
}

// Questions returns the shared question bank.
func (m *Manager) Questions() []models.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bank
}

// Get returns the session for id, creating an unresolved one if needed.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok {
		return sess
	}
	sess := New(m.deps)
	m.sessions[id] = sess
	return sess
}

// Resolve returns the session for id, resolving it against the shared bank
// if it is not ready yet.
func (m *Manager) Resolve(ctx context.Context, id, rawQuery, userID string) (*Session, error) {
	sess := m.Get(id)
	if sess.Ready() {
		return sess, nil
	}

	m.mu.Lock()
	bank := m.bank
	m.mu.Unlock()
	if len(bank) == 0 {
		return nil, contextutils.WrapError(contextutils.ErrNoQuestionsAvailable, "question bank is not loaded")
	}

	if err := sess.Resolve(ctx, bank, rawQuery, userID); err != nil {
		return nil, err
	}
	return sess, nil
}

// Drop removes the session for id.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
