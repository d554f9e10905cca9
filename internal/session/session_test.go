package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"certquiz/internal/config"
	"certquiz/internal/localstore"
	"certquiz/internal/models"
	"certquiz/internal/observability"
	contextutils "certquiz/internal/utils"
	"certquiz/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProgress struct {
	mu     sync.Mutex
	stored map[string]int
	saves  int
}

func (f *fakeProgress) Get(_ context.Context, userID string) (*models.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	index, ok := f.stored[userID]
	if !ok {
		return nil, nil
	}
	return &models.UserProgress{UserID: userID, LastQuestionIndex: index}, nil
}

func (f *fakeProgress) Save(_ context.Context, userID string, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		f.stored = make(map[string]int)
	}
	f.stored[userID] = index
	f.saves++
	return nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []models.AnswerSubmission
}

func (f *fakeHistory) Record(_ context.Context, userID, questionID, answer string, isCorrect bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, models.AnswerSubmission{
		UserID: userID, QuestionID: questionID, Answer: answer, IsCorrect: isCorrect,
	})
	return nil
}

func (f *fakeHistory) List(_ context.Context, _ string) ([]models.AnswerSubmission, error) {
	return nil, nil
}

func (f *fakeHistory) Clear(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

type fakeContent struct {
	mu      sync.Mutex
	calls   int
	block   chan struct{}
	failErr error
}

func (f *fakeContent) GetContent(_ context.Context, kind models.ContentKind, q *models.Question, language models.Language) (string, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	failErr := f.failErr
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if failErr != nil {
		return "", failErr
	}
	return fmt.Sprintf("%s content for %s in %s", kind, q.ID, language), nil
}

func (f *fakeContent) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testQuestions(n int) []models.Question {
	questions := make([]models.Question, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, models.Question{
			ID:            fmt.Sprintf("%d", i),
			Question:      fmt.Sprintf("question %d", i),
			Options:       []string{"one", "two", "three", "four"},
			CorrectAnswer: "A",
		})
	}
	return questions
}

type testEnv struct {
	session  *Session
	progress *fakeProgress
	history  *fakeHistory
	content  *fakeContent
	store    *localstore.Store
	tasks    *worker.Worker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	store, err := localstore.New(filepath.Join(t.TempDir(), "store.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tasks := worker.NewWorker(16, logger)
	tasks.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tasks.Shutdown(ctx)
	})

	cfg := &config.Config{}
	cfg.Quiz.DefaultLanguage = string(models.LanguageVietnamese)
	cfg.Quiz.AnswerStoreKey = config.AnswerStoreKey

	env := &testEnv{
		progress: &fakeProgress{},
		history:  &fakeHistory{},
		content:  &fakeContent{},
		store:    store,
		tasks:    tasks,
	}
	env.session = New(Dependencies{
		Config:   cfg,
		Logger:   logger,
		Content:  env.content,
		Progress: env.progress,
		History:  env.history,
		Store:    store,
		Tasks:    tasks,
	})
	return env
}

func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.tasks.Shutdown(ctx))
}

func TestResolve_URLParamBeatsRemotePointer(t *testing.T) {
	env := newTestEnv(t)
	env.progress.stored = map[string]int{"user-1": 10}

	err := env.session.Resolve(context.Background(), testQuestions(20), "q=5", "user-1")
	require.NoError(t, err)

	// q=5 is 1-based, so index 4; the remote pointer of 10 is ignored
	assert.Equal(t, 4, env.session.State().CurrentIndex)
}

func TestResolve_RemotePointerWithoutURLParam(t *testing.T) {
	env := newTestEnv(t)
	env.progress.stored = map[string]int{"user-1": 9}

	err := env.session.Resolve(context.Background(), testQuestions(20), "", "user-1")
	require.NoError(t, err)

	assert.Equal(t, 9, env.session.State().CurrentIndex)
}

func TestResolve_OutOfRangeSourcesIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.progress.stored = map[string]int{"user-1": 50}

	err := env.session.Resolve(context.Background(), testQuestions(20), "q=999", "user-1")
	require.NoError(t, err)

	// Both the URL param and the remote pointer are out of range
	assert.Equal(t, 0, env.session.State().CurrentIndex)
}

func TestResolve_EmptyQuestionSetFails(t *testing.T) {
	env := newTestEnv(t)

	err := env.session.Resolve(context.Background(), nil, "", "")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrNoQuestionsAvailable))
}

func TestChangeIndex_OutOfRangeIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.session.Resolve(context.Background(), testQuestions(5), "q=3", ""))

	env.session.ChangeIndex(context.Background(), -1, "")
	assert.Equal(t, 2, env.session.State().CurrentIndex)

	env.session.ChangeIndex(context.Background(), 5, "")
	assert.Equal(t, 2, env.session.State().CurrentIndex)
}

func TestChangeIndex_UpdatesNavQueryAndSavesProgress(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.session.Resolve(context.Background(), testQuestions(5), "", "user-1"))

	env.session.ChangeIndex(context.Background(), 3, "/?q=1")
	env.drain(t)

	state := env.session.State()
	assert.Equal(t, 3, state.CurrentIndex)
	assert.Equal(t, "?q=4", state.NavQuery)
	assert.Equal(t, 3, env.progress.stored["user-1"])
}

func TestChangeIndex_AuthCallbackSuppressesNavQuery(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.session.Resolve(context.Background(), testQuestions(5), "", ""))

	env.session.ChangeIndex(context.Background(), 2, "/?code=abc123")

	state := env.session.State()
	assert.Equal(t, 2, state.CurrentIndex)
	// Nav query untouched while the identity callback is mid-flight
	assert.Equal(t, "?q=1", state.NavQuery)

	env.session.ChangeIndex(context.Background(), 3, "/#access_token=xyz")
	assert.Equal(t, "?q=1", env.session.State().NavQuery)
}

func TestChangeIndex_ClosesContentPanel(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.session.Resolve(context.Background(), testQuestions(5), "", ""))

	_, err := env.session.RequestContent(context.Background(), models.ContentTheory)
	require.NoError(t, err)
	assert.Equal(t, models.ContentTheory, env.session.State().ActivePanel)

	env.session.ChangeIndex(context.Background(), 1, "")
	assert.Empty(t, env.session.State().ActivePanel)
}

func TestSubmitAnswer_WriteThroughAndHistory(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.session.Resolve(context.Background(), testQuestions(5), "", "user-1"))

	correct, err := env.session.SubmitAnswer(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, correct)

	// The whole map is persisted immediately
	persisted := env.store.LoadAnswers(context.Background(), config.AnswerStoreKey)
	assert.Equal(t, map[string]string{"1": "A"}, persisted)

	env.drain(t)
	require.Len(t, env.history.records, 1)
	assert.Equal(t, "user-1", env.history.records[0].UserID)
	assert.Equal(t, "1", env.history.records[0].QuestionID)
	assert.True(t, env.history.records[0].IsCorrect)
}

func TestChangeLanguage_ClearsContentCache(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.session.Resolve(context.Background(), testQuestions(5), "", ""))

	_, err := env.session.RequestContent(context.Background(), models.ContentTheory)
	require.NoError(t, err)
	assert.Equal(t, 1, env.content.callCount())

	// Same key again is a memory hit
	_, err = env.session.RequestContent(context.Background(), models.ContentTheory)
	require.NoError(t, err)
	assert.Equal(t, 1, env.content.callCount())

	require.NoError(t, env.session.ChangeLanguage(context.Background(), models.LanguageEnglish))

	// After the switch the old content is gone and a new generation runs
	content, err := env.session.RequestContent(context.Background(), models.ContentTheory)
	require.NoError(t, err)
	assert.Equal(t, 2, env.content.callCount())
	assert.Contains(t, content, "en")
}

func TestRequestContent_SingleFlight(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.session.Resolve(context.Background(), testQuestions(5), "", ""))

	block := make(chan struct{})
	env.content.block = block

	firstDone := make(chan error, 1)
	go func() {
		_, err := env.session.RequestContent(context.Background(), models.ContentTheory)
		firstDone <- err
	}()

	// Wait until the first request is in flight
	require.Eventually(t, func() bool {
		return env.content.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := env.session.RequestContent(context.Background(), models.ContentExplanation)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrGenerationInFlight))

	close(block)
	require.NoError(t, <-firstDone)

	// The dropped request was not queued
	assert.Equal(t, 1, env.content.callCount())
}

func TestRequestContent_FailureClosesPanel(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.session.Resolve(context.Background(), testQuestions(5), "", ""))

	env.content.failErr = contextutils.WrapError(contextutils.ErrGenerationUnavailable, "all credentials failed")

	_, err := env.session.RequestContent(context.Background(), models.ContentExplanation)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrGenerationUnavailable))
	assert.Empty(t, env.session.State().ActivePanel)
}
