package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"certquiz/internal/models"
	contextutils "certquiz/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagedRepo struct {
	questions []models.Question
	fetches   int
	err       error
}

func (r *pagedRepo) FetchPage(_ context.Context, offset, limit int) ([]models.Question, error) {
	r.fetches++
	if r.err != nil {
		return nil, r.err
	}
	if offset >= len(r.questions) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.questions) {
		end = len(r.questions)
	}
	return r.questions[offset:end], nil
}

func bankOfSize(n int) []models.Question {
	questions := make([]models.Question, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, models.Question{ID: strconv.Itoa(i)})
	}
	return questions
}

func TestQuestionService_PaginationTerminates(t *testing.T) {
	repo := &pagedRepo{questions: bankOfSize(2437)}
	svc := NewQuestionServiceWithLogger(repo, 1000, testLogger())

	all, err := svc.LoadAll(context.Background())
	require.NoError(t, err)

	// Pages of [1000, 1000, 437]: exactly 3 fetches, 2437 records
	assert.Equal(t, 3, repo.fetches)
	assert.Len(t, all, 2437)
}

func TestQuestionService_ExactPageBoundary(t *testing.T) {
	repo := &pagedRepo{questions: bankOfSize(2000)}
	svc := NewQuestionServiceWithLogger(repo, 1000, testLogger())

	all, err := svc.LoadAll(context.Background())
	require.NoError(t, err)

	// A final empty page is needed to observe the short page
	assert.Equal(t, 3, repo.fetches)
	assert.Len(t, all, 2000)
}

func TestQuestionService_NumericSort(t *testing.T) {
	repo := &pagedRepo{questions: []models.Question{
		{ID: "10"}, {ID: "2"}, {ID: "100"}, {ID: "1"}, {ID: "21"},
	}}
	svc := NewQuestionServiceWithLogger(repo, 1000, testLogger())

	all, err := svc.LoadAll(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(all))
	for _, q := range all {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"1", "2", "10", "21", "100"}, ids)
}

func TestQuestionService_EmptyBankFails(t *testing.T) {
	repo := &pagedRepo{}
	svc := NewQuestionServiceWithLogger(repo, 1000, testLogger())

	_, err := svc.LoadAll(context.Background())
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrNoQuestionsAvailable))
}

func TestQuestionService_FetchErrorPropagates(t *testing.T) {
	repo := &pagedRepo{err: errors.New("connection refused")}
	svc := NewQuestionServiceWithLogger(repo, 1000, testLogger())

	_, err := svc.LoadAll(context.Background())
	require.Error(t, err)
}
