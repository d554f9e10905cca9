package services

import (
	"context"
	"database/sql"

	"certquiz/internal/models"
	"certquiz/internal/observability"
	contextutils "certquiz/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// HistoryServiceInterface defines the interface for answer submission history
type HistoryServiceInterface interface {
	// Record stores one answer submission.
	Record(ctx context.Context, userID, questionID, answer string, isCorrect bool) error

	// List returns every submission for userID, newest first.
	List(ctx context.Context, userID string) ([]models.AnswerSubmission, error)

	// Clear deletes all submissions for userID and returns how many.
	Clear(ctx context.Context, userID string) (int64, error)
}

// HistoryService persists and serves per-user answer submission history.
type HistoryService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewHistoryServiceWithLogger creates a new history service with the provided logger
func NewHistoryServiceWithLogger(db *sql.DB, logger *observability.Logger) *HistoryService {
	return &HistoryService{db: db, logger: logger}
}

// Record stores one answer submission.
func (s *HistoryService) Record(ctx context.Context, userID, questionID, answer string, isCorrect bool) (err error) {
	ctx, span := observability.TraceHistoryFunction(ctx, "record",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionID(questionID),
		attribute.Bool("answer.correct", isCorrect),
	)
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_answers (user_id, question_id, answer, is_correct, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		userID, questionID, answer, isCorrect)
	if err != nil {
		return contextutils.WrapError(err, "failed to record answer submission")
	}
	return nil
}

// List returns every submission for userID, newest first.
func (s *HistoryService) List(ctx context.Context, userID string) (result0 []models.AnswerSubmission, err error) {
	ctx, span := observability.TraceHistoryFunction(ctx, "list",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, question_id, answer, is_correct, created_at
		 FROM user_answers
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query answer history")
	}
	defer func() {
		_ = rows.Close()
	}()

	var submissions []models.AnswerSubmission
	for rows.Next() {
		var sub models.AnswerSubmission
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.QuestionID, &sub.Answer, &sub.IsCorrect, &sub.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan answer submission")
		}
		submissions = append(submissions, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate answer history")
	}

	span.SetAttributes(attribute.Int("history.count", len(submissions)))
	return submissions, nil
}

// Clear deletes all submissions for userID.
func (s *HistoryService) Clear(ctx context.Context, userID string) (result0 int64, err error) {
	ctx, span := observability.TraceHistoryFunction(ctx, "clear",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM user_answers WHERE user_id = $1`, userID)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to clear answer history")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to count cleared submissions")
	}

	s.logger.Info(ctx, "Answer history cleared", map[string]interface{}{
		"user_id": userID,
		"deleted": rows,
	})
	span.SetAttributes(attribute.Int64("history.deleted", rows))
	return rows, nil
}

// GroupSubmissionsByQuestion groups submissions by question ID, preserving
// newest-first order within each group and ordering groups by their latest
// submission.
func GroupSubmissionsByQuestion(submissions []models.AnswerSubmission) ([]string, map[string][]models.AnswerSubmission) {
	grouped := make(map[string][]models.AnswerSubmission)
	var order []string
	for _, sub := range submissions {
		if _, seen := grouped[sub.QuestionID]; !seen {
			order = append(order, sub.QuestionID)
		}
		grouped[sub.QuestionID] = append(grouped[sub.QuestionID], sub)
	}
	return order, grouped
}
