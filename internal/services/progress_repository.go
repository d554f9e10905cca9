package services

import (
	"context"
	"database/sql"
	"errors"

	"certquiz/internal/models"
	"certquiz/internal/observability"
	contextutils "certquiz/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ProgressStore abstracts remote progress pointer storage.
type ProgressStore interface {
	// Get returns the stored progress for userID, or nil when none exists.
	Get(ctx context.Context, userID string) (*models.UserProgress, error)

	// Save upserts the progress pointer for userID.
	Save(ctx context.Context, userID string, lastQuestionIndex int) error
}

// ProgressRepository persists per-user progress pointers in PostgreSQL.
type ProgressRepository struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *sql.DB, logger *observability.Logger) *ProgressRepository {
	return &ProgressRepository{db: db, logger: logger}
}

// Get returns the stored progress for userID. A missing row is not an error.
func (r *ProgressRepository) Get(ctx context.Context, userID string) (result0 *models.UserProgress, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "progress_get",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	var progress models.UserProgress
	err = r.db.QueryRowContext(ctx,
		`SELECT user_id, last_question_index, updated_at
		 FROM user_progress
		 WHERE user_id = $1`,
		userID).Scan(&progress.UserID, &progress.LastQuestionIndex, &progress.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.String("progress.result", "absent"))
		return nil, nil
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query user progress")
	}

	span.SetAttributes(attribute.Int("progress.last_question_index", progress.LastQuestionIndex))
	return &progress, nil
}

// Save upserts the progress pointer, keyed on user_id.
func (r *ProgressRepository) Save(ctx context.Context, userID string, lastQuestionIndex int) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "progress_save",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionIndex(lastQuestionIndex),
	)
	defer observability.FinishSpan(span, &err)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_progress (user_id, last_question_index, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id)
		 DO UPDATE SET last_question_index = EXCLUDED.last_question_index, updated_at = NOW()`,
		userID, lastQuestionIndex)
	if err != nil {
		return contextutils.WrapError(err, "failed to save user progress")
	}
	return nil
}
