package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"certquiz/internal/config"
	"certquiz/internal/models"
	"certquiz/internal/observability"
	contextutils "certquiz/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ContentCacheRepository persists generated study content keyed by
// (question_id, language, type).
type ContentCacheRepository struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewContentCacheRepository creates a new content cache repository
func NewContentCacheRepository(db *sql.DB, logger *observability.Logger) *ContentCacheRepository {
	return &ContentCacheRepository{db: db, logger: logger}
}

// Get returns the newest cached content for the key, or "" on a miss.
// Rows holding empty content or the legacy placeholder are treated as misses
// so they get regenerated.
func (r *ContentCacheRepository) Get(ctx context.Context, questionID string, language models.Language, kind models.ContentKind) (result0 string, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "cache_get",
		observability.AttributeQuestionID(questionID),
		observability.AttributeLanguage(language),
		observability.AttributeContentKind(kind),
	)
	defer observability.FinishSpan(span, &err)

	var content string
	err = r.db.QueryRowContext(ctx,
		`SELECT content FROM ai_cache
		 WHERE question_id = $1 AND language = $2 AND type = $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		questionID, string(language), string(kind)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.String("cache.result", "miss"))
		return "", nil
	}
	if err != nil {
		return "", contextutils.WrapError(err, "failed to query content cache")
	}

	if strings.TrimSpace(content) == "" || content == config.SentinelNoResponse {
		span.SetAttributes(attribute.String("cache.result", "invalid"))
		return "", nil
	}

	span.SetAttributes(attribute.String("cache.result", "hit"), attribute.Int("content_length", len(content)))
	return content, nil
}

// Upsert stores content for the key, replacing any existing row.
func (r *ContentCacheRepository) Upsert(ctx context.Context, questionID string, language models.Language, kind models.ContentKind, content string) (err error) {
	ctx, span := observability.TraceContentFunction(ctx, "cache_upsert",
		observability.AttributeQuestionID(questionID),
		observability.AttributeLanguage(language),
		observability.AttributeContentKind(kind),
		attribute.Int("content_length", len(content)),
	)
	defer observability.FinishSpan(span, &err)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO ai_cache (question_id, language, type, content, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (question_id, language, type)
		 DO UPDATE SET content = EXCLUDED.content, created_at = NOW()`,
		questionID, string(language), string(kind), content)
	if err != nil {
		return contextutils.WrapError(err, "failed to upsert content cache")
	}
	return nil
}

// Clear removes cached content. With an empty questionID it clears the whole
// cache, otherwise only rows for that question.
func (r *ContentCacheRepository) Clear(ctx context.Context, questionID string) (result0 int64, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "cache_clear",
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	var res sql.Result
	if questionID == "" {
		res, err = r.db.ExecContext(ctx, `DELETE FROM ai_cache`)
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM ai_cache WHERE question_id = $1`, questionID)
	}
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to clear content cache")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to count cleared rows")
	}
	span.SetAttributes(attribute.Int64("cache.cleared", rows))
	return rows, nil
}
