package services

import (
	"context"
	"database/sql"
	"encoding/json"

	"certquiz/internal/models"
	"certquiz/internal/observability"
	contextutils "certquiz/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// QuestionRepository abstracts paged access to the question bank.
type QuestionRepository interface {
	// FetchPage returns up to limit questions starting at offset.
	FetchPage(ctx context.Context, offset, limit int) ([]models.Question, error)
}

// QuestionServiceInterface defines the interface for question bank access
type QuestionServiceInterface interface {
	// LoadAll returns the entire question bank in numeric ID order.
	LoadAll(ctx context.Context) ([]models.Question, error)
}

// QuestionService loads the full question bank through fixed-size pages.
// Paging continues until a short page; the result is sorted by numeric ID.
type QuestionService struct {
	repo     QuestionRepository
	pageSize int
	logger   *observability.Logger
}

// NewQuestionServiceWithLogger creates a new question service with the provided logger
func NewQuestionServiceWithLogger(repo QuestionRepository, pageSize int, logger *observability.Logger) *QuestionService {
	return &QuestionService{
		repo:     repo,
		pageSize: pageSize,
		logger:   logger,
	}
}

// LoadAll fetches every question page by page.
func (s *QuestionService) LoadAll(ctx context.Context) (result0 []models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "load_all",
		attribute.Int("page_size", s.pageSize),
	)
	defer observability.FinishSpan(span, &err)

	var all []models.Question
	offset := 0
	pages := 0
	for {
		page, err := s.repo.FetchPage(ctx, offset, s.pageSize)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to fetch question page at offset %d", offset)
		}
		pages++
		all = append(all, page...)

		// A short page means the bank is exhausted
		if len(page) < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	models.SortQuestionsByNumericID(all)

	s.logger.Info(ctx, "Question bank loaded", map[string]interface{}{
		"questions": len(all),
		"pages":     pages,
	})
	span.SetAttributes(attribute.Int("questions.count", len(all)), attribute.Int("questions.pages", pages))

	if len(all) == 0 {
		return nil, contextutils.WrapError(contextutils.ErrNoQuestionsAvailable, "question bank is empty")
	}

	return all, nil
}

// SQLQuestionRepository reads questions from PostgreSQL.
type SQLQuestionRepository struct {
	db *sql.DB
}

// NewSQLQuestionRepository creates a new SQL-backed question repository
func NewSQLQuestionRepository(db *sql.DB) *SQLQuestionRepository {
	return &SQLQuestionRepository{db: db}
}

// FetchPage returns up to limit questions starting at offset, ordered by ID.
func (r *SQLQuestionRepository) FetchPage(ctx context.Context, offset, limit int) (result0 []models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "fetch_page",
		observability.AttributeOffset(offset),
		observability.AttributeLimit(limit),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, topic, question, options, correct_answer, is_multiselect, discussion_link, created_at
		 FROM questions
		 ORDER BY id
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query questions")
	}
	defer func() {
		_ = rows.Close()
	}()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var optionsRaw []byte
		if err := rows.Scan(&q.ID, &q.Topic, &q.Question, &optionsRaw, &q.CorrectAnswer, &q.IsMultiselect, &q.DiscussionLink, &q.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question row")
		}
		if len(optionsRaw) > 0 {
			if err := json.Unmarshal(optionsRaw, &q.Options); err != nil {
				return nil, contextutils.WrapErrorf(err, "failed to decode options for question %s", q.ID)
			}
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate question rows")
	}

	span.SetAttributes(attribute.Int("questions.count", len(questions)))
	return questions, nil
}
