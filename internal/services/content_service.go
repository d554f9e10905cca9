package services

import (
	"context"
	"strings"

	"certquiz/internal/config"
	"certquiz/internal/models"
	"certquiz/internal/observability"
	contextutils "certquiz/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ContentCache abstracts cached study content storage.
type ContentCache interface {
	Get(ctx context.Context, questionID string, language models.Language, kind models.ContentKind) (string, error)
	Upsert(ctx context.Context, questionID string, language models.Language, kind models.ContentKind, content string) error
}

// ContentServiceInterface defines the interface for AI study content
type ContentServiceInterface interface {
	// GetContent returns the study content for a question, serving from the
	// cache when possible and generating otherwise.
	GetContent(ctx context.Context, kind models.ContentKind, question *models.Question, language models.Language) (string, error)
}

// ContentService serves study content with a read-through database cache.
// Cache read failures degrade to generation; cache write failures are logged
// and dropped so a broken cache never blocks content delivery.
type ContentService struct {
	cache  ContentCache
	client GenerationClientInterface
	logger *observability.Logger
}

// NewContentServiceWithLogger creates a new content service with the provided logger
func NewContentServiceWithLogger(cache ContentCache, client GenerationClientInterface, logger *observability.Logger) *ContentService {
	return &ContentService{
		cache:  cache,
		client: client,
		logger: logger,
	}
}

// GetContent returns study content for a question and language.
func (s *ContentService) GetContent(ctx context.Context, kind models.ContentKind, question *models.Question, language models.Language) (result0 string, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "get_content",
		observability.AttributeQuestion(question),
		observability.AttributeLanguage(language),
		observability.AttributeContentKind(kind),
	)
	defer observability.FinishSpan(span, &err)

	if !kind.Valid() {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown content kind %q", kind)
	}
	if !language.Valid() {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown language %q", language)
	}

	cached, cacheErr := s.cache.Get(ctx, question.ID, language, kind)
	if cacheErr != nil {
		// A failing cache read is a miss, not a failure
		s.logger.Warn(ctx, "Content cache read failed, regenerating", map[string]interface{}{
			"question_id": question.ID,
			"language":    string(language),
			"type":        string(kind),
			"error":       cacheErr.Error(),
		})
	}
	if cached != "" {
		s.logger.Debug(ctx, "Content cache hit", map[string]interface{}{
			"question_id": question.ID,
			"language":    string(language),
			"type":        string(kind),
		})
		span.SetAttributes(attribute.String("content.source", "cache"))
		return cached, nil
	}

	s.logger.Info(ctx, "Content cache miss, generating", map[string]interface{}{
		"question_id": question.ID,
		"language":    string(language),
		"type":        string(kind),
	})

	prompt := BuildPrompt(kind, question, language)
	content, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(content) == "" || content == config.SentinelNoResponse {
		span.SetAttributes(attribute.String("content.source", "empty"))
		return "", contextutils.WrapErrorf(contextutils.ErrEmptyGeneration, "no content generated for question %s", question.ID)
	}

	if writeErr := s.cache.Upsert(ctx, question.ID, language, kind, content); writeErr != nil {
		s.logger.Warn(ctx, "Failed to cache generated content", map[string]interface{}{
			"question_id": question.ID,
			"language":    string(language),
			"type":        string(kind),
			"error":       writeErr.Error(),
		})
	}

	span.SetAttributes(attribute.String("content.source", "generated"), attribute.Int("content_length", len(content)))
	return content, nil
}
