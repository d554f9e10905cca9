package services

import (
	"context"
	"errors"
	"testing"

	"certquiz/internal/config"
	"certquiz/internal/models"
	contextutils "certquiz/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCache struct {
	entries   map[string]string
	reads     int
	writes    int
	readErr   error
	writeErr  error
	lastWrite string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]string)}
}

func (c *recordingCache) Get(_ context.Context, questionID string, language models.Language, kind models.ContentKind) (string, error) {
	c.reads++
	if c.readErr != nil {
		return "", c.readErr
	}
	return c.entries[models.ContentCacheKey(kind, questionID, language)], nil
}

func (c *recordingCache) Upsert(_ context.Context, questionID string, language models.Language, kind models.ContentKind, content string) error {
	c.writes++
	if c.writeErr != nil {
		return c.writeErr
	}
	key := models.ContentCacheKey(kind, questionID, language)
	c.entries[key] = content
	c.lastWrite = content
	return nil
}

type scriptedClient struct {
	calls   int
	content string
	err     error
}

func (c *scriptedClient) Generate(_ context.Context, _ string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.content, nil
}

func (c *scriptedClient) Configured() bool { return true }

func contentTestQuestion() *models.Question {
	return &models.Question{
		ID:            "42",
		Question:      "Which storage class suits infrequent access?",
		Options:       []string{"S3 Standard", "S3 Standard-IA", "S3 Glacier", "EBS"},
		CorrectAnswer: "B",
	}
}

func TestContentService_CacheIdempotence(t *testing.T) {
	cache := newRecordingCache()
	client := &scriptedClient{content: "generated theory"}
	svc := NewContentServiceWithLogger(cache, client, testLogger())

	q := contentTestQuestion()

	first, err := svc.GetContent(context.Background(), models.ContentTheory, q, models.LanguageVietnamese)
	require.NoError(t, err)
	assert.Equal(t, "generated theory", first)

	second, err := svc.GetContent(context.Background(), models.ContentTheory, q, models.LanguageVietnamese)
	require.NoError(t, err)
	assert.Equal(t, "generated theory", second)

	// Two lookups, one generation, one cache write
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, cache.writes)
}

func TestContentService_SentinelNotCachedAndRetried(t *testing.T) {
	cache := newRecordingCache()
	client := &scriptedClient{content: config.SentinelNoResponse}
	svc := NewContentServiceWithLogger(cache, client, testLogger())

	q := contentTestQuestion()

	_, err := svc.GetContent(context.Background(), models.ContentExplanation, q, models.LanguageEnglish)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrEmptyGeneration))
	assert.Equal(t, 0, cache.writes)

	// A later call regenerates instead of serving the sentinel
	client.content = "real explanation"
	content, err := svc.GetContent(context.Background(), models.ContentExplanation, q, models.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, "real explanation", content)
	assert.Equal(t, 2, client.calls)
}

func TestContentService_CacheReadFailureIsMiss(t *testing.T) {
	cache := newRecordingCache()
	cache.readErr = errors.New("cache down")
	client := &scriptedClient{content: "fresh content"}
	svc := NewContentServiceWithLogger(cache, client, testLogger())

	content, err := svc.GetContent(context.Background(), models.ContentTheory, contentTestQuestion(), models.LanguageVietnamese)
	require.NoError(t, err)
	assert.Equal(t, "fresh content", content)
	assert.Equal(t, 1, client.calls)
}

func TestContentService_CacheWriteFailureDropsQuietly(t *testing.T) {
	cache := newRecordingCache()
	cache.writeErr = errors.New("cache down")
	client := &scriptedClient{content: "fresh content"}
	svc := NewContentServiceWithLogger(cache, client, testLogger())

	// The generated content is still served
	content, err := svc.GetContent(context.Background(), models.ContentTheory, contentTestQuestion(), models.LanguageVietnamese)
	require.NoError(t, err)
	assert.Equal(t, "fresh content", content)
}

func TestContentService_GenerationErrorPropagates(t *testing.T) {
	cache := newRecordingCache()
	client := &scriptedClient{err: contextutils.WrapError(contextutils.ErrGenerationUnavailable, "all credentials failed")}
	svc := NewContentServiceWithLogger(cache, client, testLogger())

	_, err := svc.GetContent(context.Background(), models.ContentExplanation, contentTestQuestion(), models.LanguageVietnamese)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrGenerationUnavailable))
	assert.Equal(t, 0, cache.writes)
}

func TestContentService_RejectsUnknownKindAndLanguage(t *testing.T) {
	svc := NewContentServiceWithLogger(newRecordingCache(), &scriptedClient{content: "x"}, testLogger())

	_, err := svc.GetContent(context.Background(), models.ContentKind("summary"), contentTestQuestion(), models.LanguageVietnamese)
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))

	_, err = svc.GetContent(context.Background(), models.ContentTheory, contentTestQuestion(), models.Language("fr"))
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))
}
