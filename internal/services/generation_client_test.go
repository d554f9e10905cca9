package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"certquiz/internal/config"
	"certquiz/internal/observability"
	contextutils "certquiz/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func clientConfig(baseURL string, keys ...string) *config.Config {
	cfg := &config.Config{}
	cfg.GenAI.BaseURL = baseURL
	cfg.GenAI.Model = config.DefaultGenerationModel
	cfg.GenAI.MaxTokens = 256
	cfg.GenAI.RequestTimeout = 10 * time.Second
	cfg.GenAI.APIKeys = keys
	return cfg
}

func completionResponse(content string) string {
	resp := OpenAIResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: content}}}}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func TestGenerationClient_OrderedFailover(t *testing.T) {
	var mu sync.Mutex
	var attempts []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		mu.Lock()
		attempts = append(attempts, auth)
		count := len(attempts)
		mu.Unlock()

		// First two credentials fail, third succeeds
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("generated text")))
	}))
	defer server.Close()

	client := NewGenerationClientWithLogger(clientConfig(server.URL, "key-a", "key-b", "key-c"), testLogger())

	content, err := client.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "generated text", content)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, attempts, 3)
	assert.Equal(t, []string{"Bearer key-a", "Bearer key-b", "Bearer key-c"}, attempts)
}

func TestGenerationClient_ShortCircuitsOnSuccess(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("first answer")))
	}))
	defer server.Close()

	client := NewGenerationClientWithLogger(clientConfig(server.URL, "key-a", "key-b", "key-c"), testLogger())

	content, err := client.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "first answer", content)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, attempts)
}

func TestGenerationClient_ExhaustionNoRetry(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewGenerationClientWithLogger(clientConfig(server.URL, "key-a", "key-b"), testLogger())

	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrGenerationUnavailable))

	// No credential is tried twice in one call
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestGenerationClient_EmptyContentTriesNextCredential(t *testing.T) {
	// Whitespace-only content is as useless as none at all; both must fail
	// over instead of short-circuiting the credential list.
	blanks := map[string]string{
		"empty":           "",
		"whitespace only": "   \n\t  ",
	}

	for name, blank := range blanks {
		t.Run(name, func(t *testing.T) {
			var mu sync.Mutex
			attempts := 0

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				mu.Lock()
				attempts++
				count := attempts
				mu.Unlock()

				w.Header().Set("Content-Type", "application/json")
				if count == 1 {
					_, _ = w.Write([]byte(completionResponse(blank)))
					return
				}
				_, _ = w.Write([]byte(completionResponse("second key answer")))
			}))
			defer server.Close()

			client := NewGenerationClientWithLogger(clientConfig(server.URL, "key-a", "key-b"), testLogger())

			content, err := client.Generate(context.Background(), "prompt")
			require.NoError(t, err)
			assert.Equal(t, "second key answer", content)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 2, attempts)
		})
	}
}

func TestGenerationClient_NotConfigured(t *testing.T) {
	client := NewGenerationClientWithLogger(clientConfig("http://localhost:0"), testLogger())

	assert.False(t, client.Configured())

	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrGenerationNotConfigured))
}

func TestGenerationClient_SingleKeyFallback(t *testing.T) {
	cfg := clientConfig("http://localhost:0")
	cfg.GenAI.APIKey = "solo-key"

	client := NewGenerationClientWithLogger(cfg, testLogger())
	assert.True(t, client.Configured())
}

func TestGenerationClient_ZeroRequestTimeoutStillBounded(t *testing.T) {
	cfg := clientConfig("http://localhost:0", "key-a")
	// Config built without defaults applied
	cfg.GenAI.RequestTimeout = 0

	client := NewGenerationClientWithLogger(cfg, testLogger())
	assert.Greater(t, int64(client.httpClient.Timeout), int64(0))
	assert.Equal(t, config.GenerationRequestTimeout-5*time.Second, client.httpClient.Timeout)
}
