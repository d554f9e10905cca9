// Package services provides business logic services for the quiz backend.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"certquiz/internal/config"
	"certquiz/internal/models"
	"certquiz/internal/observability"
	contextutils "certquiz/internal/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GenerationClientInterface defines the interface for text generation
type GenerationClientInterface interface {
	// Generate sends a prompt to the endpoint and returns the generated text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Configured reports whether at least one credential is available.
	Configured() bool
}

// OpenAIRequest represents a request to the OpenAI-compatible API
type OpenAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Message represents a chat message in the API request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIResponse represents a response from the OpenAI-compatible API
type OpenAIResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

// Choice represents a choice in the API response
type Choice struct {
	Message Message `json:"message"`
}

// APIError represents an error response from the API
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// GenerationClient talks to an OpenAI-compatible endpoint with an ordered
// list of credentials. Credentials are tried strictly in order; the first
// response with non-blank content wins and later credentials are not
// consulted. Whitespace-only content counts as empty.
type GenerationClient struct {
	cfg         *config.Config
	logger      *observability.Logger
	httpClient  *http.Client
	credentials []models.Credential
}

// NewGenerationClientWithLogger creates a new generation client with the provided logger
func NewGenerationClientWithLogger(cfg *config.Config, logger *observability.Logger) *GenerationClient {
	// Instrumented HTTP client with a timeout slightly under the request
	// timeout so context cancellation wins. A zero or tiny configured
	// timeout falls back to the default rather than disabling the timeout.
	requestTimeout := cfg.GenAI.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = config.GenerationRequestTimeout
	}
	clientTimeout := requestTimeout - 5*time.Second
	if requestTimeout <= 5*time.Second {
		clientTimeout = requestTimeout
	}
	httpClient := &http.Client{
		Timeout: clientTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
	}

	return &GenerationClient{
		cfg:         cfg,
		logger:      logger,
		httpClient:  httpClient,
		credentials: cfg.GenAI.Credentials(),
	}
}

// Configured reports whether at least one credential is available.
func (c *GenerationClient) Configured() bool {
	return len(c.credentials) > 0
}

// Generate sends the prompt to the endpoint, failing over across the
// credential list in order. It returns ErrGenerationNotConfigured when no
// credentials exist and ErrGenerationUnavailable when every credential fails.
func (c *GenerationClient) Generate(ctx context.Context, prompt string) (result0 string, err error) {
	ctx, span := observability.TraceGenerationFunction(ctx, "generate",
		attribute.String("generation.model", c.cfg.GenAI.Model),
		attribute.Int("prompt.length", len(prompt)),
		attribute.Int("generation.credentials", len(c.credentials)),
	)
	defer observability.FinishSpan(span, &err)

	if prompt == "" {
		span.SetAttributes(attribute.String("call.result", "empty_prompt"))
		return "", contextutils.WrapError(contextutils.ErrInvalidInput, "prompt cannot be empty")
	}

	if len(c.credentials) == 0 {
		span.SetAttributes(attribute.String("call.result", "not_configured"))
		return "", contextutils.WrapError(contextutils.ErrGenerationNotConfigured, "no generation credentials configured")
	}

	var lastErr error
	for _, cred := range c.credentials {
		content, callErr := c.callEndpoint(ctx, cred, prompt)
		if callErr != nil {
			c.logger.Warn(ctx, "Generation attempt failed, trying next credential", map[string]interface{}{
				"credential": cred.Label,
				"error":      callErr.Error(),
			})
			lastErr = callErr
			continue
		}
		if strings.TrimSpace(content) == "" {
			c.logger.Warn(ctx, "Generation returned empty content, trying next credential", map[string]interface{}{
				"credential": cred.Label,
			})
			lastErr = contextutils.WrapError(contextutils.ErrEmptyGeneration, "endpoint returned empty content")
			continue
		}

		span.SetAttributes(
			attribute.String("call.result", "success"),
			attribute.String("credential.label", cred.Label),
			attribute.Int("content_length", len(content)),
		)
		return content, nil
	}

	span.SetAttributes(attribute.String("call.result", "exhausted"))
	return "", contextutils.WrapErrorf(contextutils.ErrGenerationUnavailable, "all %d credentials failed: %w", len(c.credentials), lastErr)
}

// callEndpoint makes a single request to the OpenAI-compatible API with one credential
func (c *GenerationClient) callEndpoint(ctx context.Context, cred models.Credential, prompt string) (result0 string, err error) {
	ctx, span := observability.TraceGenerationFunction(ctx, "call_endpoint",
		attribute.String("generation.model", c.cfg.GenAI.Model),
		observability.AttributeCredentialLabel(cred.Label),
	)
	defer observability.FinishSpan(span, &err)

	apiURL := c.cfg.GenAI.BaseURL + "/chat/completions"

	reqBody := OpenAIRequest{
		Model:       c.cfg.GenAI.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   c.cfg.GenAI.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "marshal_failed"))
		return "", contextutils.WrapErrorf(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "request_creation_failed"))
		return "", contextutils.WrapErrorf(err, "failed to create HTTP request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "certquiz/1.0")
	req.Header.Set("Authorization", "Bearer "+cred.APIKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		span.SetAttributes(attribute.String("call.result", "http_request_failed"), attribute.String("duration", duration.String()))
		return "", contextutils.WrapErrorf(err, "HTTP request failed after %v", duration)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn(ctx, "Failed to close response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "body_read_failed"))
		return "", contextutils.WrapErrorf(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		span.SetAttributes(attribute.String("call.result", "http_error"), attribute.Int("status_code", resp.StatusCode))
		return "", contextutils.WrapErrorf(contextutils.ErrGenerationUnavailable, "request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp OpenAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		span.SetAttributes(attribute.String("call.result", "json_unmarshal_failed"))
		return "", contextutils.WrapErrorf(err, "failed to parse response as JSON")
	}

	if apiResp.Error != nil {
		span.SetAttributes(attribute.String("call.result", "api_error"), attribute.String("error_type", apiResp.Error.Type))
		return "", contextutils.WrapErrorf(contextutils.ErrGenerationUnavailable, "API error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Choices) == 0 {
		span.SetAttributes(attribute.String("call.result", "no_choices"))
		return "", nil
	}

	content := apiResp.Choices[0].Message.Content
	span.SetAttributes(attribute.String("call.result", "success"), attribute.Int("content_length", len(content)), attribute.String("duration", duration.String()))
	return content, nil
}
