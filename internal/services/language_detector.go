package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"certquiz/internal/config"
	"certquiz/internal/models"
	"certquiz/internal/observability"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LanguageDetectorInterface defines the interface for initial language detection
type LanguageDetectorInterface interface {
	// Detect picks the initial content language by caller country. Lookup
	// failures keep the default language.
	Detect(ctx context.Context) models.Language
}

// LanguageDetector picks the initial content language from the caller's
// country. Visitors outside the home country get English; everyone else,
// and every lookup failure, gets the configured default.
type LanguageDetector struct {
	cfg        *config.Config
	logger     *observability.Logger
	httpClient *http.Client
}

// NewLanguageDetectorWithLogger creates a new language detector with the provided logger
func NewLanguageDetectorWithLogger(cfg *config.Config, logger *observability.Logger) *LanguageDetector {
	return &LanguageDetector{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.GeoIP.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
			),
		},
	}
}

type countryResponse struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
}

// Detect returns the language for a new session.
func (d *LanguageDetector) Detect(ctx context.Context) models.Language {
	fallback := d.cfg.DefaultLanguage()

	if !d.cfg.GeoIP.Enabled {
		return fallback
	}

	ctx, span := observability.TraceSessionFunction(ctx, "detect_language")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, "GET", d.cfg.GeoIP.Endpoint, nil)
	if err != nil {
		span.SetAttributes(attribute.String("detect.result", "request_creation_failed"))
		return fallback
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Warn(ctx, "Country lookup failed, keeping default language", map[string]interface{}{
			"error": err.Error(),
		})
		span.SetAttributes(attribute.String("detect.result", "lookup_failed"))
		return fallback
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		span.SetAttributes(attribute.String("detect.result", "http_error"), attribute.Int("status_code", resp.StatusCode))
		return fallback
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetAttributes(attribute.String("detect.result", "body_read_failed"))
		return fallback
	}

	var country countryResponse
	if err := json.Unmarshal(body, &country); err != nil {
		span.SetAttributes(attribute.String("detect.result", "json_unmarshal_failed"))
		return fallback
	}

	span.SetAttributes(attribute.String("detect.country", country.Country))

	if country.Country != "" && country.Country != d.cfg.GeoIP.HomeCountry {
		span.SetAttributes(attribute.String("detect.result", "foreign"))
		return models.LanguageEnglish
	}

	span.SetAttributes(attribute.String("detect.result", "home"))
	return fallback
}
