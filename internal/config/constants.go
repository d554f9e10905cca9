package config

import "time"

// Question loading
const (
	// QuestionPageSize is the number of question rows fetched per page when
	// loading the full question bank. Loading stops at the first short page.
	QuestionPageSize = 1000
)

// Generation
const (
	// DefaultGenerationBaseURL is the OpenAI-compatible endpoint used when
	// no base URL is configured.
	DefaultGenerationBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	// DefaultGenerationModel is the model requested from the endpoint.
	DefaultGenerationModel = "gemini-2.5-flash"

	// DefaultGenerationMaxTokens caps generated content length.
	DefaultGenerationMaxTokens = 2000

	// GenerationRequestTimeout bounds a single generation HTTP request.
	GenerationRequestTimeout = 60 * time.Second

	// SentinelNoResponse is the legacy placeholder older cache rows carry
	// when generation produced nothing. It is never served and never written.
	SentinelNoResponse = "No response generated"
)

// Local answer store
const (
	// AnswerStoreKey is the key under which the answer map is persisted.
	AnswerStoreKey = "aws_quiz_answers"

	// DefaultLocalStorePath is the on-disk location of the answer store.
	DefaultLocalStorePath = "certquiz.db"
)

// Language detection
const (
	// DefaultGeoIPEndpoint returns the caller's country by IP.
	DefaultGeoIPEndpoint = "https://api.country.is"

	// DefaultHomeCountry keeps the Vietnamese default; any other country
	// switches the session to English.
	DefaultHomeCountry = "VN"

	// GeoIPTimeout bounds the country lookup. Failures keep the default
	// language.
	GeoIPTimeout = 5 * time.Second
)

// Sessions
const (
	// SessionName is the cookie session name.
	SessionName = "certquiz-session"

	// SessionMaxAge is the cookie session lifetime.
	SessionMaxAge = 7 * 24 * time.Hour

	// SessionPath scopes the session cookie.
	SessionPath = "/"

	// SessionHTTPOnly keeps the session cookie out of script reach.
	SessionHTTPOnly = true
)

// Server timeouts
const (
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 120 * time.Second
	ServerIdleTimeout     = 60 * time.Second
	ServerShutdownTimeout = 10 * time.Second
)

// Database
const (
	// DatabaseConnMaxLifetime recycles pooled connections.
	DatabaseConnMaxLifetime = 5 * time.Minute
)

// DefaultCSP is the Content-Security-Policy header applied by the secure
// middleware.
const DefaultCSP = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'"
