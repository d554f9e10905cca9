// Package config handles application configuration loading from a YAML file
// with environment variable overrides.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"certquiz/internal/models"
	contextutils "certquiz/internal/utils"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Local answer store configuration
	LocalStore LocalStoreConfig `json:"local_store" yaml:"local_store"`

	// Generation endpoint configuration
	GenAI GenAIConfig `json:"genai" yaml:"genai"`

	// Quiz behavior configuration
	Quiz QuizConfig `json:"quiz" yaml:"quiz"`

	// Country-based language detection
	GeoIP GeoIPConfig `json:"geoip" yaml:"geoip"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port          string   `json:"port" yaml:"port"`
	Debug         bool     `json:"debug" yaml:"debug"`
	LogLevel      string   `json:"log_level" yaml:"log_level"`
	SessionSecret string   `json:"session_secret" yaml:"session_secret"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins"`
	AppBaseURL    string   `json:"app_base_url" yaml:"app_base_url"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// LocalStoreConfig represents the local answer store configuration
type LocalStoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// GenAIConfig represents the text-generation endpoint configuration.
// APIKeys is the ordered failover list; APIKey is the single-key fallback
// used when the list is empty.
type GenAIConfig struct {
	BaseURL        string        `json:"base_url" yaml:"base_url"`
	Model          string        `json:"model" yaml:"model"`
	APIKeys        []string      `json:"api_keys" yaml:"api_keys"`
	APIKey         string        `json:"api_key" yaml:"api_key"`
	MaxTokens      int           `json:"max_tokens" yaml:"max_tokens"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// Credentials assembles the ordered credential list for the generation
// client: the api_keys list first, falling back to the single api_key.
// An empty result means generation is not configured.
func (g *GenAIConfig) Credentials() []models.Credential {
	creds := make([]models.Credential, 0, len(g.APIKeys))
	for i, key := range g.APIKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		creds = append(creds, models.Credential{
			Label:  "key " + strconv.Itoa(i+1),
			APIKey: key,
		})
	}
	if len(creds) > 0 {
		return creds
	}
	if key := strings.TrimSpace(g.APIKey); key != "" {
		return []models.Credential{{Label: "key 1", APIKey: key}}
	}
	return nil
}

// QuizConfig represents quiz behavior configuration
type QuizConfig struct {
	QuestionPageSize int    `json:"question_page_size" yaml:"question_page_size"`
	DefaultLanguage  string `json:"default_language" yaml:"default_language"`
	AnswerStoreKey   string `json:"answer_store_key" yaml:"answer_store_key"`
}

// GeoIPConfig represents country-based language detection configuration
type GeoIPConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	Endpoint    string        `json:"endpoint" yaml:"endpoint"`
	HomeCountry string        `json:"home_country" yaml:"home_country"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`
	Protocol       string            `json:"protocol" yaml:"protocol"` // "grpc" or "http"
	Insecure       bool              `json:"insecure" yaml:"insecure"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	ServiceName    string            `json:"service_name" yaml:"service_name"`
	ServiceVersion string            `json:"service_version" yaml:"service_version"`
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"`
}

// DefaultLanguage returns the configured default content language, falling
// back to Vietnamese when unset or unknown.
func (c *Config) DefaultLanguage() models.Language {
	lang := models.Language(c.Quiz.DefaultLanguage)
	if !lang.Valid() {
		return models.LanguageVietnamese
	}
	return lang
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// applyDefaults fills in values a config file is allowed to omit.
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:5173"}
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}
	if c.LocalStore.Path == "" {
		c.LocalStore.Path = DefaultLocalStorePath
	}
	if c.GenAI.BaseURL == "" {
		c.GenAI.BaseURL = DefaultGenerationBaseURL
	}
	if c.GenAI.Model == "" {
		c.GenAI.Model = DefaultGenerationModel
	}
	if c.GenAI.MaxTokens == 0 {
		c.GenAI.MaxTokens = DefaultGenerationMaxTokens
	}
	if c.GenAI.RequestTimeout == 0 {
		c.GenAI.RequestTimeout = GenerationRequestTimeout
	}
	if c.Quiz.QuestionPageSize == 0 {
		c.Quiz.QuestionPageSize = QuestionPageSize
	}
	if c.Quiz.DefaultLanguage == "" {
		c.Quiz.DefaultLanguage = string(models.LanguageVietnamese)
	}
	if c.Quiz.AnswerStoreKey == "" {
		c.Quiz.AnswerStoreKey = AnswerStoreKey
	}
	if c.GeoIP.Endpoint == "" {
		c.GeoIP.Endpoint = DefaultGeoIPEndpoint
	}
	if c.GeoIP.HomeCountry == "" {
		c.GeoIP.HomeCountry = DefaultHomeCountry
	}
	if c.GeoIP.Timeout == 0 {
		c.GeoIP.Timeout = GeoIPTimeout
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				// time.Duration is an int64 underneath; accept duration syntax for it
				if field.Type() == reflect.TypeOf(time.Duration(0)) {
					if d, err := time.ParseDuration(envVal); err == nil {
						field.SetInt(int64(d))
					}
					continue
				}
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Handle string slices (like GENAI_API_KEYS)
				if field.Type().Elem().Kind() == reflect.String {
					parts := strings.Split(envVal, ",")
					for i := range parts {
						parts[i] = strings.TrimSpace(parts[i])
					}
					field.Set(reflect.ValueOf(parts))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file with potential local overrides
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv("CERTQUIZ_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	return loadConfigFromFile("config.yaml")
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
