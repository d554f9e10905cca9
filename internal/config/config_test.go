package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"certquiz/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewConfig_LoadsYAMLAndAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "9090"
database:
  url: "postgres://localhost/certquiz_test"
`)
	t.Setenv("CERTQUIZ_CONFIG_FILE", path)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/certquiz_test", cfg.Database.URL)

	// Omitted values fall back to defaults
	assert.Equal(t, DefaultGenerationBaseURL, cfg.GenAI.BaseURL)
	assert.Equal(t, DefaultGenerationModel, cfg.GenAI.Model)
	assert.Equal(t, QuestionPageSize, cfg.Quiz.QuestionPageSize)
	assert.Equal(t, AnswerStoreKey, cfg.Quiz.AnswerStoreKey)
	assert.Equal(t, models.LanguageVietnamese, cfg.DefaultLanguage())
}

func TestNewConfig_EnvOverridesYAML(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "9090"
genai:
  api_key: "from-yaml"
  request_timeout: 60s
`)
	t.Setenv("CERTQUIZ_CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("GENAI_API_KEYS", "env-key-1, env-key-2")
	t.Setenv("GENAI_REQUEST_TIMEOUT", "30s")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, []string{"env-key-1", "env-key-2"}, cfg.GenAI.APIKeys)
	assert.Equal(t, 30*time.Second, cfg.GenAI.RequestTimeout)
}

func TestCredentials_OrderedListWithFallback(t *testing.T) {
	g := &GenAIConfig{APIKeys: []string{"alpha", " ", "beta"}}

	creds := g.Credentials()
	require.Len(t, creds, 2)
	assert.Equal(t, "alpha", creds[0].APIKey)
	assert.Equal(t, "beta", creds[1].APIKey)
	// Labels keep the configured position for log correlation
	assert.Equal(t, "key 1", creds[0].Label)
	assert.Equal(t, "key 3", creds[1].Label)
}

func TestCredentials_SingleKeyFallback(t *testing.T) {
	g := &GenAIConfig{APIKey: "  solo  "}

	creds := g.Credentials()
	require.Len(t, creds, 1)
	assert.Equal(t, "solo", creds[0].APIKey)
}

func TestCredentials_EmptyMeansNotConfigured(t *testing.T) {
	g := &GenAIConfig{}
	assert.Nil(t, g.Credentials())
}

func TestDefaultLanguage_UnknownFallsBackToVietnamese(t *testing.T) {
	cfg := &Config{}
	cfg.Quiz.DefaultLanguage = "fr"
	assert.Equal(t, models.LanguageVietnamese, cfg.DefaultLanguage())

	cfg.Quiz.DefaultLanguage = "en"
	assert.Equal(t, models.LanguageEnglish, cfg.DefaultLanguage())
}
