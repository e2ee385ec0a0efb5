package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, ProviderGroq, cfg.LLMProvider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.GroqModel)
	assert.Equal(t, "./memory_db", cfg.MemoryDBPath)
	assert.Equal(t, 100, cfg.MemoryMaxInteractions)
	assert.Equal(t, 3, cfg.MemoryContextResults)
	assert.Equal(t, "0 21 * * *", cfg.ReportSchedule)
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("MEMORY_DB_PATH", "/tmp/jarvis")
	t.Setenv("MEMORY_MAX_INTERACTIONS", "25")
	t.Setenv("HTTP_ADDR", ":9000")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, "/tmp/jarvis", cfg.MemoryDBPath)
	assert.Equal(t, 25, cfg.MemoryMaxInteractions)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
}

func TestNew_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown provider":   {"LLM_PROVIDER": "nope"},
		"yandex without key": {"LLM_PROVIDER": "yandex"},
		"zero bound":         {"MEMORY_MAX_INTERACTIONS": "0"},
		"negative results":   {"MEMORY_CONTEXT_RESULTS": "-1"},
		"not a number":       {"MEMORY_MAX_INTERACTIONS": "many"},
	}
	for name, envs := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range envs {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	_, err = (&Config{LogLevel: "loud", LogFormat: "text"}).NewLogger()
	assert.Error(t, err)
	_, err = (&Config{LogLevel: "info", LogFormat: "xml"}).NewLogger()
	assert.Error(t, err)
}
