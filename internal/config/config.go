package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderGroq   LLMProvider = "groq"
	ProviderOllama LLMProvider = "ollama"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8000"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"groq"`
	GroqAPIKey       string      `env:"GROQ_API_KEY"`
	GroqBaseURL      string      `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	GroqModel        string      `env:"GROQ_MODEL" envDefault:"llama-3.3-70b-versatile"`
	OllamaBaseURL    string      `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434/v1"`
	OllamaModel      string      `env:"OLLAMA_MODEL" envDefault:"gemma2"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// Speech. STT goes through the Groq endpoint; TTS may point elsewhere.
	STTModel   string `env:"STT_MODEL" envDefault:"whisper-large-v3"`
	TTSBaseURL string `env:"TTS_BASE_URL"`
	TTSAPIKey  string `env:"TTS_API_KEY"`
	TTSModel   string `env:"TTS_MODEL" envDefault:"tts-1"`
	TTSVoice   string `env:"TTS_VOICE" envDefault:"alloy"`
	TTSVoiceEN string `env:"TTS_VOICE_EN" envDefault:"alloy"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH" envDefault:"prompts/system_prompt.txt"`

	// Memory
	MemoryDBPath          string `env:"MEMORY_DB_PATH" envDefault:"./memory_db"`
	MemoryMaxInteractions int    `env:"MEMORY_MAX_INTERACTIONS" envDefault:"100"`
	MemoryContextResults  int    `env:"MEMORY_CONTEXT_RESULTS" envDefault:"3"`

	// Daily memory report, cron syntax in UTC. Empty disables it.
	ReportSchedule string `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGroq, ProviderOllama, ProviderYandex:
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}
	if c.LLMProvider == ProviderYandex && (c.YandexOAuthToken == "" || c.YandexFolderID == "") {
		return fmt.Errorf("yandex provider requires YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID")
	}
	if c.MemoryMaxInteractions <= 0 {
		return fmt.Errorf("MEMORY_MAX_INTERACTIONS must be positive, got %d", c.MemoryMaxInteractions)
	}
	if c.MemoryContextResults <= 0 {
		return fmt.Errorf("MEMORY_CONTEXT_RESULTS must be positive, got %d", c.MemoryContextResults)
	}
	if c.MemoryDBPath == "" {
		return fmt.Errorf("MEMORY_DB_PATH must not be empty")
	}
	return nil
}
