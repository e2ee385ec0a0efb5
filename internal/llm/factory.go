package llm

import (
	"fmt"
	"strings"

	"jarvis/internal/config"
)

// Factory creates LLM, speech-to-text and text-to-speech clients from config.
type Factory struct {
	cfg *config.Config
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg}
}

// ResolveProvider returns the provider that will actually serve completions.
// Groq without an API key falls back to a local Ollama.
func (f *Factory) ResolveProvider(provider string) string {
	p := strings.ToLower(provider)
	if p == string(config.ProviderGroq) && f.cfg.GroqAPIKey == "" {
		return string(config.ProviderOllama)
	}
	return p
}

func (f *Factory) CreateClient(provider string) (Client, error) {
	switch f.ResolveProvider(provider) {
	case string(config.ProviderGroq):
		return f.groq(), nil
	case string(config.ProviderOllama):
		return NewOpenAI(OpenAIConfig{
			Provider: string(config.ProviderOllama),
			// Ollama ignores the key but the client requires one.
			APIKey:  "ollama",
			BaseURL: f.cfg.OllamaBaseURL,
			Model:   f.cfg.OllamaModel,
		}), nil
	case string(config.ProviderYandex):
		return NewYandex(f.cfg.YandexOAuthToken, f.cfg.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

// CreateTranscriber uses Groq's hosted Whisper model.
func (f *Factory) CreateTranscriber() Transcriber {
	return f.groq()
}

// CreateSynthesizer targets TTS_BASE_URL when set and the Groq endpoint otherwise.
func (f *Factory) CreateSynthesizer() Synthesizer {
	baseURL, apiKey := f.cfg.TTSBaseURL, f.cfg.TTSAPIKey
	if baseURL == "" {
		baseURL = f.cfg.GroqBaseURL
	}
	if apiKey == "" {
		apiKey = f.cfg.GroqAPIKey
	}
	return NewOpenAI(OpenAIConfig{
		Provider:      "tts",
		APIKey:        apiKey,
		BaseURL:       baseURL,
		SpeechModel:   f.cfg.TTSModel,
		Voice:         f.cfg.TTSVoice,
		FallbackVoice: f.cfg.TTSVoiceEN,
	})
}

func (f *Factory) groq() *OpenAIClient {
	return NewOpenAI(OpenAIConfig{
		Provider:           string(config.ProviderGroq),
		APIKey:             f.cfg.GroqAPIKey,
		BaseURL:            f.cfg.GroqBaseURL,
		Model:              f.cfg.GroqModel,
		TranscriptionModel: f.cfg.STTModel,
	})
}
