package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// LanguageTurkish selects the primary voice; every other language uses the
// fallback voice.
const LanguageTurkish = "tr"

// OpenAIConfig configures any OpenAI-compatible endpoint (Groq, Ollama, OpenAI).
type OpenAIConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
	SpeechModel        string
	Voice              string
	FallbackVoice      string
	HTTPClient         *http.Client
}

type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
}

func NewOpenAI(cfg OpenAIConfig) *OpenAIClient {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
	}
}

func (c *OpenAIClient) Name() string {
	if c.cfg.Provider == "" {
		return c.cfg.Model
	}
	return c.cfg.Provider + "/" + c.cfg.Model
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *OpenAIClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("chat completion returned no choices")
	}

	return Response{
		Content:          resp.Choices[0].Message.Content,
		Model:            c.cfg.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, onDelta DeltaFunc) (Response, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to create chat completion stream: %w", err)
	}
	defer stream.Close()

	out := Response{Model: c.cfg.Model}
	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			out.Content = sb.String()
			return out, fmt.Errorf("stream recv: %w", err)
		}
		if chunk.Usage != nil {
			out.PromptTokens = chunk.Usage.PromptTokens
			out.CompletionTokens = chunk.Usage.CompletionTokens
			out.TotalTokens = chunk.Usage.TotalTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				out.Content = sb.String()
				return out, err
			}
		}
	}
	out.Content = sb.String()
	return out, nil
}

func (c *OpenAIClient) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if filename == "" {
		filename = "audio.wav"
	}
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.TranscriptionModel,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Synthesize uses the primary voice for Turkish and the fallback voice for
// anything else. A failed Turkish request is retried once with the fallback voice.
func (c *OpenAIClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	voice := c.cfg.FallbackVoice
	if language == LanguageTurkish {
		voice = c.cfg.Voice
	}
	audio, err := c.speech(ctx, text, voice)
	if err != nil && language == LanguageTurkish && voice != c.cfg.FallbackVoice {
		audio, err = c.speech(ctx, text, c.cfg.FallbackVoice)
	}
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (c *OpenAIClient) speech(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech with voice %s: %w", voice, err)
	}
	defer resp.Close()
	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	return data, nil
}
