package llm

import (
	"context"
	"io"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// DeltaFunc receives streamed response text. Returning an error stops the stream.
type DeltaFunc func(delta string) error

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
	// Stream calls onDelta for every non-empty chunk and returns the full
	// response once the stream is complete.
	Stream(ctx context.Context, messages []Message, onDelta DeltaFunc) (Response, error)
	// Name identifies provider and model, e.g. "groq/llama-3.3-70b-versatile".
	Name() string
}

// Transcriber converts recorded speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Synthesizer renders text as mp3 audio. language selects the voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}
