// Package assistant runs one conversation turn: recall, prompt, completion
// and memory write-back.
package assistant

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"jarvis/internal/llm"
	"jarvis/internal/storage"
)

// DefaultPersona is used when no system prompt file is configured.
const DefaultPersona = `Sen Jarvis'sin. Çok zeki, hafif esprili ve son derece yetenekli bir yapay zeka asistanısın. 
Kullanıcıyla samimi ve akıcı bir Türkçe ile konuş. Asla robotik cevaplar verme, bir insan gibi doğal ol. 
Cevapların kısa ve net olsun.`

const contextHeader = "\n\nGeçmiş konuşmalardan ilgili bağlam:\n"

// Memory is the part of the conversation store a turn needs.
type Memory interface {
	RelevantContext(query string, maxResults int) string
	SaveInteraction(userInput, aiResponse string) (storage.Interaction, error)
}

type Assistant struct {
	llm            llm.Client
	memory         Memory
	persona        string
	contextResults int
	logger         logrus.FieldLogger
}

type Option func(*Assistant)

func WithPersona(persona string) Option {
	return func(a *Assistant) {
		if strings.TrimSpace(persona) != "" {
			a.persona = persona
		}
	}
}

func WithContextResults(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.contextResults = n
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func New(client llm.Client, memory Memory, options ...Option) *Assistant {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	a := &Assistant{
		llm:            client,
		memory:         memory,
		persona:        DefaultPersona,
		contextResults: 3,
		logger:         discard,
	}
	for _, option := range options {
		option(a)
	}
	a.logger = a.logger.WithField("component", "assistant")
	return a
}

// Model names the completion backend, for health reporting.
func (a *Assistant) Model() string { return a.llm.Name() }

// BuildSystemPrompt appends recalled turns to the persona.
func BuildSystemPrompt(persona, recalled string) string {
	if recalled == "" {
		return persona
	}
	return persona + contextHeader + recalled
}

// Reply streams the answer to message through onDelta and returns the full
// text. A completed turn is saved to memory; a failed save is logged and does
// not fail the turn. Turns that fail mid-stream are not saved.
func (a *Assistant) Reply(ctx context.Context, message string, onDelta llm.DeltaFunc) (string, error) {
	recalled := a.memory.RelevantContext(message, a.contextResults)
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: BuildSystemPrompt(a.persona, recalled)},
		{Role: llm.RoleUser, Content: message},
	}

	log := a.logger.WithFields(logrus.Fields{
		"model":    a.llm.Name(),
		"recalled": recalled != "",
	})
	log.Debug("sending completion request")

	resp, err := a.llm.Stream(ctx, messages, onDelta)
	if err != nil {
		log.WithError(err).Error("completion failed")
		return resp.Content, fmt.Errorf("completion: %w", err)
	}

	if _, err := a.memory.SaveInteraction(message, resp.Content); err != nil {
		log.WithError(err).Error("interaction not persisted")
	}
	log.WithField("total_tokens", resp.TotalTokens).Debug("completion done")
	return resp.Content, nil
}
