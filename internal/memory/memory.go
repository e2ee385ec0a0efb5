// Package memory keeps a bounded, durable log of user/assistant interactions
// and recalls the turns relevant to a new query by keyword overlap.
package memory

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"jarvis/internal/storage"
)

const (
	// DefaultMaxInteractions is the retention bound of the log.
	DefaultMaxInteractions = 100
	// DefaultContextResults is how many past turns RelevantContext returns
	// when the caller passes a non-positive limit.
	DefaultContextResults = 3

	StatusActive = "active"

	previewLen = 50
)

// Stats summarises the store for health endpoints.
type Stats struct {
	TotalMemories int    `json:"total_memories"`
	Status        string `json:"status"`
	DBPath        string `json:"db_path"`
}

// Manager owns the interaction log. All reads and writes go through it.
//
// The log is held in memory and mirrored to the repository on every
// mutation. A mutation only becomes visible after it has been persisted,
// so a failed write leaves the previous state in place.
type Manager struct {
	mu   sync.RWMutex
	repo storage.Repository
	log  []storage.Interaction

	maxInteractions int
	logger          logrus.FieldLogger
	now             func() time.Time
	newID           func() string
}

type Option func(*Manager)

// WithMaxInteractions overrides the retention bound. Non-positive values are ignored.
func WithMaxInteractions(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxInteractions = n
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator replaces the interaction id source.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// New loads the log from repo. An unreadable store is not fatal: the manager
// starts with an empty log and the next write replaces the broken file.
func New(repo storage.Repository, options ...Option) *Manager {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	m := &Manager{
		repo:            repo,
		maxInteractions: DefaultMaxInteractions,
		logger:          discard,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
	}
	for _, option := range options {
		option(m)
	}
	m.logger = m.logger.WithField("component", "memory")

	loaded, err := repo.Load()
	switch {
	case err == nil:
		m.log = trim(loaded, m.maxInteractions)
	case errors.Is(err, storage.ErrRead):
		m.logger.WithError(err).Warn("memory store unreadable, starting with empty log")
		m.log = []storage.Interaction{}
	default:
		m.logger.WithError(err).Warn("memory store load failed, starting with empty log")
		m.log = []storage.Interaction{}
	}
	return m
}

// SaveInteraction appends a new interaction and persists the log before
// returning. When the log exceeds the retention bound the oldest entries are
// dropped.
func (m *Manager) SaveInteraction(userInput, aiResponse string) (storage.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it := storage.Interaction{
		ID:         m.newID(),
		Timestamp:  m.now(),
		UserInput:  userInput,
		AIResponse: aiResponse,
	}

	next := make([]storage.Interaction, 0, len(m.log)+1)
	next = append(next, m.log...)
	next = append(next, it)
	next = trim(next, m.maxInteractions)

	if err := m.repo.Save(next); err != nil {
		m.logger.WithError(err).Error("failed to persist interaction")
		return storage.Interaction{}, fmt.Errorf("save interaction: %w", err)
	}
	m.log = next

	m.logger.WithFields(logrus.Fields{
		"id":    it.ID,
		"total": len(next),
	}).Infof("memory saved: %s...", preview(userInput))
	return it, nil
}

// RelevantContext returns up to maxResults past turns that share words with
// query, best match first, rendered for inclusion in a system prompt.
//
// A turn scores one point for every query word that occurs anywhere in its
// lowercased text. Words are matched as substrings, so "art" also hits
// "party". Turns with equal scores keep their chronological order.
func (m *Manager) RelevantContext(query string, maxResults int) string {
	if maxResults <= 0 {
		maxResults = DefaultContextResults
	}
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return ""
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		score int
		it    storage.Interaction
	}
	var matches []scored
	for _, it := range m.log {
		text := strings.ToLower(it.UserInput + " " + it.AIResponse)
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{score: score, it: it})
		}
	}
	if len(matches) == 0 {
		return ""
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	parts := make([]string, 0, len(matches))
	for _, s := range matches {
		parts = append(parts, FormatTurn(s.it))
	}
	return strings.Join(parts, "\n\n")
}

// FormatTurn renders one interaction as a two-line prompt block.
func FormatTurn(it storage.Interaction) string {
	return "User: " + it.UserInput + "\nJarvis: " + it.AIResponse
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		TotalMemories: len(m.log),
		Status:        StatusActive,
		DBPath:        m.repo.Location(),
	}
}

// Clear empties the log. The empty log is persisted before it becomes visible.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	empty := []storage.Interaction{}
	if err := m.repo.Save(empty); err != nil {
		m.logger.WithError(err).Error("failed to clear memory")
		return fmt.Errorf("clear memory: %w", err)
	}
	m.log = empty
	m.logger.Info("memory cleared")
	return nil
}

// Search returns, in chronological order, every interaction whose user input
// or response contains query, ignoring case.
func (m *Manager) Search(query string) []storage.Interaction {
	q := strings.ToLower(query)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.Interaction, 0)
	for _, it := range m.log {
		if strings.Contains(strings.ToLower(it.UserInput), q) || strings.Contains(strings.ToLower(it.AIResponse), q) {
			out = append(out, it)
		}
	}
	return out
}

// Interactions returns a copy of the whole log in chronological order.
func (m *Manager) Interactions() []storage.Interaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]storage.Interaction, len(m.log))
	copy(out, m.log)
	return out
}

func trim(log []storage.Interaction, limit int) []storage.Interaction {
	if len(log) <= limit {
		return log
	}
	return log[len(log)-limit:]
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > previewLen {
		return string(r[:previewLen])
	}
	return s
}
