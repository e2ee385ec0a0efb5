package storage

import (
	"errors"
	"time"
)

var (
	// ErrRead marks a backing store that exists but could not be read or decoded.
	ErrRead = errors.New("storage read failed")
	// ErrWrite marks a mutation that could not be durably persisted.
	ErrWrite = errors.New("storage write failed")
)

// Interaction is one user/assistant exchange.
// ID and Timestamp are assigned on creation and never change afterwards.
// Interactions are expected to be stored in chronological order.
type Interaction struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	UserInput  string    `json:"user_input"`
	AIResponse string    `json:"ai_response"`
}

// Repository abstracts persistence of the interaction log.
// Load returns interactions in chronological order. A missing store is an
// empty log, not an error; an unreadable one returns an error wrapping ErrRead.
// Save replaces the whole log atomically and returns an error wrapping ErrWrite
// on failure.
type Repository interface {
	Load() ([]Interaction, error)
	Save(interactions []Interaction) error
	Location() string
}
