package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FileName is the name of the interaction log inside the database directory.
const FileName = "conversations.json"

// Naive layouts cover files written by tools that omit the zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

type FileRepository struct {
	dir    string
	path   string
	mu     sync.Mutex
	logger logrus.FieldLogger
}

// NewFileRepository stores the log as a JSON array in dir/conversations.json.
// The directory is created if needed and the file is initialised with an
// empty array when it does not exist yet.
func NewFileRepository(dir string, logger logrus.FieldLogger) (*FileRepository, error) {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	r := &FileRepository{
		dir:    dir,
		path:   filepath.Join(dir, FileName),
		logger: logger.WithField("component", "storage"),
	}
	if _, err := os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		if err := r.Save([]Interaction{}); err != nil {
			return nil, fmt.Errorf("init file: %w", err)
		}
	}
	return r, nil
}

func (r *FileRepository) Location() string { return r.dir }

// Path returns the full path of the backing file.
func (r *FileRepository) Path() string { return r.path }

func (r *FileRepository) Load() ([]Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked()
}

func (r *FileRepository) Save(interactions []Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveUnlocked(interactions)
}

func (r *FileRepository) loadUnlocked() ([]Interaction, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Interaction{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrRead, r.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Interaction{}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrRead, r.path, err)
	}

	out := make([]Interaction, 0, len(records))
	for i, raw := range records {
		it, err := decodeRecord(raw)
		if err != nil {
			r.logger.WithError(err).WithField("index", i).Warn("skipping malformed interaction record")
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *FileRepository) saveUnlocked(interactions []Interaction) error {
	if interactions == nil {
		interactions = []Interaction{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(interactions); err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(r.dir, ".conversations-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", ErrWrite, err)
	}
	tmpPath := tmp.Name()
	// Best effort; after a successful rename the temp path no longer exists.
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp: %w", ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync temp: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %w", ErrWrite, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("%w: chmod temp: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrWrite, err)
	}
	return nil
}

type rawInteraction struct {
	ID         *string `json:"id"`
	Timestamp  *string `json:"timestamp"`
	UserInput  *string `json:"user_input"`
	AIResponse *string `json:"ai_response"`
}

func decodeRecord(raw json.RawMessage) (Interaction, error) {
	var rec rawInteraction
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Interaction{}, fmt.Errorf("decode record: %w", err)
	}
	if rec.ID == nil || *rec.ID == "" {
		return Interaction{}, errors.New("missing id")
	}
	if rec.Timestamp == nil || *rec.Timestamp == "" {
		return Interaction{}, errors.New("missing timestamp")
	}
	ts, err := ParseTimestamp(*rec.Timestamp)
	if err != nil {
		return Interaction{}, err
	}
	it := Interaction{ID: *rec.ID, Timestamp: ts}
	if rec.UserInput != nil {
		it.UserInput = *rec.UserInput
	}
	if rec.AIResponse != nil {
		it.AIResponse = *rec.AIResponse
	}
	return it, nil
}

// ParseTimestamp accepts ISO-8601 timestamps with or without a zone offset.
// Timestamps without an offset are interpreted in the local zone.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
