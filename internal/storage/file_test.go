package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRepository_InitCreatesEmptyArray(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "memory_db")
	repo, err := NewFileRepository(dir, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))
	assert.Equal(t, dir, repo.Location())

	items, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFileRepository_SaveAndLoad(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir(), nil)
	require.NoError(t, err)

	in := []Interaction{
		{ID: "a", Timestamp: time.Unix(1, 0).UTC(), UserInput: "merhaba \"dünya\"\nikinci satır", AIResponse: "selam <b>&</b>"},
		{ID: "b", Timestamp: time.Unix(2, 500).UTC(), UserInput: "", AIResponse: ""},
	}
	require.NoError(t, repo.Save(in))

	out, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.True(t, in[i].Timestamp.Equal(out[i].Timestamp), "timestamp %d", i)
		assert.Equal(t, in[i].UserInput, out[i].UserInput)
		assert.Equal(t, in[i].AIResponse, out[i].AIResponse)
	}

	// human-readable: indented, html and non-ascii left as is
	raw, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  {")
	assert.Contains(t, string(raw), "dünya")
	assert.Contains(t, string(raw), "<b>&</b>")

	// empty strings stay present as fields
	var generic []map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Contains(t, generic[1], "user_input")
	assert.Contains(t, generic[1], "ai_response")
}

func TestFileRepository_LoadMissingFile(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(repo.Path()))

	items, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, items)

	// regenerated on next write
	require.NoError(t, repo.Save([]Interaction{{ID: "x", Timestamp: time.Now().UTC()}}))
	items, err = repo.Load()
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFileRepository_LoadCorrupt(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir(), nil)
	require.NoError(t, err)

	for _, content := range []string{"{oops", `{"id":"a"}`, `"text"`} {
		require.NoError(t, os.WriteFile(repo.Path(), []byte(content), 0o644))
		_, err := repo.Load()
		require.Error(t, err, content)
		assert.True(t, errors.Is(err, ErrRead), content)
	}
}

func TestFileRepository_LoadEmptyFile(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(repo.Path(), []byte("  \n"), 0o644))

	items, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFileRepository_SkipsMalformedRecords(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir(), nil)
	require.NoError(t, err)

	content := `[
  {"id": "ok1", "timestamp": "2024-05-01T10:00:00Z", "user_input": "hi", "ai_response": "hello"},
  {"timestamp": "2024-05-01T10:00:00Z", "user_input": "no id"},
  {"id": "no-ts", "user_input": "x"},
  {"id": "bad-ts", "timestamp": "yesterday"},
  {"id": 5, "timestamp": "2024-05-01T10:00:00Z"},
  42,
  {"id": "ok2", "timestamp": "2024-05-01T10:01:02.123456"}
]`
	require.NoError(t, os.WriteFile(repo.Path(), []byte(content), 0o644))

	items, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "ok1", items[0].ID)
	assert.Equal(t, "hi", items[0].UserInput)
	assert.Equal(t, "ok2", items[1].ID)
	assert.Equal(t, "", items[1].UserInput)
	assert.Equal(t, "", items[1].AIResponse)
	assert.Equal(t, 123456000, items[1].Timestamp.Nanosecond())
}

func TestFileRepository_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepository(dir, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save([]Interaction{{ID: "a", Timestamp: time.Now().UTC()}}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}

func TestFileRepository_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	// a non-empty directory in place of the file makes the final rename fail
	blocker := filepath.Join(dir, FileName)
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "keep"), 0o755))

	repo, err := NewFileRepository(dir, nil)
	require.NoError(t, err)

	err = repo.Save([]Interaction{{ID: "a", Timestamp: time.Now().UTC()}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrite))
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"2024-01-15T08:30:00Z", false},
		{"2024-01-15T08:30:00.123456789+03:00", false},
		{"2024-01-15T08:30:00.123456", false},
		{"2024-01-15T08:30:00", false},
		{"2024-01-15", true},
		{"", true},
	}
	for _, c := range cases {
		_, err := ParseTimestamp(c.in)
		if c.wantErr {
			assert.Error(t, err, c.in)
		} else {
			assert.NoError(t, err, c.in)
		}
	}
}
