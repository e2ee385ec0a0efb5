package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI(OpenAIConfig{
		Provider:           "groq",
		APIKey:             "test",
		BaseURL:            srv.URL + "/v1",
		Model:              "test-model",
		TranscriptionModel: "whisper-test",
		SpeechModel:        "tts-1",
		Voice:              "tr-voice",
		FallbackVoice:      "en-voice",
	})
}

func writeSSE(w http.ResponseWriter, deltas ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, d := range deltas {
		chunk := map[string]any{
			"id":      "chunk",
			"object":  "chat.completion.chunk",
			"model":   "test-model",
			"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": d}}},
		}
		b, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", b)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestOpenAIClient_Generate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"selam"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`)
	})

	resp, err := c.Generate(context.Background(), []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "selam", resp.Content)
	assert.Equal(t, 4, resp.TotalTokens)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
	assert.Equal(t, "groq/test-model", c.Name())
}

func TestOpenAIClient_Stream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "Mer", "", "haba", " dünya")
	})

	var deltas []string
	resp, err := c.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mer", "haba", " dünya"}, deltas)
	assert.Equal(t, "Merhaba dünya", resp.Content)
}

func TestOpenAIClient_StreamCallbackError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "a", "b", "c")
	})

	stop := errors.New("client gone")
	resp, err := c.Stream(context.Background(), nil, func(d string) error {
		if d == "b" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, "ab", resp.Content)
}

func TestOpenAIClient_StreamHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid key","type":"auth"}}`)
	})

	_, err := c.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestOpenAIClient_Transcribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-test", r.FormValue("model"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "RIFFdata", string(body))
		assert.Equal(t, "clip.wav", hdr.Filename)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"  merhaba Jarvis \n"}`)
	})

	text, err := c.Transcribe(context.Background(), "clip.wav", strings.NewReader("RIFFdata"))
	require.NoError(t, err)
	assert.Equal(t, "merhaba Jarvis", text)
}

func TestOpenAIClient_SynthesizeVoices(t *testing.T) {
	var mu sync.Mutex
	var voices []string
	failTurkish := true
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		var req struct {
			Voice string `json:"voice"`
			Input string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		voices = append(voices, req.Voice)
		fail := failTurkish && req.Voice == "tr-voice"
		mu.Unlock()
		if fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"voice unavailable"}}`)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		fmt.Fprint(w, "ID3-"+req.Voice)
	})

	audio, err := c.Synthesize(context.Background(), "merhaba", "tr")
	require.NoError(t, err)
	assert.Equal(t, "ID3-en-voice", string(audio))
	assert.Equal(t, []string{"tr-voice", "en-voice"}, voices)

	mu.Lock()
	voices = nil
	mu.Unlock()
	audio, err = c.Synthesize(context.Background(), "hello", "en")
	require.NoError(t, err)
	assert.Equal(t, "ID3-en-voice", string(audio))
	assert.Equal(t, []string{"en-voice"}, voices)

	mu.Lock()
	failTurkish = false
	voices = nil
	mu.Unlock()
	audio, err = c.Synthesize(context.Background(), "merhaba", "tr")
	require.NoError(t, err)
	assert.Equal(t, "ID3-tr-voice", string(audio))
}
