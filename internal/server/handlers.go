package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"jarvis/internal/llm"
	"jarvis/internal/storage"
)

type chatRequest struct {
	Message string `json:"message"`
	Speak   bool   `json:"speak"`
}

type chatResponse struct {
	Response    string `json:"response"`
	Audio       string `json:"audio,omitempty"`
	AudioFormat string `json:"audio_format,omitempty"`
}

type speakRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type searchResponse struct {
	Results []storage.Interaction `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// handleChat streams the reply as plain text. With speak=true it waits for
// the full reply and returns it together with base64 mp3 audio.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request: "+err.Error())
		return
	}

	if req.Speak {
		s.chatWithSpeech(w, r, req.Message)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	_, err := s.assistant.Reply(r.Context(), req.Message, func(delta string) error {
		if _, err := w.Write([]byte(delta)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Warn("chat stream ended with error")
		// headers are already sent; report inline like the rest of the stream
		_, _ = w.Write([]byte("Error: " + err.Error()))
	}
}

func (s *Server) chatWithSpeech(w http.ResponseWriter, r *http.Request, message string) {
	reply, err := s.assistant.Reply(r.Context(), message, nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	audio, err := s.synthesizer.Synthesize(r.Context(), reply, llm.LanguageTurkish)
	if err != nil {
		s.logger.WithError(err).Error("speech synthesis failed")
		writeError(w, http.StatusInternalServerError, "TTS error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Response:    reply,
		Audio:       base64.StdEncoding.EncodeToString(audio),
		AudioFormat: "audio/mp3",
	})
}

func (s *Server) handleChatJSON(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request: "+err.Error())
		return
	}
	reply, err := s.assistant.Reply(r.Context(), req.Message, nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	text, err := s.transcriber.Transcribe(r.Context(), hdr.Filename, file)
	if err != nil {
		s.logger.WithError(err).Error("transcription failed")
		writeError(w, http.StatusInternalServerError, "Transcription error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Language == "" {
		req.Language = llm.LanguageTurkish
	}

	audio, err := s.synthesizer.Synthesize(r.Context(), req.Text, req.Language)
	if err != nil {
		s.logger.WithError(err).Error("speech synthesis failed")
		writeError(w, http.StatusInternalServerError, "TTS error: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/mp3")
	w.Header().Set("Content-Disposition", `attachment; filename="speech.mp3"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "online",
		"model":  s.assistant.Model(),
	})
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.memory.Stats())
}

func (s *Server) handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, searchResponse{Results: s.memory.Search(r.URL.Query().Get("q"))})
}

func (s *Server) handleMemoryClear(w http.ResponseWriter, r *http.Request) {
	if err := s.memory.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
