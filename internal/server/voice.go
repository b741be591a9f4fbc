package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/karlvoss/aisle/internal/catalog"
	"github.com/karlvoss/aisle/internal/list"
	"github.com/karlvoss/aisle/internal/nlu"
	"github.com/karlvoss/aisle/internal/recommend"
)

// maxAudioBytes caps uploaded clips. Commands are a few seconds of speech;
// anything near this limit is a client bug, not a long command.
const maxAudioBytes = 10 << 20

// commandResponse is the shared response shape of the voice and text command
// endpoints. Suggestions is null when the command carried no item and was not
// an explicit suggestion request, or when no engine is configured.
type commandResponse struct {
	Transcript   string                 `json:"transcript,omitempty"`
	Preprocessed string                 `json:"preprocessed"`
	Command      nlu.ParsedCommand      `json:"command"`
	Result       list.ActionResult      `json:"result"`
	List         list.View              `json:"list"`
	Suggestions  *recommend.Suggestions `json:"suggestions"`
	LatencyMs    map[string]int64       `json:"latency_ms"`
}

// handleTranscribe converts an audio clip to text without executing it.
// Used by the UI to show a live transcript before the user confirms.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	audio, mimeType, ok := s.readAudio(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := s.transcriber.Transcribe(r.Context(), audio, mimeType)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error("transcription failed", "error", err)
		writeError(w, http.StatusBadGateway, "stt_failed", "could not transcribe audio")
		return
	}
	if s.metrics != nil {
		s.metrics.STTDuration.Record(r.Context(), elapsed.Seconds())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transcript": result.Transcript,
		"language":   result.Language,
		"confidence": result.Confidence,
		"latency_ms": map[string]int64{"stt": elapsed.Milliseconds()},
	})
}

// handleVoiceAudio runs the full pipeline: transcribe, interpret, execute.
func (s *Server) handleVoiceAudio(w http.ResponseWriter, r *http.Request) {
	listID := r.PathValue("id")
	audio, mimeType, ok := s.readAudio(w, r)
	if !ok {
		return
	}

	sttStart := time.Now()
	sttResult, err := s.transcriber.Transcribe(r.Context(), audio, mimeType)
	sttElapsed := time.Since(sttStart)
	if err != nil {
		s.logger.Error("transcription failed", "error", err)
		writeError(w, http.StatusBadGateway, "stt_failed", "could not transcribe audio")
		return
	}
	if s.metrics != nil {
		s.metrics.STTDuration.Record(r.Context(), sttElapsed.Seconds())
	}

	resp, err := s.runCommand(r, listID, sttResult.Transcript)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	resp.Transcript = sttResult.Transcript
	resp.LatencyMs["stt"] = sttElapsed.Milliseconds()
	writeJSON(w, http.StatusOK, resp)
}

// handleTextCommand runs the pipeline on typed or pre-transcribed text.
func (s *Server) handleTextCommand(w http.ResponseWriter, r *http.Request) {
	listID := r.PathValue("id")

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "body must be {\"text\": ...}")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "empty_command", "text must not be empty")
		return
	}

	resp, err := s.runCommand(r, listID, req.Text)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// runCommand interprets text and executes the resulting command on listID.
func (s *Server) runCommand(r *http.Request, listID, text string) (*commandResponse, error) {
	interp := s.router.Interpret(r.Context(), text)

	execStart := time.Now()
	result, l, err := s.executor.Execute(r.Context(), listID, interp.Command)
	if err != nil {
		return nil, err
	}

	latency := make(map[string]int64, len(interp.Latency)+3)
	for stage, d := range interp.Latency {
		latency[stage] = d.Milliseconds()
	}
	latency["execute"] = time.Since(execStart).Milliseconds()

	return &commandResponse{
		Preprocessed: interp.Preprocessed,
		Command:      interp.Command,
		Result:       result,
		List:         l.View(),
		Suggestions:  s.suggestionsFor(r, interp.Command, l, latency),
		LatencyMs:    latency,
	}, nil
}

// suggestionsFor attaches suggestions to an executed command: anchored on the
// acted item when the command carried one, whole-list union for an explicit
// suggestion request. Best effort: the engine degrades to empty groups rather
// than erroring, and its cold-start path runs under its own timeout.
func (s *Server) suggestionsFor(r *http.Request, cmd nlu.ParsedCommand, l list.List, latency map[string]int64) *recommend.Suggestions {
	if s.engine == nil {
		return nil
	}
	if cmd.Item == "" && cmd.Intent != nlu.IntentGetSuggestions {
		return nil
	}

	q := recommend.Query{ListKeys: l.Keys(), Now: time.Now()}
	if cmd.Item != "" {
		q.Anchor = cmd.Item
		q.AnchorKey = catalog.NormalizeKey(cmd.Item)
	}

	start := time.Now()
	sugg := s.engine.Suggest(r.Context(), q)
	latency["recommend"] = time.Since(start).Milliseconds()
	return &sugg
}

// readAudio pulls the clip out of the request: either a multipart form with
// an "audio" part or a raw body with an audio Content-Type. Writes the error
// response itself and returns ok=false when the request is unusable.
func (s *Server) readAudio(w http.ResponseWriter, r *http.Request) (audio []byte, mimeType string, ok bool) {
	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "stt_unavailable", "no speech-to-text provider configured")
		return nil, "", false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("audio")
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "multipart form must carry an \"audio\" part")
			return nil, "", false
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			s.writeReadError(w, err)
			return nil, "", false
		}
		return data, header.Header.Get("Content-Type"), true
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeReadError(w, err)
		return nil, "", false
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty_audio", "request body is empty")
		return nil, "", false
	}
	return data, contentType, true
}

func (s *Server) writeReadError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "audio_too_large", "audio clip exceeds the upload limit")
		return
	}
	s.logger.Error("read audio", "error", err)
	writeError(w, http.StatusBadRequest, "bad_request", "could not read audio")
}
