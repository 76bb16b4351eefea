package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/selfexplain/internal/catalog"
	"github.com/ashureev/selfexplain/internal/domain"
	"github.com/ashureev/selfexplain/internal/tutor"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxUploadBytes bounds learner audio uploads.
const maxUploadBytes = 15 << 20

const introText = "Welcome! I'm your tutoring assistant. Pick a concept, then explain it in your own words, as if you were teaching it to a friend. You get three tries per concept, and I'll guide you along the way."

// RegisterRoutes registers the tutoring API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/me", h.handleMe)
	r.Get("/api/concepts", h.handleConcepts)
	r.Post("/api/concept/select", h.handleConceptSelect)
	r.Post("/api/trial", h.handleTrial)
	r.Post("/api/message", h.handleMessage)
	r.Get("/api/intro-audio", h.handleIntroAudio)
	r.Get("/api/concept-audio/{name}", h.handleConceptAudio)
	r.Post("/api/recordings", h.handleRecordingUpload)
	r.Get("/api/export", h.handleExport)
	r.Get("/uploads/{filename}", h.handleUploadFile)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id":     session.SessionID,
		"trial_type":     session.TrialType,
		"attempt_counts": session.AttemptCounts,
		"true_attempts":  session.TrueAttempts,
	})
}

// handleTrial switches the study phase. All per-concept progress resets
// so the learner starts the new phase from scratch.
func (h *Handler) handleTrial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Trial string `json:"trial"`
	}
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.session(r)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	if err := h.svc.SetTrial(r.Context(), session, req.Trial); err != nil {
		if errors.Is(err, tutor.ErrInvalidTrial) {
			Error(w, http.StatusBadRequest, "unknown trial phase")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to set trial")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"trial": session.TrialType})
}

func (h *Handler) handleConcepts(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	type conceptView struct {
		Name              string `json:"name"`
		AttemptsRemaining int    `json:"attempts_remaining"`
	}
	// Reference answers are deliberately not exposed here.
	var out []conceptView
	for _, c := range h.catalog.Concepts() {
		out = append(out, conceptView{
			Name:              c.Name,
			AttemptsRemaining: session.AttemptsRemaining(c.Name),
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"concepts": out})
}

func (h *Handler) handleConceptSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Concept string `json:"concept"`
	}
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.session(r)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	concept, err := h.svc.SelectConcept(r.Context(), session, req.Concept)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownConcept) {
			Error(w, http.StatusNotFound, "unknown concept")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to select concept")
		return
	}

	resp := map[string]interface{}{
		"concept":            concept.Name,
		"attempts_remaining": domain.MaxAttempts,
	}
	if url := h.conceptAudioURL(r, concept); url != "" {
		resp["audio_url"] = url
	}
	JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	input, err := turnInputFromRequest(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.HandleTurn(r.Context(), session, input)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownConcept) {
			Error(w, http.StatusNotFound, "unknown concept")
			return
		}
		slog.Error("turn failed", "session_id", session.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	JSON(w, http.StatusOK, result)
}

// turnInputFromRequest accepts either a JSON body or a multipart form with
// an "audio" file for spoken turns.
func turnInputFromRequest(r *http.Request) (tutor.TurnInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return tutor.TurnInput{}, fmt.Errorf("invalid multipart form")
		}

		concept := r.FormValue("concept")
		if concept == "" {
			return tutor.TurnInput{}, fmt.Errorf("concept is required")
		}

		file, header, err := r.FormFile("audio")
		if err != nil {
			return tutor.TurnInput{}, fmt.Errorf("audio file is required")
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return tutor.TurnInput{}, fmt.Errorf("failed to read audio")
		}

		return tutor.TurnInput{
			Concept:       concept,
			Audio:         data,
			AudioFilename: header.Filename,
		}, nil
	}

	var req struct {
		Concept string `json:"concept"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return tutor.TurnInput{}, fmt.Errorf("invalid request body")
	}
	if req.Concept == "" {
		return tutor.TurnInput{}, fmt.Errorf("concept is required")
	}
	return tutor.TurnInput{Concept: req.Concept, Text: req.Message}, nil
}

func (h *Handler) handleIntroAudio(w http.ResponseWriter, r *http.Request) {
	if h.narrator == nil {
		Error(w, http.StatusServiceUnavailable, "speech synthesis is disabled")
		return
	}

	url, err := h.narrator.CachedSpeech(r.Context(), "intro", introText)
	if err != nil {
		slog.Error("intro audio failed", "error", err)
		Error(w, http.StatusBadGateway, "failed to generate intro audio")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"text": introText, "audio_url": url})
}

func (h *Handler) handleConceptAudio(w http.ResponseWriter, r *http.Request) {
	if h.narrator == nil {
		Error(w, http.StatusServiceUnavailable, "speech synthesis is disabled")
		return
	}

	concept, err := h.catalog.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		Error(w, http.StatusNotFound, "unknown concept")
		return
	}

	url := h.conceptAudioURL(r, concept)
	if url == "" {
		Error(w, http.StatusBadGateway, "failed to generate concept audio")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"audio_url": url})
}

func (h *Handler) conceptAudioURL(r *http.Request, concept domain.Concept) string {
	if h.narrator == nil {
		return ""
	}
	text := fmt.Sprintf("Let's talk about %s. Please explain it in your own words.", concept.Name)
	url, err := h.narrator.CachedSpeech(r.Context(), "concept_"+concept.Name, text)
	if err != nil {
		slog.Warn("concept audio failed", "concept", concept.Name, "error", err)
		return ""
	}
	return url
}

func (h *Handler) handleRecordingUpload(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		Error(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil || len(data) == 0 {
		Error(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".webm"
	}
	name, err := h.files.Save("recording", session.SessionID, ext, data)
	if err != nil {
		slog.Error("recording save failed", "session_id", session.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to store recording")
		return
	}

	rec := &domain.Recording{
		ID:        uuid.NewString(),
		SessionID: session.SessionID,
		Filename:  name,
		SizeBytes: int64(len(data)),
		CreatedAt: time.Now(),
	}
	if err := h.repo.SaveRecording(r.Context(), rec); err != nil {
		slog.Error("recording metadata save failed", "session_id", session.SessionID, "error", err)
	}

	JSON(w, http.StatusCreated, map[string]string{
		"filename": name,
		"url":      "/uploads/" + name,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.ExportInteractions(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to export interactions")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="interaction_log.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"session_id", "trial", "speaker", "concept", "message", "attempt", "timestamp"})
	for _, rec := range records {
		_ = cw.Write([]string{
			rec.SessionID,
			rec.Trial,
			rec.Speaker,
			rec.Concept,
			rec.Message,
			strconv.Itoa(rec.Attempt),
			rec.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("csv export failed", "error", err)
	}
}

func (h *Handler) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	path, err := h.files.Path(chi.URLParam(r, "filename"))
	if err != nil {
		Error(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, path)
}
