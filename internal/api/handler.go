// Package api provides HTTP handlers for the tutoring API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/selfexplain/internal/audio"
	"github.com/ashureev/selfexplain/internal/catalog"
	"github.com/ashureev/selfexplain/internal/domain"
	"github.com/ashureev/selfexplain/internal/identity"
	"github.com/ashureev/selfexplain/internal/store"
	"github.com/ashureev/selfexplain/internal/tutor"
)

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	svc      *tutor.Service
	catalog  *catalog.Catalog
	files    *audio.Store
	narrator *audio.Narrator // nil when speech synthesis is disabled
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, svc *tutor.Service, cat *catalog.Catalog, files *audio.Store, narrator *audio.Narrator) *Handler {
	return &Handler{
		repo:     repo,
		svc:      svc,
		catalog:  cat,
		files:    files,
		narrator: narrator,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// session loads the request's session, falling back to a fresh in-memory
// session when the stored snapshot is missing.
func (h *Handler) session(r *http.Request) (*domain.Session, error) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return domain.NewSession("anonymous"), nil
	}

	session, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = domain.NewSession(sessionID)
	}
	return session, nil
}
