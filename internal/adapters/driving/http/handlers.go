package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Sync admin endpoints

func (s *Server) handleGetSyncStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.admin.GetSyncStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read sync status")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetSyncLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.admin.GetSyncLog(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read sync log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	var req driving.StartSyncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	state, err := s.admin.StartSync(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSyncAlreadyRunning):
			writeError(w, http.StatusConflict, "a sync is already running")
		case errors.Is(err, domain.ErrFilterRequired):
			writeError(w, http.StatusBadRequest, "a JQL filter is required for a global sync")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid sync request")
		default:
			s.logger.Error("start sync failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to start sync")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

func (s *Server) handleStopSync(w http.ResponseWriter, r *http.Request) {
	state, err := s.admin.StopSync(r.Context())
	if err != nil {
		s.logger.Error("stop sync failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to stop sync")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleForceResetSync(w http.ResponseWriter, r *http.Request) {
	state, err := s.admin.ForceResetSync(r.Context())
	if err != nil {
		s.logger.Error("force reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset sync")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleForceStopAllSyncs(w http.ResponseWriter, r *http.Request) {
	state, err := s.admin.ForceStopAllSyncs(r.Context())
	if err != nil {
		s.logger.Error("force stop failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to force stop syncs")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Settings endpoints

// scopeFromQuery resolves the settings scope from projectId or projectKey
// query parameters. An empty result is the global scope.
func (s *Server) scopeFromQuery(r *http.Request) string {
	if projectID := r.URL.Query().Get("projectId"); projectID != "" {
		return projectID
	}
	if projectKey := r.URL.Query().Get("projectKey"); projectKey != "" && s.resolver != nil {
		return s.resolver.ResolveProjectID(r.Context(), projectKey)
	}
	return ""
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.GetSettings(r.Context(), s.scopeFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.AppSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.settings.SaveSettings(r.Context(), s.scopeFromQuery(r), &settings)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "all three visibility settings are required")
			return
		}
		s.logger.Error("save settings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Event webhook

type commentEventRequest struct {
	IssueIDOrKey string `json:"issueIdOrKey"`
}

func (s *Server) handleCommentEvent(w http.ResponseWriter, r *http.Request) {
	var req commentEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IssueIDOrKey == "" {
		writeError(w, http.StatusBadRequest, "issueIdOrKey is required")
		return
	}

	if err := s.events.HandleCommentEvent(r.Context(), req.IssueIDOrKey); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid issue reference")
			return
		}
		s.logger.Error("comment event failed", "issue", req.IssueIDOrKey, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to recalculate fields")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
