package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homedash/internal/audit"
	"github.com/nerrad567/homedash/internal/auth"
	"github.com/nerrad567/homedash/internal/state"
)

// stateUser returns the {user} path parameter after validation and
// authorisation.
func (s *Server) stateUser(w http.ResponseWriter, r *http.Request, perm auth.Permission) (string, bool) {
	user := chi.URLParam(r, "user")
	if !auth.IsValidUsername(user) {
		writeBadRequest(w, "invalid user name")
		return "", false
	}
	return user, s.authorizeUser(w, r, user, perm)
}

// handleGetState returns the user's document with current date and time.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	user, ok := s.stateUser(w, r, auth.PermStateRead)
	if !ok {
		return
	}

	doc, err := s.states.Read(r.Context(), user)
	if err != nil {
		s.writeStateError(w, user, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handlePutState replaces the user's document.
//
// Query parameters:
//   - ttl: optional expiry as a Go duration ("24h")
func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	user, ok := s.stateUser(w, r, auth.PermStateWrite)
	if !ok {
		return
	}

	var ttl time.Duration
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			writeBadRequest(w, "ttl must be a non-negative duration")
			return
		}
		ttl = d
	}

	var doc state.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if doc.UserID == "" {
		doc.UserID = user
	}
	if doc.UserID != user {
		writeBadRequest(w, "user_id does not match path")
		return
	}

	if err := s.states.Write(r.Context(), user, &doc, ttl); err != nil {
		s.writeStateError(w, user, err)
		return
	}
	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionStateWrite,
		EntityType: audit.EntityUserState,
		EntityID:   user,
		Details:    map[string]any{"mode": "replace"},
	})
	writeJSON(w, http.StatusOK, doc)
}

// handlePatchState merges top-level fields into the user's document.
func (s *Server) handlePatchState(w http.ResponseWriter, r *http.Request) {
	user, ok := s.stateUser(w, r, auth.PermStateWrite)
	if !ok {
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(body) == 0 {
		writeBadRequest(w, "no fields to update")
		return
	}
	if raw, ok := body["user_id"]; ok {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil || id != user {
			writeBadRequest(w, "user_id cannot be changed")
			return
		}
	}

	fields := make(state.Fields, len(body))
	for k, v := range body {
		fields[k] = v
	}

	doc, err := s.states.Update(r.Context(), user, fields)
	if err != nil {
		s.writeStateError(w, user, err)
		return
	}
	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionStateWrite,
		EntityType: audit.EntityUserState,
		EntityID:   user,
		Details:    map[string]any{"mode": "merge", "fields": sortedKeys(body)},
	})
	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteState removes the user's document.
func (s *Server) handleDeleteState(w http.ResponseWriter, r *http.Request) {
	user, ok := s.stateUser(w, r, auth.PermStateWrite)
	if !ok {
		return
	}

	if err := s.states.Delete(r.Context(), user); err != nil {
		s.writeStateError(w, user, err)
		return
	}
	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionStateDelete,
		EntityType: audit.EntityUserState,
		EntityID:   user,
	})
	w.WriteHeader(http.StatusNoContent)
}

// writeStateError maps state store errors to responses.
func (s *Server) writeStateError(w http.ResponseWriter, user string, err error) {
	switch {
	case errors.Is(err, state.ErrNotFound):
		writeNotFound(w, "no state for user "+user)
	case errors.Is(err, state.ErrInvalidDocument), errors.Is(err, state.ErrInvalidUser):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error("state store error", "user", user, "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "state store unavailable")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
