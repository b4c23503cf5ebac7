package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nerrad567/homedash/internal/audit"
	"github.com/nerrad567/homedash/internal/auth"
	"github.com/nerrad567/homedash/internal/dashboard"
)

// actionRequest is the body of POST /dashboard/action.
type actionRequest struct {
	UserName         string `json:"user_name"`
	AssistantRequest string `json:"assistant_request"`
}

// resolveUser picks the user a dashboard request is for: the explicit name,
// then the token subject, then dashboard.default_user.
func (s *Server) resolveUser(w http.ResponseWriter, r *http.Request, explicit string) (string, bool) {
	user := strings.TrimSpace(explicit)
	if user == "" {
		if claims := claimsFromContext(r.Context()); claims != nil {
			user = claims.Subject
		}
	}
	if user == "" {
		user = s.dashCfg.DefaultUser
	}
	if user == "" {
		writeBadRequest(w, "user_name is required")
		return "", false
	}
	if !auth.IsValidUsername(user) {
		writeBadRequest(w, "invalid user_name")
		return "", false
	}
	return user, true
}

// handleGetDashboard returns the composed dashboard for user_name.
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := s.resolveUser(w, r, r.URL.Query().Get("user_name"))
	if !ok {
		return
	}
	if !s.authorizeUser(w, r, user, auth.PermDashboardRead) {
		return
	}

	skeleton, err := s.composer.Compose(r.Context(), user)
	if err != nil {
		s.logger.Error("composing dashboard failed", "user", user, "error", err)
		writeInternalError(w, "failed to compose dashboard")
		return
	}
	writeJSON(w, http.StatusOK, skeleton)
}

// handleDashboardAction asks the agent for a new dashboard and returns it.
// Open dashboards for the same user receive it over the WebSocket too.
func (s *Server) handleDashboardAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.AssistantRequest) == "" {
		writeBadRequest(w, "assistant_request is required")
		return
	}

	user, ok := s.resolveUser(w, r, req.UserName)
	if !ok {
		return
	}
	if !s.authorizeUser(w, r, user, auth.PermDashboardAct) {
		return
	}

	skeleton, err := s.actions.HandleAction(r.Context(), user, req.AssistantRequest)
	switch {
	case errors.Is(err, dashboard.ErrEmptyRequest):
		writeBadRequest(w, "assistant_request is required")
		return
	case errors.Is(err, dashboard.ErrAgentFailed):
		writeBadGateway(w, "assistant could not produce a dashboard")
		return
	case err != nil:
		s.logger.Error("dashboard action failed", "user", user, "error", err)
		writeInternalError(w, "failed to store dashboard")
		return
	}

	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionDashboard,
		EntityType: audit.EntityDashboard,
		EntityID:   user,
		Details:    map[string]any{"request": req.AssistantRequest},
	})
	if s.hub != nil {
		s.hub.PushDashboard(user, skeleton)
	}
	writeJSON(w, http.StatusOK, skeleton)
}
