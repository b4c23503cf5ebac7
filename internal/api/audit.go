package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/homedash/internal/audit"
)

// auditWriteTimeout bounds an audit insert once the response is decided.
const auditWriteTimeout = 2 * time.Second

// recordAudit writes e when the audit log is enabled. Failures are logged
// and never change the response. The acting user comes from the token.
func (s *Server) recordAudit(r *http.Request, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if e.UserID == "" {
		if claims := claimsFromContext(r.Context()); claims != nil {
			e.UserID = claims.Subject
		}
	}
	e.Source = audit.SourceAPI

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), auditWriteTimeout)
	defer cancel()
	if err := s.audit.Create(ctx, &e); err != nil {
		s.logger.Warn("audit write failed",
			"action", e.Action,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"error", err,
		)
	}
}

// handleListAudit returns audit entries, newest first.
//
// Query parameters:
//   - action, entity_type, entity_id, user: exact-match filters
//   - limit (default 50, max 200), offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit log is disabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
