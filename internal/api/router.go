package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homedash/internal/auth"
)

// healthCheckTimeout bounds the state backend ping in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", s.handleGetDashboard)
				r.Post("/action", s.handleDashboardAction)
				r.Get("/ws", s.handleWebSocket)
			})

			r.Route("/users/{user}/state", func(r chi.Router) {
				r.Get("/", s.handleGetState)
				r.Put("/", s.handlePutState)
				r.Patch("/", s.handlePatchState)
				r.Delete("/", s.handleDeleteState)
			})

			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAudit)

			r.Route("/lights", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermLightRead)).Get("/", s.handleListLights)
				r.With(s.requirePermission(auth.PermLightScan)).Post("/scan", s.handleScanLights)
				r.With(s.requirePermission(auth.PermLightRead)).Post("/refresh", s.handleRefreshLights)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission(auth.PermLightRead)).Get("/", s.handleGetLight)

					r.Group(func(r chi.Router) {
						r.Use(s.requirePermission(auth.PermLightOperate))
						r.Post("/on", s.handleLightOn)
						r.Post("/off", s.handleLightOff)
						r.Post("/toggle", s.handleLightToggle)
						r.Put("/brightness", s.handleLightBrightness)
						r.Put("/temperature", s.handleLightTemperature)
						r.Put("/rgb", s.handleLightRGB)
					})
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status. It reports 503 when the
// state backend does not answer.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status, code, stateStatus := "ok", http.StatusOK, "ok"
	if err := s.states.Ping(ctx); err != nil {
		s.logger.Warn("state backend health check failed", "error", err)
		status, code, stateStatus = "degraded", http.StatusServiceUnavailable, "unavailable"
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"state":   stateStatus,
		"lights":  s.registry.Count(),
	})
}
