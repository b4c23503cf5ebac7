package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/homedash/internal/agent"
	"github.com/nerrad567/homedash/internal/state"
)

var (
	// ErrEmptyRequest is returned for a blank assistant request.
	ErrEmptyRequest = errors.New("dashboard: assistant request is required")

	// ErrAgentFailed wraps any failure to obtain a usable dashboard from
	// the agent. Nothing is written when it is returned.
	ErrAgentFailed = errors.New("dashboard: agent failed")
)

// Agent produces dashboard skeletons. Satisfied by *agent.Client.
type Agent interface {
	RequestDashboard(ctx context.Context, user, input string) (json.RawMessage, error)
}

// DocumentUpdater applies partial updates. Satisfied by *state.Store.
type DocumentUpdater interface {
	Update(ctx context.Context, user string, fields state.Fields) (*state.Document, error)
}

// ActionHandler turns a natural-language request into a new dashboard.
type ActionHandler struct {
	agent    Agent
	docs     DocumentUpdater
	composer *Composer
	logger   Logger
}

// NewActionHandler creates a handler.
func NewActionHandler(a Agent, docs DocumentUpdater, composer *Composer) *ActionHandler {
	return &ActionHandler{agent: a, docs: docs, composer: composer, logger: noopLogger{}}
}

// SetLogger sets the logger for the handler.
func (h *ActionHandler) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	h.logger = logger
}

// HandleAction forwards request to the agent, caches the returned skeleton
// verbatim and returns it with current telemetry applied. When the agent
// fails or its reply is unusable the cache is not touched.
func (h *ActionHandler) HandleAction(ctx context.Context, user, request string) (*Skeleton, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, ErrEmptyRequest
	}

	h.logger.Info("dashboard action", "user", user, "request", request)

	raw, err := h.agent.RequestDashboard(ctx, user, request)
	if err != nil {
		h.logger.Error("agent request failed", "user", user, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAgentFailed, err)
	}
	if err := agent.ValidateDashboard(raw); err != nil {
		h.logger.Error("agent returned invalid dashboard", "user", user, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAgentFailed, err)
	}
	skeleton, err := decodeSkeleton(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAgentFailed, err)
	}

	doc, err := h.docs.Update(ctx, user, state.Fields{state.FieldSmarthomeDashboard: raw})
	if err != nil {
		return nil, fmt.Errorf("dashboard: caching skeleton for %s: %w", user, err)
	}

	h.composer.ApplyTelemetry(skeleton, doc)
	return skeleton, nil
}
