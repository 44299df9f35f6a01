package operations

import (
	"context"

	"evalgo.org/rdfendpoint/auth"
	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/endpoint"
)

// ServeHandler loads the inputs and runs the SPARQL endpoint until ctx is done.
type ServeHandler struct {
	BaseHandler
}

// Handle executes the serve action
func (h *ServeHandler) Handle(ctx context.Context, task domain.Task) (map[string]interface{}, error) {
	cfg := task.Serve
	if cfg == nil {
		cfg = &domain.ServeConfig{}
	}

	s, err := h.openForServe(ctx, task)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.Close(); err != nil {
			h.Log.WithError(err).Warn("Failed to close store")
		}
	}()

	var journal *auth.AuditLogger
	if cfg.UpdateLog != "" {
		journal, err = auth.NewAuditLogger(cfg.UpdateLog)
		if err != nil {
			return nil, domain.NewOperationError("serve", "failed to open update journal", err)
		}
	}
	if !cfg.EnableUpdate && (cfg.APIKeyHash != "" || cfg.TokenSecret != "") {
		h.Console.Warn("Update credentials are set but updates are disabled, use --enable-update")
	}

	srv := endpoint.New(s, endpoint.Config{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Title:        cfg.Title,
		Description:  cfg.Description,
		QueryTimeout: cfg.QueryTimeout,
		EnableUpdate: cfg.EnableUpdate,
		APIKeyHash:   cfg.APIKeyHash,
		TokenSecret:  cfg.TokenSecret,
		Journal:      journal,
		Logger:       h.Log.WithField("component", "endpoint"),
	})
	h.Console.Info("🚀 Serving SPARQL endpoint on http://%s", h.Console.Bold(srv.Addr()))

	if err := srv.Run(ctx); err != nil {
		return nil, domain.NewOperationError("serve", "endpoint stopped", err)
	}

	result := Result()
	SetResult(result, "status", "stopped")
	SetResult(result, "addr", srv.Addr())
	SetResult(result, "backend", s.Backend().String())
	return result, nil
}
