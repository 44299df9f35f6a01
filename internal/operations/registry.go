package operations

import (
	"context"

	"github.com/sirupsen/logrus"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/logging"
	"evalgo.org/rdfendpoint/internal/store"
)

// Registry manages action handlers
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates a registry with the serve, convert and compress handlers.
// A nil console prints to stdout; a nil logger uses the package logger.
func NewRegistry(stores *store.Registry, console *logging.Console, log *logrus.Entry) *Registry {
	if stores == nil {
		stores = store.NewRegistry()
	}
	if console == nil {
		console = logging.Stdout
	}
	if log == nil {
		log = logging.Logger.WithField("component", "operations")
	}
	base := BaseHandler{Stores: stores, Console: console, Log: log}

	reg := &Registry{
		handlers: make(map[string]Handler),
	}

	reg.Register(domain.ActionServe, &ServeHandler{BaseHandler: base})
	reg.Register(domain.ActionConvert, &ConvertHandler{BaseHandler: base})
	reg.Register(domain.ActionCompress, &CompressHandler{BaseHandler: base})

	return reg
}

// Register registers a handler for an action
func (r *Registry) Register(action string, handler Handler) {
	r.handlers[action] = handler
}

// Handle executes an operation by routing to the appropriate handler
func (r *Registry) Handle(ctx context.Context, task domain.Task) (map[string]interface{}, error) {
	handler, exists := r.handlers[task.Action]
	if !exists {
		return nil, domain.NewNotFoundError("action", task.Action)
	}

	return handler.Handle(ctx, task)
}

// GetHandler returns the handler for an action (useful for testing)
func (r *Registry) GetHandler(action string) (Handler, bool) {
	handler, exists := r.handlers[action]
	return handler, exists
}
