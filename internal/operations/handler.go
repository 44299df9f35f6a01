// Package operations implements the serve, convert and compress actions.
package operations

import (
	"context"

	"github.com/sirupsen/logrus"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/logging"
	"evalgo.org/rdfendpoint/internal/store"
)

// Handler defines the interface for action handlers
type Handler interface {
	// Handle executes the action and returns the result
	Handle(ctx context.Context, task domain.Task) (map[string]interface{}, error)
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	Stores  *store.Registry
	Console *logging.Console
	Log     *logrus.Entry
}

// Result is a helper for building operation results
func Result() map[string]interface{} {
	return make(map[string]interface{})
}

// SetResult sets a field in the result map
func SetResult(result map[string]interface{}, key string, value interface{}) {
	result[key] = value
}
