// Package scope provides the ambient current-scope state used to attribute
// diagnostic log lines to the store under evaluation.
package scope

import (
	"log/slog"

	"github.com/klevu/catalog-sync/internal/domain"
)

// Tracker is a stack of scopes. The top of the stack is the ambient current
// scope. A Tracker is not safe for concurrent use: each worker goroutine
// owns its own Tracker rather than sharing one process-wide stack.
type Tracker struct {
	stack []domain.Scope
}

// NewTracker creates an empty tracker (no current scope).
func NewTracker() *Tracker {
	return &Tracker{}
}

// Current returns the ambient scope and whether one is set.
func (t *Tracker) Current() (domain.Scope, bool) {
	if len(t.stack) == 0 {
		return domain.Scope{}, false
	}
	return t.stack[len(t.stack)-1], true
}

// With runs fn with the ambient scope set to sc. The previous state is
// restored on every exit path, including panics; when there was no previous
// scope the tracker returns to the unset state rather than holding a zero
// scope.
func (t *Tracker) With(sc domain.Scope, fn func() error) error {
	t.stack = append(t.stack, sc)
	defer func() {
		t.stack = t.stack[:len(t.stack)-1]
	}()
	return fn()
}

// Annotate returns the logger with store_id/tenant_key attributes of the
// current scope, or the logger unchanged when no scope is set.
func (t *Tracker) Annotate(l *slog.Logger) *slog.Logger {
	sc, ok := t.Current()
	if !ok {
		return l
	}
	return l.With(
		slog.Int64("store_id", sc.StoreID),
		slog.String("tenant_key", sc.TenantKey),
	)
}
