package postgres

import (
	"context"
	"sync"
)

type commitHooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

func (h *commitHooks) add(fns ...func(context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fns...)
}

func (h *commitHooks) drain() []func(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fns := h.fns
	h.fns = nil
	return fns
}

// TrackCommit runs fn with a context that collects AfterCommit callbacks.
// Callbacks registered by a nested level move to the enclosing level when fn
// succeeds. The outermost level runs them once fn, including its commit,
// returned nil. A failed level drops its callbacks.
func TrackCommit(ctx context.Context, fn func(ctx context.Context) error) error {
	parent, nested := ctx.Value(commitHooksKey{}).(*commitHooks)
	hooks := &commitHooks{}

	if err := fn(context.WithValue(ctx, commitHooksKey{}, hooks)); err != nil {
		return err
	}

	if nested {
		parent.add(hooks.drain()...)
		return nil
	}
	for _, hook := range hooks.drain() {
		hook(ctx)
	}
	return nil
}

// AfterCommit defers fn until the transaction carried by ctx has committed.
// Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if hooks, ok := ctx.Value(commitHooksKey{}).(*commitHooks); ok {
		hooks.add(fn)
		return
	}
	fn(ctx)
}
