package navigation

import (
	"context"
	"sync"
)

type ctxKey struct{}

// Redirect receives the navigation target produced while handling one
// request.
type Redirect struct {
	mu     sync.Mutex
	target string
}

// WithRedirect returns a context carrying an empty redirect slot.
func WithRedirect(ctx context.Context) (context.Context, *Redirect) {
	r := &Redirect{}
	return context.WithValue(ctx, ctxKey{}, r), r
}

// RedirectFrom returns the slot installed by WithRedirect, if any.
func RedirectFrom(ctx context.Context) (*Redirect, bool) {
	r, ok := ctx.Value(ctxKey{}).(*Redirect)
	return r, ok
}

func (r *Redirect) Set(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = target
}

// Target returns the last target set, and whether one was set.
func (r *Redirect) Target() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target, r.target != ""
}
