package provider

import (
	"context"

	"github.com/adforge/adforge/internal/types"
	"golang.org/x/time/rate"
)

// RateLimited bounds the request rate sent to a provider. Waiting for a token
// honours the caller's context so the dispatch timeout still applies.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps p. A non-positive rate disables limiting.
func NewRateLimited(p Provider, perSecond float64, burst int) Provider {
	if perSecond <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		inner:   p,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (r *RateLimited) Name() types.ProviderName {
	return r.inner.Name()
}

func (r *RateLimited) Generate(ctx context.Context, prompt, inputMediaURL string) (*Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, NewProviderError(r.inner.Name(), err, "Provider rate limit wait aborted")
	}
	return r.inner.Generate(ctx, prompt, inputMediaURL)
}

// Poll forwards to the wrapped provider when it supports polling
func (r *RateLimited) Poll(ctx context.Context, providerJobID string) (*Result, error) {
	poller, ok := r.inner.(Poller)
	if !ok {
		return &Result{ProviderJobID: &providerJobID}, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, NewProviderError(r.inner.Name(), err, "Provider rate limit wait aborted")
	}
	return poller.Poll(ctx, providerJobID)
}

// Unwrap returns the wrapped provider
func (r *RateLimited) Unwrap() Provider {
	return r.inner
}

// AsPoller returns the polling capability of p, looking through wrappers
func AsPoller(p Provider) (Poller, bool) {
	if rl, ok := p.(*RateLimited); ok {
		if _, ok := rl.inner.(Poller); !ok {
			return nil, false
		}
		return rl, true
	}
	poller, ok := p.(Poller)
	return poller, ok
}
