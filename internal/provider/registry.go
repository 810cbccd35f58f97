package provider

import (
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
	"github.com/samber/lo"
)

// Registry is the closed set of providers a deployment can dispatch to
type Registry struct {
	providers map[types.ProviderName]Provider
	fallback  types.ProviderName
}

// NewRegistry registers providers by name. Jobs that name no provider use fallback.
func NewRegistry(fallback types.ProviderName, providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[types.ProviderName]Provider, len(providers)),
		fallback:  fallback,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider registered under name
func (r *Registry) Get(name types.ProviderName) (Provider, error) {
	if name == "" {
		name = r.fallback
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, ierr.NewError("provider not configured").
			WithHint("Generation provider is not available").
			WithReportableDetails(map[string]any{
				"provider":  name,
				"available": r.Names(),
			}).
			Mark(ierr.ErrProvider)
	}
	return p, nil
}

// Names lists the registered providers
func (r *Registry) Names() []types.ProviderName {
	return lo.Keys(r.providers)
}
