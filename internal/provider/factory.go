package provider

import (
	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/types"
)

// NewConfiguredRegistry rate limits every configured provider and registers it.
// providers must be the concrete adapters built for this deployment.
func NewConfiguredRegistry(cfg *config.Configuration, providers ...Provider) *Registry {
	wrapped := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		if p.Name() == types.ProviderStatic {
			wrapped = append(wrapped, p)
			continue
		}
		wrapped = append(wrapped, NewRateLimited(p, cfg.Provider.RatePerSecond, cfg.Provider.Burst))
	}
	return NewRegistry(cfg.Provider.Default, wrapped...)
}
