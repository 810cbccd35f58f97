// Package static is a provider that answers immediately without calling out.
// It backs local deployments and end to end tests of the dispatch flow.
package static

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/adforge/adforge/internal/provider"
	"github.com/adforge/adforge/internal/types"
	"github.com/samber/lo"
)

var _ provider.Provider = (*Provider)(nil)

// Provider echoes the input media back as the generated output. An input URL
// ending in "#pending" yields a pending result instead.
type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() types.ProviderName {
	return types.ProviderStatic
}

func (p *Provider) Generate(ctx context.Context, prompt, inputMediaURL string) (*provider.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, provider.NewProviderError(p.Name(), err, "Provider request cancelled")
	}

	sum := sha256.Sum256([]byte(prompt + "\x00" + inputMediaURL))
	result := &provider.Result{
		ProviderJobID: lo.ToPtr("static_" + hex.EncodeToString(sum[:8])),
	}
	if !strings.HasSuffix(inputMediaURL, "#pending") {
		result.OutputMediaURL = lo.ToPtr(inputMediaURL)
	}
	return result, nil
}
