// Package routing holds the ordered endpoint list and error classification.
//
// The endpoint list is static: it is built once at startup and every caller
// walks it from the primary. Failures never demote or reorder endpoints.
package routing

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/h1labs/labs/internal/infra/rpc/provider"
)

// EndpointList is an immutable, ordered sequence of providers. The first entry is the primary.
type EndpointList struct {
	providers []provider.Provider
}

// NewEndpointList builds a list from already constructed providers.
func NewEndpointList(providers ...provider.Provider) (*EndpointList, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("endpoint list: at least one provider is required")
	}
	seen := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		if _, dup := seen[p.GetName()]; dup {
			return nil, fmt.Errorf("endpoint list: duplicate provider name %q", p.GetName())
		}
		seen[p.GetName()] = struct{}{}
	}
	list := make([]provider.Provider, len(providers))
	copy(list, providers)
	return &EndpointList{providers: list}, nil
}

// NewHTTPEndpointList creates HTTP providers for a primary URL and its fallbacks.
// Blank and repeated URLs are skipped.
func NewHTTPEndpointList(primary string, fallbacks []string, timeout time.Duration) (*EndpointList, error) {
	var providers []provider.Provider
	seen := make(map[string]struct{})
	for i, raw := range append([]string{primary}, fallbacks...) {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		if _, err := url.ParseRequestURI(u); err != nil {
			return nil, fmt.Errorf("endpoint list: invalid url %q: %w", u, err)
		}
		seen[u] = struct{}{}

		name := "primary"
		if i > 0 {
			name = fmt.Sprintf("fallback-%d", i)
		}
		providers = append(providers, provider.NewHTTPProvider(name, u, timeout))
	}
	return NewEndpointList(providers...)
}

// Primary returns the first provider.
func (l *EndpointList) Primary() provider.Provider {
	return l.providers[0]
}

// All returns the providers in priority order. The returned slice is a copy.
func (l *EndpointList) All() []provider.Provider {
	out := make([]provider.Provider, len(l.providers))
	copy(out, l.providers)
	return out
}

// Len returns the number of providers.
func (l *EndpointList) Len() int {
	return len(l.providers)
}

// Close closes every provider.
func (l *EndpointList) Close() error {
	var firstErr error
	for _, p := range l.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
