package provider

import "errors"

var ErrProviderNotSupported = errors.New("provider is not supported")

// Registry resolves a payment method to the gateway serving it.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	items := make(map[string]Provider)
	for _, p := range providers {
		for _, method := range p.Methods() {
			items[method] = p
		}
	}
	return &Registry{providers: items}
}

func (r *Registry) Get(method string) (Provider, error) {
	provider, ok := r.providers[method]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return provider, nil
}

func (r *Registry) Supports(method string) bool {
	_, ok := r.providers[method]
	return ok
}
