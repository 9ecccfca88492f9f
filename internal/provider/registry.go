// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"log"
)

// Provider lookup keys. Keys are stable identifiers for registry lookup and
// persistence; display names come from the providers themselves.
const (
	KeyGemini = "gemini"
	KeyGPT    = "gpt"
	KeyClaude = "claude"
)

// Credentials carries the secrets used to construct providers. Empty fields
// cause the corresponding provider to be omitted from the registry.
type Credentials struct {
	GeminiKey        string
	HuggingFaceToken string
	AnthropicKey     string
	GroqKey          string
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds the set of constructible providers. Availability is
// determined once, at construction, from credential presence - it is not
// re-checked per call. A provider whose credential was valid at startup is
// assumed available until a call fails for a transport reason, which is
// handled inside that provider's own fallback chain, not here.
type Registry struct {
	providers map[string]Provider
	order     []string
}

// NewRegistry attempts to construct every known provider variant in a fixed
// order (gemini, gpt, claude). Construction-time failures are logged and
// the key is omitted; building the registry itself never fails, and the
// registry never contains a partially-constructed entry.
func NewRegistry(creds Credentials) *Registry {
	r := &Registry{providers: make(map[string]Provider)}

	ctors := []struct {
		key  string
		ctor func() (Provider, error)
	}{
		{KeyGemini, func() (Provider, error) { return NewGemini(creds.GeminiKey) }},
		{KeyGPT, func() (Provider, error) { return NewGPT(creds.HuggingFaceToken) }},
		{KeyClaude, func() (Provider, error) { return NewClaude(creds.AnthropicKey, creds.GroqKey) }},
	}

	for _, c := range ctors {
		p, err := c.ctor()
		if err != nil {
			log.Printf("REGISTRY: provider %s unavailable: %v", c.key, err)
			continue
		}
		r.Register(c.key, p)
	}
	return r
}

// Register adds a provider under key, preserving insertion order for
// enumeration. Registering an existing key replaces the provider without
// changing its position.
func (r *Registry) Register(key string, p Provider) {
	if _, exists := r.providers[key]; !exists {
		r.order = append(r.order, key)
	}
	r.providers[key] = p
}

// Get returns the provider registered under key. The error names the
// requested key - never a display name - when the key is absent.
func (r *Registry) Get(key string) (Provider, error) {
	p, ok := r.providers[key]
	if !ok {
		return nil, &Error{
			Kind:    KindModelUnavailable,
			Message: fmt.Sprintf("model %q is not available", key),
		}
	}
	return p, nil
}

// ListAvailable enumerates the constructible providers in registration
// order (insertion order, not sorted).
func (r *Registry) ListAvailable() []Info {
	infos := make([]Info, 0, len(r.order))
	for _, key := range r.order {
		infos = append(infos, Info{Key: key, DisplayName: r.providers[key].GetName()})
	}
	return infos
}

// Len returns the number of available providers.
func (r *Registry) Len() int {
	return len(r.providers)
}
