// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_AllCredentials(t *testing.T) {
	r := NewRegistry(Credentials{
		GeminiKey:        "g-key",
		HuggingFaceToken: "hf-token",
		AnthropicKey:     "a-key",
		GroqKey:          "groq-key",
	})

	require.Equal(t, 3, r.Len())

	infos := r.ListAvailable()
	require.Len(t, infos, 3)
	// Registration order, not sorted.
	assert.Equal(t, []string{KeyGemini, KeyGPT, KeyClaude}, []string{infos[0].Key, infos[1].Key, infos[2].Key})
	assert.Equal(t, "Gemini 1.5 Flash", infos[0].DisplayName)
	assert.Equal(t, "GPT (Mixtral-8x7B)", infos[1].DisplayName)
	assert.Equal(t, "Claude 3 Haiku", infos[2].DisplayName)
}

func TestNewRegistry_MissingCredentialsOmitted(t *testing.T) {
	// Registry construction must succeed with no credentials at all.
	r := NewRegistry(Credentials{})
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.ListAvailable())
}

func TestNewRegistry_PartialCredentials(t *testing.T) {
	r := NewRegistry(Credentials{HuggingFaceToken: "hf-token"})

	infos := r.ListAvailable()
	require.Len(t, infos, 1)
	assert.Equal(t, KeyGPT, infos[0].Key)

	_, err := r.Get(KeyGemini)
	require.Error(t, err)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindModelUnavailable, pe.Kind)
	// The error names the requested key, never a display name.
	assert.Contains(t, pe.Message, "gemini")
	assert.False(t, strings.Contains(pe.Message, "Gemini 1.5 Flash"))
}

func TestRegistry_GetReturnsRegisteredProvider(t *testing.T) {
	r := NewRegistry(Credentials{GeminiKey: "g-key"})

	p, err := r.Get(KeyGemini)
	require.NoError(t, err)
	assert.Equal(t, "Gemini 1.5 Flash", p.GetName())
}

// stubProvider is a minimal Provider for registry behavior tests.
type stubProvider struct {
	name string
	text string
	err  error
}

func (s *stubProvider) GetName() string { return s.name }

func (s *stubProvider) GenerateResponse(context.Context, string) (string, error) {
	return s.text, s.err
}

func TestRegistry_RegisterPreservesInsertionOrder(t *testing.T) {
	r := &Registry{providers: make(map[string]Provider)}
	r.Register("zeta", &stubProvider{name: "Zeta"})
	r.Register("alpha", &stubProvider{name: "Alpha"})
	r.Register("zeta", &stubProvider{name: "Zeta v2"}) // replace, keep position

	infos := r.ListAvailable()
	require.Len(t, infos, 2)
	assert.Equal(t, "zeta", infos[0].Key)
	assert.Equal(t, "Zeta v2", infos[0].DisplayName)
	assert.Equal(t, "alpha", infos[1].Key)
}
