// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClaude_RequiresAnthropicKey(t *testing.T) {
	_, err := NewClaude("", "groq-key")
	require.Error(t, err)
	assert.True(t, hasKind(err, KindMissingCredential))

	// The Groq key is optional.
	c, err := NewClaude("ant-key", "")
	require.NoError(t, err)
	assert.Nil(t, c.groq)
}

func TestClaude_GenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "ant-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "ping", req.Messages[0].Content)

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "pong"}},
		})
	}))
	defer srv.Close()

	c, err := NewClaude("ant-key", "")
	require.NoError(t, err)
	c.WithBaseURL(srv.URL)

	text, err := c.GenerateResponse(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", text)
}

// When the Anthropic stage fails with a non-success status, the chain must
// try the Groq stage before surfacing anything.
func TestClaude_AnthropicFailureAdvancesToGroq(t *testing.T) {
	var anthropicCalls int
	anthropic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		anthropicCalls++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "Rate limit exceeded"}}`))
	}))
	defer anthropic.Close()

	var groqCalls int
	groq := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		groqCalls++
		assert.Equal(t, 1, anthropicCalls, "groq must be attempted after anthropic")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "groq says hi"}},
			},
		})
	}))
	defer groq.Close()

	c, _ := NewClaude("ant-key", "")
	c.WithBaseURL(anthropic.URL).WithGroq("groq-key", groq.URL)

	text, err := c.GenerateResponse(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "groq says hi", text)
	assert.Equal(t, 1, groqCalls)
}

// With every remote stage down, the rule-based stage still resolves.
func TestClaude_AllRemotesFailFallsBackToRules(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	c, _ := NewClaude("ant-key", "")
	c.WithBaseURL(failing.URL).WithGroq("groq-key", failing.URL)

	text, err := c.GenerateResponse(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I assist you today?", text)
}

func TestClaude_MalformedAnthropicBodyAdvances(t *testing.T) {
	anthropic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with an empty content block.
		w.Write([]byte(`{"content": []}`))
	}))
	defer anthropic.Close()

	c, _ := NewClaude("ant-key", "")
	c.WithBaseURL(anthropic.URL)

	text, err := c.GenerateResponse(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I assist you today?", text)
}
