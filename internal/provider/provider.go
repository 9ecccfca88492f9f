// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// =============================================================================
// PROVIDER CONTRACT
// =============================================================================

// Provider is the capability abstraction the rest of the system depends on:
// it can turn a text prompt into a text response, and it can report its
// human-readable display name. Nothing outside this package may depend on a
// concrete provider type.
type Provider interface {
	// GetName returns the display name ("Gemini 1.5 Flash"). Pure, no side
	// effects, and distinct from the registry lookup key.
	GetName() string

	// GenerateResponse resolves with generated text or fails with a typed
	// *Error. Providers whose chain ends in the rule-based responder never
	// fail.
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

// Info describes an available provider for enumeration.
type Info struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
}

// =============================================================================
// FALLBACK CHAIN
// =============================================================================

// strategy is one attempt in a provider's fallback chain.
type strategy struct {
	name     string
	generate func(ctx context.Context, prompt string) (string, error)
}

// runChain attempts each strategy in order, strictly sequentially, and
// returns the first success. Every failure advances to the next strategy;
// the error surfaced when all strategies fail is the last one observed.
// Strategies are never raced: the canonical response is "the first strategy
// that succeeds", not "the fastest".
func runChain(ctx context.Context, prompt string, strategies []strategy) (string, error) {
	var lastErr error
	for _, s := range strategies {
		text, err := s.generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		log.Printf("PROVIDER: strategy %s failed, advancing: %v", s.name, err)
		lastErr = err
	}
	return "", lastErr
}

// ruleStrategy wraps the rule-based responder as a chain strategy. It is
// total and must always be the terminal strategy of any chain using it.
func ruleStrategy(r *RuleResponder) strategy {
	return strategy{
		name: "rules",
		generate: func(ctx context.Context, prompt string) (string, error) {
			return r.GenerateResponse(ctx, prompt)
		},
	}
}

// =============================================================================
// HTTP TRANSPORT
// =============================================================================

const (
	// defaultTimeout is the timeout for provider API requests.
	defaultTimeout = 60 * time.Second

	// maxResponseSize limits response bodies to prevent memory exhaustion.
	maxResponseSize = 10 * 1024 * 1024
)

// sharedHTTPClient is used by all hand-rolled vendor clients. Connection
// pooling reduces handshake overhead across requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
	Timeout: defaultTimeout,
}

// postJSON marshals body, POSTs it to url with the given headers, and
// returns the status code and raw response body. A network-level failure is
// returned as a KindTransport *Error; non-2xx statuses are returned to the
// caller for vendor-specific handling.
func postJSON(ctx context.Context, url string, headers map[string]string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return 0, nil, transportErr(err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp.Body, maxResponseSize)
	if err != nil {
		return resp.StatusCode, nil, transportErr(err)
	}
	return resp.StatusCode, data, nil
}

// readResponse reads a response body of at most limit bytes. Reading one
// byte past the limit distinguishes a body of exactly limit bytes, which is
// valid, from one that was cut off.
func readResponse(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", limit)
	}
	return data, nil
}

// vendorErrorMessage extracts the conventional {"error": {"message": ...}}
// payload most vendors return on non-2xx statuses. Returns "" when the body
// does not carry one.
func vendorErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}
