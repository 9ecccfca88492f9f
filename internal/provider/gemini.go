// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// GEMINI PROVIDER
// =============================================================================

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-1.5-flash"

	geminiDisplayName = "Gemini 1.5 Flash"
)

// Gemini is the primary remote provider, backed by Google's Generative
// Language API. It has a single hard-fail strategy: the credential is
// validated at construction, so request-time failures are always typed
// transport / remote / malformed errors.
type Gemini struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

// NewGemini creates the Gemini provider. Construction fails with a
// KindMissingCredential error when the API key is absent, which causes the
// registry to omit the "gemini" key entirely.
func NewGemini(apiKey string) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, missingCredentialErr("Gemini")
	}
	return &Gemini{
		apiKey:      apiKey,
		baseURL:     defaultGeminiBaseURL,
		model:       defaultGeminiModel,
		temperature: 0.7,
		maxTokens:   2048,
	}, nil
}

// WithBaseURL overrides the API base URL.
func (g *Gemini) WithBaseURL(url string) *Gemini {
	g.baseURL = strings.TrimSuffix(url, "/")
	return g
}

// WithModel overrides the model identifier.
func (g *Gemini) WithModel(model string) *Gemini {
	g.model = model
	return g
}

// GetName returns the display name.
func (g *Gemini) GetName() string {
	return geminiDisplayName
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// =============================================================================
// GENERATION
// =============================================================================

// GenerateResponse calls the generateContent endpoint. The success shape is
// validated defensively: a 2xx response missing candidates[0].content is a
// malformed-response failure, not a crash.
//
// The API key travels in the x-goog-api-key header, never the URL: transport
// errors embed the full URL in their text, and that text is logged.
func (g *Gemini) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     g.temperature,
			MaxOutputTokens: g.maxTokens,
		},
	}

	status, body, err := postJSON(ctx, url, map[string]string{"x-goog-api-key": g.apiKey}, reqBody)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", remoteErr(status, vendorErrorMessage(body))
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", malformedErr("gemini: response is not valid JSON")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", malformedErr("gemini: missing candidates[0].content")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
