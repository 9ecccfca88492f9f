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
// GPT PROVIDER (HUGGING FACE BACKED)
// =============================================================================

const (
	defaultHFBaseURL = "https://api-inference.huggingface.co"
	defaultHFModel   = "mistralai/Mixtral-8x7B-Instruct-v0.1"

	gptDisplayName = "GPT (Mixtral-8x7B)"
)

// GPT is the secondary remote provider, backed by the Hugging Face
// inference API with the rule-based responder as its terminal fallback.
// Any network-layer failure on the remote strategy (transport error,
// non-2xx, malformed payload) advances to the rules, so GenerateResponse
// never fails once the provider has been constructed.
type GPT struct {
	token   string
	baseURL string
	model   string
	rules   *RuleResponder
}

// NewGPT creates the GPT provider. The Hugging Face token is required at
// construction; without it the registry omits the "gpt" key.
func NewGPT(token string) (*GPT, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, missingCredentialErr("Hugging Face")
	}
	return &GPT{
		token:   token,
		baseURL: defaultHFBaseURL,
		model:   defaultHFModel,
		rules:   NewRuleResponder(),
	}, nil
}

// WithBaseURL overrides the API base URL.
func (g *GPT) WithBaseURL(url string) *GPT {
	g.baseURL = strings.TrimSuffix(url, "/")
	return g
}

// GetName returns the display name.
func (g *GPT) GetName() string {
	return gptDisplayName
}

// GenerateResponse runs the two-strategy chain: Hugging Face, then rules.
func (g *GPT) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	return runChain(ctx, prompt, []strategy{
		{name: "huggingface", generate: g.generateHF},
		ruleStrategy(g.rules),
	})
}

// =============================================================================
// HUGGING FACE STRATEGY
// =============================================================================

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

// hfGeneration is one element of the array the inference API returns.
type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (g *GPT) generateHF(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s", g.baseURL, g.model)
	headers := map[string]string{
		"Authorization": "Bearer " + g.token,
	}

	reqBody := hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens:   512,
			Temperature:    0.7,
			ReturnFullText: false,
		},
	}

	status, body, err := postJSON(ctx, url, headers, reqBody)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", remoteErr(status, hfErrorMessage(body))
	}

	// Success shape is an array of generations; the field must be present
	// and non-empty or the attempt is treated as malformed.
	var generations []hfGeneration
	if err := json.Unmarshal(body, &generations); err != nil {
		return "", malformedErr("huggingface: response is not a generation array")
	}
	if len(generations) == 0 || generations[0].GeneratedText == "" {
		return "", malformedErr("huggingface: missing generated_text")
	}
	return strings.TrimSpace(generations[0].GeneratedText), nil
}

// hfErrorMessage extracts the inference API's {"error": "..."} payload,
// which uses a bare string rather than the nested object most vendors use.
func hfErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}
