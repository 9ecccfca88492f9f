// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// =============================================================================
// CLAUDE PROVIDER
// =============================================================================

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultClaudeModel      = "claude-3-haiku-20240307"
	anthropicVersion        = "2023-06-01"

	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama-3.1-8b-instant"

	claudeDisplayName = "Claude 3 Haiku"
)

// Claude is the tertiary remote provider: the Anthropic messages endpoint,
// then a Groq OpenAI-compatible stage, then the rule-based responder. The
// Groq stage speaks the OpenAI wire contract, so it reuses the go-openai
// client with a custom base URL; it is present only when a Groq key was
// configured. The chain is total either way.
type Claude struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int

	groq      *openai.Client
	groqModel string

	rules *RuleResponder
}

// NewClaude creates the Claude provider. The Anthropic key is required at
// construction; the Groq key is optional and only enables the middle stage.
func NewClaude(apiKey, groqKey string) (*Claude, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, missingCredentialErr("Claude")
	}

	c := &Claude{
		apiKey:    apiKey,
		baseURL:   defaultAnthropicBaseURL,
		model:     defaultClaudeModel,
		maxTokens: 1024,
		groqModel: defaultGroqModel,
		rules:     NewRuleResponder(),
	}

	if groqKey = strings.TrimSpace(groqKey); groqKey != "" {
		cfg := openai.DefaultConfig(groqKey)
		cfg.BaseURL = defaultGroqBaseURL
		c.groq = openai.NewClientWithConfig(cfg)
	}
	return c, nil
}

// WithBaseURL overrides the Anthropic API base URL.
func (c *Claude) WithBaseURL(url string) *Claude {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithGroq replaces the Groq stage with a client pointed at the given base
// URL, keyed with key.
func (c *Claude) WithGroq(key, baseURL string) *Claude {
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	c.groq = openai.NewClientWithConfig(cfg)
	return c
}

// GetName returns the display name.
func (c *Claude) GetName() string {
	return claudeDisplayName
}

// GenerateResponse runs the chain: Anthropic, Groq when configured, rules.
func (c *Claude) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	strategies := []strategy{
		{name: "anthropic", generate: c.generateAnthropic},
	}
	if c.groq != nil {
		strategies = append(strategies, strategy{name: "groq", generate: c.generateGroq})
	}
	strategies = append(strategies, ruleStrategy(c.rules))
	return runChain(ctx, prompt, strategies)
}

// =============================================================================
// ANTHROPIC STRATEGY
// =============================================================================

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Claude) generateAnthropic(ctx context.Context, prompt string) (string, error) {
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}

	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}

	status, body, err := postJSON(ctx, c.baseURL+"/messages", headers, reqBody)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", remoteErr(status, vendorErrorMessage(body))
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", malformedErr("anthropic: response is not valid JSON")
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return "", malformedErr("anthropic: missing content[0].text")
	}
	return resp.Content[0].Text, nil
}

// =============================================================================
// GROQ STRATEGY
// =============================================================================

func (c *Claude) generateGroq(ctx context.Context, prompt string) (string, error) {
	resp, err := c.groq.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.groqModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", remoteErr(apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", transportErr(err)
	}
	if len(resp.Choices) == 0 {
		return "", malformedErr("groq: missing choices[0].message")
	}
	return resp.Choices[0].Message.Content, nil
}
