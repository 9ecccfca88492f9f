// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"regexp"
	"strings"
)

// =============================================================================
// RULE-BASED RESPONDER
// =============================================================================

// RuleResponder is the local, always-available terminal fallback. It
// performs a fixed ordered set of keyword checks against the lower-cased
// prompt and returns the first matching canned response. It never fails,
// which is what makes chains ending in it total.
type RuleResponder struct{}

// NewRuleResponder creates the rule-based responder.
func NewRuleResponder() *RuleResponder {
	return &RuleResponder{}
}

// GetName returns the display name of the responder.
func (r *RuleResponder) GetName() string {
	return "Offline Assistant"
}

// GenerateResponse resolves for every input: the first matching rule wins,
// and a generic response covers prompts no rule matches. Classification is
// deterministic - the same input always selects the same canned category.
func (r *RuleResponder) GenerateResponse(_ context.Context, prompt string) (string, error) {
	lowered := strings.ToLower(prompt)
	for _, rule := range cannedRules {
		if rule.match(lowered) {
			return rule.response, nil
		}
	}
	return genericResponse, nil
}

// =============================================================================
// RULE TABLE
// =============================================================================

// cannedRule pairs a predicate with its canned response. The table is
// evaluated top to bottom and the ORDER IS SIGNIFICANT: first match wins,
// and tests pin the order.
type cannedRule struct {
	name     string
	match    func(lowered string) bool
	response string
}

// containsAny returns a predicate matching if any keyword occurs as a
// substring of the lower-cased prompt.
func containsAny(keywords ...string) func(string) bool {
	return func(lowered string) bool {
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				return true
			}
		}
		return false
	}
}

// arithmeticPattern matches prompts that look like arithmetic: two digits
// separated by a basic operator.
var arithmeticPattern = regexp.MustCompile(`\d\s*[-+*/%^]\s*\d`)

const genericResponse = "I'm not sure I fully understood that, but I'm happy to keep chatting. Could you rephrase or add a little more detail?"

var cannedRules = []cannedRule{
	{
		name:     "greeting",
		match:    containsAny("hello", "hi", "hey", "good morning", "good evening"),
		response: "Hello! How can I assist you today?",
	},
	{
		name:     "help",
		match:    containsAny("help"),
		response: "I'm here to help! You can ask me questions, request explanations, get coding tips, or just chat.",
	},
	{
		name:     "question",
		match:    containsAny("who", "what", "when", "where", "why", "how"),
		response: "That's a great question! I don't have access to my full knowledge right now, but try breaking it down into smaller parts - the answer often falls out of the pieces.",
	},
	{
		name:     "thanks",
		match:    containsAny("thank"),
		response: "You're welcome! Happy to help anytime.",
	},
	{
		name:     "programming",
		match:    containsAny("code", "function", "variable", "python", "javascript", "java", "bug", "error", "program"),
		response: "It looks like you're working on code. Break the problem into small functions, log at the boundaries, and test each piece in isolation - most bugs live in the assumptions between steps.",
	},
	{
		name:     "arithmetic",
		match:    arithmeticPattern.MatchString,
		response: "I can see some math in there! I can't compute exact results in offline mode, but double-check the order of operations and try a calculator for precision.",
	},
	{
		name:     "explain",
		match:    containsAny("explain", "what is"),
		response: "Here's a way to approach it: start from the simplest definition, then add detail one layer at a time until the whole picture is clear.",
	},
	{
		name:     "writing",
		match:    containsAny("write", "story"),
		response: "I'd love to help you write! Start with a character who wants something, put an obstacle in the way, and let overcoming it change them.",
	},
}
