// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/yawarquil/advance-ai-chatbot/internal/provider"

// =============================================================================
// OUTCOME TYPE
// =============================================================================

// Outcome is the result of one generation attempt. Exactly one of Reply or
// Failure is set. A Failure is a normal outcome, not an error: the error
// return of the orchestrator methods is reserved for persistence problems,
// which travel on a separate channel from AI-call failures.
type Outcome struct {
	Reply   *Reply   `json:"reply,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// Reply is a successful generation.
type Reply struct {
	Text string `json:"text"`
	// Responder is the display name of the provider (or fallback stage)
	// that produced the text.
	Responder string `json:"responder"`
}

// Failure is a classified, user-presentable generation failure.
type Failure struct {
	Kind    provider.Kind `json:"-"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
}

// Succeeded reports whether the outcome carries a reply.
func (o *Outcome) Succeeded() bool {
	return o != nil && o.Reply != nil
}

func successOutcome(text, responder string) *Outcome {
	return &Outcome{Reply: &Reply{Text: text, Responder: responder}}
}

func failureOutcome(err error) *Outcome {
	pe := provider.AsError(err)
	return &Outcome{Failure: &Failure{
		Kind:    pe.Kind,
		Code:    pe.Kind.String(),
		Message: pe.Message,
	}}
}
