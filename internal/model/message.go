// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// A message is immutable once created. For assistant messages, Responder
// carries the human-readable display name of the provider that produced the
// text ("Gemini 1.5 Flash"), which is distinct from the provider's lookup
// key ("gemini") and must never be used for registry lookups.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	// Responder is the display name of the provider that generated this
	// message. Only set for assistant messages.
	Responder string `json:"responder,omitempty"`

	// Attachments are the files attached to this message. Only set for
	// user messages, and read-only once the message has been sent.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, text string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message with optional attachments.
func NewUserMessage(text string, attachments []Attachment) *Message {
	msg := NewMessage(RoleUser, text)
	msg.Attachments = attachments
	return msg
}

// NewAssistantMessage creates a new assistant message attributed to the
// given responder display name.
func NewAssistantMessage(text, responder string) *Message {
	msg := NewMessage(RoleAssistant, text)
	msg.Responder = responder
	return msg
}
