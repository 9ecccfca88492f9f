// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/yawarquil/advance-ai-chatbot/internal/model"
	"github.com/yawarquil/advance-ai-chatbot/internal/provider"
)

// ErrConversationBusy is returned when a Send arrives while a generation is
// already running for the same conversation. The second request is rejected,
// never queued.
var ErrConversationBusy = errors.New("a response is already being generated for this conversation")

// attachmentHeader introduces the attachment blocks appended to the prompt.
const attachmentHeader = "The user attached the following files:"

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Store is the slice of the persistence layer the orchestrator commits to.
// Commits happen synchronously after the outcome is produced, before the
// orchestrator returns.
type Store interface {
	SaveConversation(conv *model.Conversation) error
	SaveCurrentConversation(conv *model.Conversation) error
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator drives a conversation turn end to end: prompt assembly,
// provider resolution, generation, failure classification, and the commit
// to the store. It never panics out of a turn and never returns a provider
// failure as an error - those become Failure outcomes.
type Orchestrator struct {
	registry *provider.Registry
	store    Store

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewOrchestrator creates an orchestrator over the given registry and store.
// A nil store disables persistence.
func NewOrchestrator(registry *provider.Registry, store Store) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		store:    store,
		inFlight: make(map[string]bool),
	}
}

// Send appends the user's message to the conversation, generates a response
// with the provider registered under providerKey, appends the assistant
// message on success, and commits. The error return carries only busy
// rejections and persistence failures; generation failures are reported
// inside the Outcome.
func (o *Orchestrator) Send(ctx context.Context, conv *model.Conversation, text string, attachments []model.Attachment, providerKey string) (*Outcome, error) {
	if !o.acquire(conv.ID) {
		return nil, ErrConversationBusy
	}
	defer o.release(conv.ID)

	conv.AddMessage(model.NewUserMessage(text, attachments))

	prompt := buildPrompt(text, attachments)
	outcome := o.generate(ctx, providerKey, prompt)
	if outcome.Succeeded() {
		conv.AddMessage(model.NewAssistantMessage(outcome.Reply.Text, outcome.Reply.Responder))
	}
	return outcome, o.commit(conv)
}

// Regenerate discards the trailing assistant message, if any, and re-sends
// the last user message's text. Attachments are NOT replayed. When the
// conversation holds no user message there is nothing to regenerate and the
// call is a no-op returning a nil outcome.
func (o *Orchestrator) Regenerate(ctx context.Context, conv *model.Conversation, providerKey string) (*Outcome, error) {
	if !o.acquire(conv.ID) {
		return nil, ErrConversationBusy
	}
	defer o.release(conv.ID)

	last := conv.LastUserMessage()
	if last == nil {
		return nil, nil
	}
	conv.PopLastAssistant()

	outcome := o.generate(ctx, providerKey, last.Text)
	if outcome.Succeeded() {
		conv.AddMessage(model.NewAssistantMessage(outcome.Reply.Text, outcome.Reply.Responder))
	}
	return outcome, o.commit(conv)
}

// Retry re-sends the last user message's text without removing anything.
// It is meant for the state after a Failure outcome, where no assistant
// message was appended. Like Regenerate, it is a no-op when the conversation
// holds no user message.
func (o *Orchestrator) Retry(ctx context.Context, conv *model.Conversation, providerKey string) (*Outcome, error) {
	if !o.acquire(conv.ID) {
		return nil, ErrConversationBusy
	}
	defer o.release(conv.ID)

	last := conv.LastUserMessage()
	if last == nil {
		return nil, nil
	}

	outcome := o.generate(ctx, providerKey, last.Text)
	if outcome.Succeeded() {
		conv.AddMessage(model.NewAssistantMessage(outcome.Reply.Text, outcome.Reply.Responder))
	}
	return outcome, o.commit(conv)
}

// =============================================================================
// GENERATION
// =============================================================================

// generate resolves the provider and invokes it, classifying every failure
// mode - including a panicking provider - into a Failure outcome. An
// unresolvable key fails before any network activity.
func (o *Orchestrator) generate(ctx context.Context, providerKey, prompt string) (outcome *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ORCHESTRATOR: provider %s panicked: %v", providerKey, r)
			outcome = failureOutcome(fmt.Errorf("provider panic: %v", r))
		}
	}()

	p, err := o.registry.Get(providerKey)
	if err != nil {
		log.Printf("ORCHESTRATOR: provider %s not available", providerKey)
		return failureOutcome(err)
	}

	text, err := p.GenerateResponse(ctx, prompt)
	if err != nil {
		log.Printf("ORCHESTRATOR: generation via %s failed: %v", providerKey, err)
		return failureOutcome(err)
	}
	return successOutcome(text, p.GetName())
}

// =============================================================================
// PROMPT ASSEMBLY
// =============================================================================

// buildPrompt produces the effective prompt: the user's text, then a header
// line, then one block per attachment, all separated by blank lines. Text
// attachments with content inline it; anything else contributes a
// name-and-type reference line. No attachments means the text passes
// through untouched.
func buildPrompt(text string, attachments []model.Attachment) string {
	if len(attachments) == 0 {
		return text
	}

	blocks := make([]string, 0, len(attachments)+2)
	blocks = append(blocks, text, attachmentHeader)
	for _, att := range attachments {
		if att.Inlinable() {
			blocks = append(blocks, fmt.Sprintf("%s:\n%s", att.Name, att.Content))
		} else {
			blocks = append(blocks, fmt.Sprintf("%s (%s)", att.Name, att.MimeType))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// =============================================================================
// COMMIT AND GUARD
// =============================================================================

// commit persists the conversation synchronously. Both the history entry
// and the current-conversation buffer are written so a crash between turns
// never loses the active chat.
func (o *Orchestrator) commit(conv *model.Conversation) error {
	if o.store == nil {
		return nil
	}
	if err := o.store.SaveConversation(conv); err != nil {
		return fmt.Errorf("saving conversation %s: %w", conv.ID, err)
	}
	if err := o.store.SaveCurrentConversation(conv); err != nil {
		return fmt.Errorf("saving current conversation: %w", err)
	}
	return nil
}

// acquire marks the conversation as having a generation in flight. Returns
// false when one is already running.
func (o *Orchestrator) acquire(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[id] {
		return false
	}
	o.inFlight[id] = true
	return true
}

func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, id)
}
