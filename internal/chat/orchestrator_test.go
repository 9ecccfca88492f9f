// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yawarquil/advance-ai-chatbot/internal/model"
	"github.com/yawarquil/advance-ai-chatbot/internal/provider"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakeProvider struct {
	mu      sync.Mutex
	name    string
	reply   string
	err     error
	panics  bool
	block   chan struct{}
	prompts []string
}

func (f *fakeProvider) GetName() string { return f.name }

func (f *fakeProvider) GenerateResponse(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.panics {
		panic("fake provider exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeStore struct {
	mu           sync.Mutex
	saved        int
	savedCurrent int
	err          error
}

func (s *fakeStore) SaveConversation(*model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved++
	return s.err
}

func (s *fakeStore) SaveCurrentConversation(*model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedCurrent++
	return s.err
}

const (
	testWait = 2 * time.Second
	testTick = 5 * time.Millisecond
)

func newTestOrchestrator(p provider.Provider) (*Orchestrator, *fakeStore) {
	reg := provider.NewRegistry(provider.Credentials{})
	if p != nil {
		reg.Register("fake", p)
	}
	store := &fakeStore{}
	return NewOrchestrator(reg, store), store
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_Success(t *testing.T) {
	fake := &fakeProvider{name: "Fake Model", reply: "forty-two"}
	orch, store := newTestOrchestrator(fake)
	conv := model.NewConversation()

	outcome, err := orch.Send(context.Background(), conv, "meaning of life?", nil, "fake")
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())
	assert.Equal(t, "forty-two", outcome.Reply.Text)
	assert.Equal(t, "Fake Model", outcome.Reply.Responder)

	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "Fake Model", conv.Messages[1].Responder)

	// Commit happened before returning.
	assert.Equal(t, 1, store.saved)
	assert.Equal(t, 1, store.savedCurrent)
}

func TestSend_UnknownProviderFailsWithoutGeneration(t *testing.T) {
	fake := &fakeProvider{name: "Fake Model", reply: "unused"}
	orch, _ := newTestOrchestrator(fake)
	conv := model.NewConversation()

	outcome, err := orch.Send(context.Background(), conv, "hello", nil, "nope")
	require.NoError(t, err)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, provider.KindModelUnavailable, outcome.Failure.Kind)
	assert.Contains(t, outcome.Failure.Message, `"nope"`)
	assert.Empty(t, fake.prompts, "no provider call should be made")

	// The user message is still recorded; only the assistant side is absent.
	assert.Equal(t, 1, conv.MessageCount())
}

func TestSend_ProviderFailureBecomesOutcome(t *testing.T) {
	fake := &fakeProvider{
		name: "Fake Model",
		err:  &provider.Error{Kind: provider.KindQuotaExceeded, Message: "usage limit reached"},
	}
	orch, _ := newTestOrchestrator(fake)
	conv := model.NewConversation()

	outcome, err := orch.Send(context.Background(), conv, "hello", nil, "fake")
	require.NoError(t, err, "generation failures must not surface as errors")
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, provider.KindQuotaExceeded, outcome.Failure.Kind)
	assert.Equal(t, "quota_exceeded", outcome.Failure.Code)
	assert.Equal(t, 1, conv.MessageCount())
}

func TestSend_ProviderPanicBecomesOutcome(t *testing.T) {
	fake := &fakeProvider{name: "Fake Model", panics: true}
	orch, _ := newTestOrchestrator(fake)
	conv := model.NewConversation()

	outcome, err := orch.Send(context.Background(), conv, "hello", nil, "fake")
	require.NoError(t, err)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, provider.KindUnknown, outcome.Failure.Kind)
}

func TestSend_PersistenceErrorOnSeparateChannel(t *testing.T) {
	fake := &fakeProvider{name: "Fake Model", reply: "ok"}
	orch, store := newTestOrchestrator(fake)
	store.err = errors.New("disk full")
	conv := model.NewConversation()

	outcome, err := orch.Send(context.Background(), conv, "hello there", nil, "fake")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	// The generation itself still succeeded.
	require.True(t, outcome.Succeeded())
	assert.Equal(t, "ok", outcome.Reply.Text)
}

// =============================================================================
// PROMPT ASSEMBLY
// =============================================================================

func TestBuildPrompt_Attachments(t *testing.T) {
	atts := []model.Attachment{
		{Name: "notes.txt", MimeType: "text/plain", Content: "buy milk"},
		{Name: "photo.png", MimeType: "image/png", SizeBytes: 2048},
	}

	got := buildPrompt("summarize my stuff", atts)
	want := "summarize my stuff\n\n" +
		attachmentHeader + "\n\n" +
		"notes.txt:\nbuy milk\n\n" +
		"photo.png (image/png)"
	assert.Equal(t, want, got)
}

func TestBuildPrompt_NoAttachmentsPassesThrough(t *testing.T) {
	assert.Equal(t, "just text", buildPrompt("just text", nil))
}

func TestSend_AttachmentsReachProvider(t *testing.T) {
	fake := &fakeProvider{name: "Fake Model", reply: "ok"}
	orch, _ := newTestOrchestrator(fake)
	conv := model.NewConversation()

	atts := []model.Attachment{{Name: "a.json", MimeType: "application/json", Content: `{"x":1}`}}
	_, err := orch.Send(context.Background(), conv, "check this", atts, "fake")
	require.NoError(t, err)

	prompt := fake.lastPrompt()
	assert.Contains(t, prompt, attachmentHeader)
	assert.Contains(t, prompt, "a.json:\n{\"x\":1}")

	// The stored user message keeps the original text, not the assembled prompt.
	assert.Equal(t, "check this", conv.Messages[0].Text)
	assert.Len(t, conv.Messages[0].Attachments, 1)
}

// =============================================================================
// REGENERATE AND RETRY
// =============================================================================

func TestRegenerate_ReplacesTrailingAssistant(t *testing.T) {
	fake := &fakeProvider{name: "Fake Model", reply: "first answer"}
	orch, _ := newTestOrchestrator(fake)
	conv := model.NewConversation()

	_, err := orch.Send(context.Background(), conv, "tell me a joke", nil, "fake")
	require.NoError(t, err)
	require.Equal(t, 2, conv.MessageCount())

	fake.reply = "second answer"
	outcome, err := orch.Regenerate(context.Background(), conv, "fake")
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())

	// Length unchanged: the old assistant message was replaced, not stacked.
	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, "second answer", conv.Messages[1].Text)
}

func TestRegenerate_DoesNotReplayAttachments(t *testing.T) {
	fake := &fakeProvider{name: "Fake Model", reply: "ok"}
	orch, _ := newTestOrchestrator(fake)
	conv := model.NewConversation()

	atts := []model.Attachment{{Name: "notes.txt", MimeType: "text/plain", Content: "secret"}}
	_, err := orch.Send(context.Background(), conv, "read my notes", atts, "fake")
	require.NoError(t, err)

	_, err = orch.Regenerate(context.Background(), conv, "fake")
	require.NoError(t, err)

	prompt := fake.lastPrompt()
	assert.Equal(t, "read my notes", prompt)
	assert.NotContains(t, prompt, "secret")
}

func TestRegenerate_NoUserMessageIsNoOp(t *testing.T) {
	fake := &fakeProvider{name: "Fake Model", reply: "unused"}
	orch, store := newTestOrchestrator(fake)
	conv := model.NewConversation()

	outcome, err := orch.Regenerate(context.Background(), conv, "fake")
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.Empty(t, fake.prompts)
	assert.Equal(t, 0, store.saved)
}

func TestRetry_AppendsWithoutRemoving(t *testing.T) {
	fake := &fakeProvider{
		name: "Fake Model",
		err:  &provider.Error{Kind: provider.KindTransport, Message: "unreachable"},
	}
	orch, _ := newTestOrchestrator(fake)
	conv := model.NewConversation()

	outcome, err := orch.Send(context.Background(), conv, "hello out there", nil, "fake")
	require.NoError(t, err)
	require.NotNil(t, outcome.Failure)
	require.Equal(t, 1, conv.MessageCount())

	// The network comes back.
	fake.err = nil
	fake.reply = "hello to you"
	outcome, err = orch.Retry(context.Background(), conv, "fake")
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())
	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, "hello to you", conv.Messages[1].Text)
}

// =============================================================================
// IN-FLIGHT GUARD
// =============================================================================

func TestSend_RejectsConcurrentSendForSameConversation(t *testing.T) {
	fake := &fakeProvider{name: "Fake Model", reply: "slow answer", block: make(chan struct{})}
	orch, _ := newTestOrchestrator(fake)
	conv := model.NewConversation()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := orch.Send(context.Background(), conv, "first", nil, "fake")
		assert.NoError(t, err)
	}()

	// Wait for the first Send to be inside the provider call.
	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return len(fake.prompts) == 1
	}, testWait, testTick)

	_, err := orch.Send(context.Background(), conv, "second", nil, "fake")
	assert.ErrorIs(t, err, ErrConversationBusy)

	// A different conversation is not blocked.
	other := model.NewConversation()
	_, err = orch.Retry(context.Background(), other, "fake")
	require.NoError(t, err)

	close(fake.block)
	<-done
}
