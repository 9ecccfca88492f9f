// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yawarquil/advance-ai-chatbot/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettings_DefaultsWhenUnsaved(t *testing.T) {
	store := newTestStore(t)

	settings, err := store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "gemini", settings.Provider)
	assert.Equal(t, "dark", settings.Theme)
	assert.True(t, settings.SendOnEnter)
}

func TestSettings_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	saved := &model.Settings{Provider: "claude", Theme: "light", SendOnEnter: false}
	require.NoError(t, store.SaveSettings(saved))

	loaded, err := store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	// Saving again overwrites.
	saved.Provider = "gpt"
	require.NoError(t, store.SaveSettings(saved))
	loaded, err = store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "gpt", loaded.Provider)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func makeConversation(t *testing.T, userText string) *model.Conversation {
	t.Helper()
	conv := model.NewConversation()
	conv.AddMessage(model.NewUserMessage(userText, []model.Attachment{
		{Name: "notes.txt", MimeType: "text/plain", SizeBytes: 8, Content: "buy milk"},
	}))
	conv.AddMessage(model.NewAssistantMessage("done", "Gemini 1.5 Flash"))
	return conv
}

func TestConversation_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	conv := makeConversation(t, "remind me about my notes")

	require.NoError(t, store.SaveConversation(conv))

	loaded, err := store.LoadConversation(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, loaded.ID)
	assert.Equal(t, conv.Title, loaded.Title)
	assert.True(t, conv.CreatedAt.Equal(loaded.CreatedAt))
	assert.True(t, conv.UpdatedAt.Equal(loaded.UpdatedAt))

	require.Equal(t, 2, loaded.MessageCount())
	assert.Equal(t, model.RoleUser, loaded.Messages[0].Role)
	assert.Equal(t, "remind me about my notes", loaded.Messages[0].Text)
	require.Len(t, loaded.Messages[0].Attachments, 1)
	assert.Equal(t, "buy milk", loaded.Messages[0].Attachments[0].Content)
	assert.Equal(t, model.RoleAssistant, loaded.Messages[1].Role)
	assert.Equal(t, "Gemini 1.5 Flash", loaded.Messages[1].Responder)
}

func TestConversation_SaveReplacesMessages(t *testing.T) {
	store := newTestStore(t)
	conv := makeConversation(t, "first question")
	require.NoError(t, store.SaveConversation(conv))

	// Regenerate-style mutation: pop and re-add, then save again.
	require.True(t, conv.PopLastAssistant())
	conv.AddMessage(model.NewAssistantMessage("done differently", "Claude 3 Haiku"))
	require.NoError(t, store.SaveConversation(conv))

	loaded, err := store.LoadConversation(conv.ID)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.MessageCount())
	assert.Equal(t, "done differently", loaded.Messages[1].Text)
}

func TestConversation_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadConversation("missing")
	assert.True(t, errors.Is(err, ErrConversationNotFound))

	err = store.DeleteConversation("missing")
	assert.True(t, errors.Is(err, ErrConversationNotFound))
}

func TestConversations_ListMostRecentFirst(t *testing.T) {
	store := newTestStore(t)

	first := makeConversation(t, "oldest")
	second := makeConversation(t, "newest")
	second.UpdatedAt = second.UpdatedAt.Add(time.Minute)
	require.NoError(t, store.SaveConversation(first))
	require.NoError(t, store.SaveConversation(second))

	all, err := store.LoadConversations()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestConversation_Delete(t *testing.T) {
	store := newTestStore(t)
	conv := makeConversation(t, "to be deleted")
	require.NoError(t, store.SaveConversation(conv))

	require.NoError(t, store.DeleteConversation(conv.ID))
	_, err := store.LoadConversation(conv.ID)
	assert.True(t, errors.Is(err, ErrConversationNotFound))
}

// =============================================================================
// SEARCH
// =============================================================================

func TestSearch(t *testing.T) {
	store := newTestStore(t)

	groceries := makeConversation(t, "help me plan groceries")
	trip := model.NewConversation()
	trip.AddMessage(model.NewUserMessage("plan a trip", nil))
	trip.AddMessage(model.NewAssistantMessage("Pack light and book Lisbon early.", "Claude 3 Haiku"))
	require.NoError(t, store.SaveConversation(groceries))
	require.NoError(t, store.SaveConversation(trip))

	// Title match, case-insensitive.
	results, err := store.Search("GROCERIES")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, groceries.ID, results[0].ID)

	// Message-content match.
	results, err = store.Search("lisbon")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, trip.ID, results[0].ID)

	// No match.
	results, err = store.Search("submarine")
	require.NoError(t, err)
	assert.Empty(t, results)

	// Empty query returns everything.
	results, err = store.Search("")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_LikeWildcardsAreLiteral(t *testing.T) {
	store := newTestStore(t)

	conv := model.NewConversation()
	conv.AddMessage(model.NewUserMessage("charge reached 100% today", nil))
	require.NoError(t, store.SaveConversation(conv))

	// "100%" must not behave as "100 followed by anything".
	results, err := store.Search("100%")
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = store.Search("0%_")
	require.NoError(t, err)
	assert.Empty(t, results)
}

// =============================================================================
// CURRENT BUFFER AND CLEAR
// =============================================================================

func TestCurrentConversation_Buffer(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.LoadCurrentConversation()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	conv := makeConversation(t, "in progress")
	require.NoError(t, store.SaveCurrentConversation(conv))

	loaded, err = store.LoadCurrentConversation()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, conv.ID, loaded.ID)
	assert.Equal(t, 2, loaded.MessageCount())

	require.NoError(t, store.ClearCurrentConversation())
	loaded, err = store.LoadCurrentConversation()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestClearAllData(t *testing.T) {
	store := newTestStore(t)

	conv := makeConversation(t, "wipe me")
	require.NoError(t, store.SaveConversation(conv))
	require.NoError(t, store.SaveCurrentConversation(conv))
	require.NoError(t, store.SaveSettings(&model.Settings{Provider: "claude", Theme: "light"}))

	require.NoError(t, store.ClearAllData())

	all, err := store.LoadConversations()
	require.NoError(t, err)
	assert.Empty(t, all)

	current, err := store.LoadCurrentConversation()
	require.NoError(t, err)
	assert.Nil(t, current)

	settings, err := store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "gemini", settings.Provider, "settings fall back to defaults")
}
