// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yawarquil/advance-ai-chatbot/internal/model"
)

func sampleConversation() *model.Conversation {
	conv := model.NewConversation()
	conv.AddMessage(model.NewUserMessage("show me a loop in go", []model.Attachment{
		{Name: "notes.txt", MimeType: "text/plain", SizeBytes: 12, Content: "count to ten"},
	}))
	conv.AddMessage(model.NewAssistantMessage(
		"Here you go:\n\n```go\nfor i := 0; i < 10; i++ {\n\tfmt.Println(i)\n}\n```\n\nUse `range` for slices.",
		"Gemini 1.5 Flash",
	))
	return conv
}

// =============================================================================
// SNAPSHOT
// =============================================================================

func TestSnapshot_RoundTrip(t *testing.T) {
	settings := &model.Settings{Provider: "claude", Theme: "light", SendOnEnter: true}
	snap := NewSnapshot([]*model.Conversation{sampleConversation()}, settings)
	assert.NotEmpty(t, snap.ExportDate)

	data, err := snap.Marshal()
	require.NoError(t, err)

	parsed, err := ParseSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap.ExportDate, parsed.ExportDate)
	assert.Equal(t, settings, parsed.Settings)
	require.Len(t, parsed.Conversations, 1)

	orig := snap.Conversations[0]
	got := parsed.Conversations[0]
	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.Title, got.Title)
	require.Equal(t, orig.MessageCount(), got.MessageCount())
	assert.Equal(t, orig.Messages[1].Responder, got.Messages[1].Responder)
	assert.Equal(t, orig.Messages[0].Attachments, got.Messages[0].Attachments)
}

func TestSnapshot_EmptyState(t *testing.T) {
	snap := NewSnapshot(nil, nil)
	data, err := snap.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"conversations": []`)
}

// =============================================================================
// EXPORTERS
// =============================================================================

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleConversation())
	require.NoError(t, err)
	md := string(out)

	assert.Contains(t, md, "# show me a loop in go")
	assert.Contains(t, md, "### You")
	assert.Contains(t, md, "### Assistant (Gemini 1.5 Flash)")
	assert.Contains(t, md, "```go")
	assert.Contains(t, md, "- `notes.txt` (text/plain, 12 bytes)")
}

func TestMarkdownExporter_RejectsEmpty(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(model.NewConversation())
	assert.Error(t, err)
}

func TestJSONExporter(t *testing.T) {
	conv := sampleConversation()
	out, err := NewJSONExporter(nil).Export(conv)
	require.NoError(t, err)
	assert.Contains(t, string(out), conv.ID)
	assert.Contains(t, string(out), `"role": "assistant"`)
}

func TestHTMLExporter(t *testing.T) {
	out, err := NewHTMLExporter(nil).Export(sampleConversation())
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "Gemini 1.5 Flash")
	// The fenced block went through the highlighter, not a plain <pre>.
	assert.Contains(t, html, "code-lang")
	assert.Contains(t, html, "notes.txt (text/plain)")
}

func TestHTMLExporter_EscapesUserText(t *testing.T) {
	conv := model.NewConversation()
	conv.AddMessage(model.NewUserMessage("<script>alert('hi')</script>", nil))

	out, err := NewHTMLExporter(nil).Export(conv)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>alert")
	assert.Contains(t, string(out), "&lt;script&gt;")
}

func TestForFormat(t *testing.T) {
	for _, format := range []string{"json", "markdown", "md", "html"} {
		exporter, err := ForFormat(format, nil)
		require.NoError(t, err, format)
		assert.NotNil(t, exporter)
	}
	_, err := ForFormat("docx", nil)
	assert.Error(t, err)
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ExportToFile(sampleConversation(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".md"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# show me a loop in go")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain title", "plain_title"},
		{"a/b\\c:d", "a-b-c-d"},
		{"what? really*", "what-_really-"},
		{"", "conversation"},
		{"line\nbreak", "line_break"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, sanitizeFilename(tc.input), tc.input)
	}
}
