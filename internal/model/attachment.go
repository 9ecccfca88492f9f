// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// Attachment represents a named, typed file-like payload associated with a
// single user message.
//
// When the MIME type indicates text and Content is present, the attachment
// text is inlined into the effective prompt sent to a provider; otherwise
// only a "name (mimeType)" reference line is inlined. Binary content is
// never sent downstream.
type Attachment struct {
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`

	// Content holds the attachment text for textual attachments. Empty for
	// binary attachments.
	Content string `json:"content,omitempty"`
}

// textualMimeTypes lists non-"text/" MIME types whose content is still
// treated as inlinable text.
var textualMimeTypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
}

// IsText reports whether the attachment's MIME type indicates textual
// content that may be inlined into a prompt.
func (a Attachment) IsText() bool {
	mime := strings.ToLower(a.MimeType)
	// Strip parameters such as "; charset=utf-8".
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	return textualMimeTypes[mime]
}

// Inlinable reports whether the attachment's text content should be inlined
// into the effective prompt.
func (a Attachment) Inlinable() bool {
	return a.IsText() && a.Content != ""
}
