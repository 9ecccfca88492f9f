// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export serializes chat data for the outside world: a full
// snapshot of all conversations and settings (used for backup and the
// /v1/export endpoint), and per-conversation exporters for JSON, Markdown,
// and HTML files.
package export
