// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates conversations: it builds the effective prompt
// from user text and attachments, resolves the selected provider, invokes
// it, classifies failures into user-facing outcomes, and commits the
// conversation to the store before returning.
//
// ORCHESTRATOR: one in-flight generation per conversation; a second Send
// while one is running is rejected, not queued.
package chat
