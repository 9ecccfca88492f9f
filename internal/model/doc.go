// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// attachments, and user settings.
//
// All types in this package are plain data: they carry no transport or
// storage logic. Messages are immutable once created; a conversation's
// history is append-only except for the documented pop-last-assistant
// operation used by regenerate.
package model
