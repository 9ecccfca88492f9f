// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations, settings, and the current
// conversation buffer in a single SQLite database under the application's
// data directory (~/.aichat/ by default).
//
// Writes are serialized through a single connection and wrapped in
// transactions, so a crash mid-save never leaves a half-written
// conversation. Last writer wins.
package storage
