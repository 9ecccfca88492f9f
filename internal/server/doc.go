// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the chat backend over HTTP for the browser front end.
//
// # Endpoints
//
//   - POST   /v1/chat/send          - Send a message, optionally starting a new conversation
//   - POST   /v1/chat/regenerate    - Replace the latest assistant reply
//   - POST   /v1/chat/retry         - Retry after a failed generation
//   - GET    /v1/providers          - List providers with usable credentials
//   - GET    /v1/conversations      - List conversations; ?q= searches titles and messages
//   - GET    /v1/conversations/{id} - Fetch a full conversation
//   - DELETE /v1/conversations/{id} - Delete a conversation
//   - GET    /v1/export             - Download a full JSON snapshot
//   - GET    /health                - Liveness check
//
// Every response is JSON. Generation failures arrive in the 200 response
// body (the "failure" field) because the user message is persisted either
// way; HTTP error statuses are reserved for validation problems, missing
// conversations, a busy conversation (409) and persistence failures.
//
// # Middleware
//
//   - Panic recovery with stack trace logging
//   - Security headers (X-Content-Type-Options, X-Frame-Options, etc.)
//   - Request logging with timing information
//   - CORS headers for the browser front end
//   - Optional bearer token authentication with constant-time comparison
//   - Per-IP rate limiting
package server
