// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements the AI backend abstraction: a Provider turns
// a text prompt into a text response and reports its display name.
//
// Three remote-backed variants are implemented (Gemini, a Hugging
// Face-backed "GPT", Claude), each with its own internal fallback chain.
// Chains are strictly sequential: a network-layer failure (transport error,
// non-2xx status, malformed payload) advances to the next strategy rather
// than failing the whole call. Chains that end in the rule-based responder
// are total - GenerateResponse always resolves with some text.
//
// The Registry owns the set of constructible providers. A provider whose
// constructor fails (missing credential) is simply absent from the registry;
// registry construction itself never fails.
package provider
