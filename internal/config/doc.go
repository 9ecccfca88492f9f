// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management.
//
// Configuration layers, later layers overriding earlier ones:
//   - Built-in defaults
//   - ~/.aichat/config.toml
//   - Environment variables (GEMINI_API_KEY, HUGGINGFACE_API_KEY,
//     ANTHROPIC_API_KEY, GROQ_API_KEY, AICHAT_*)
package config
