// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Settings holds the user-adjustable preferences persisted alongside
// conversation history.
type Settings struct {
	// Provider is the lookup key of the preferred provider ("gemini",
	// "gpt", "claude") - never a display name.
	Provider string `json:"provider"`

	// Theme is the UI theme name; the backend only stores it.
	Theme string `json:"theme"`

	// SendOnEnter controls whether Enter submits a message in the UI.
	SendOnEnter bool `json:"send_on_enter"`
}

// DefaultSettings returns the settings used before the user has saved any.
func DefaultSettings() Settings {
	return Settings{
		Provider:    "gemini",
		Theme:       "dark",
		SendOnEnter: true,
	}
}
