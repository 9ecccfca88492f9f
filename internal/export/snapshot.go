// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yawarquil/advance-ai-chatbot/internal/model"
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a full, self-contained copy of the application's persisted
// state: every conversation plus the current settings, stamped with the
// export time.
type Snapshot struct {
	Conversations []*model.Conversation `json:"conversations"`
	Settings      *model.Settings       `json:"settings"`
	ExportDate    string                `json:"export_date"`
}

// NewSnapshot builds a snapshot of the given state, stamped with the
// current time in ISO-8601 form.
func NewSnapshot(conversations []*model.Conversation, settings *model.Settings) *Snapshot {
	if conversations == nil {
		conversations = make([]*model.Conversation, 0)
	}
	return &Snapshot{
		Conversations: conversations,
		Settings:      settings,
		ExportDate:    time.Now().Format(time.RFC3339),
	}
}

// Marshal serializes the snapshot as indented JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// ParseSnapshot decodes a snapshot previously produced by Marshal. Every
// field survives the round trip.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}
