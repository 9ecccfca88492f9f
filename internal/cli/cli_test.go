// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_DefaultsToServe(t *testing.T) {
	cmd, args := Parse(nil)
	assert.Equal(t, CmdServe, cmd)
	assert.Empty(t, args.Errors)
}

func TestParse_ServeWithAddr(t *testing.T) {
	cmd, args := Parse([]string{"serve", "--addr", "0.0.0.0:9000"})
	assert.Equal(t, CmdServe, cmd)
	assert.Equal(t, "0.0.0.0:9000", args.Addr)
	assert.Empty(t, args.Errors)
}

func TestParse_GlobalConfigFlag(t *testing.T) {
	cmd, args := Parse([]string{"--config", "/tmp/custom.toml", "serve"})
	assert.Equal(t, CmdServe, cmd)
	assert.Equal(t, "/tmp/custom.toml", args.ConfigPath)
}

func TestParse_ExportDefaults(t *testing.T) {
	cmd, args := Parse([]string{"export"})
	assert.Equal(t, CmdExport, cmd)
	assert.Equal(t, "json", args.Format)
	assert.Equal(t, ".", args.OutputDir)
	assert.Empty(t, args.ConversationID)
}

func TestParse_ExportSingleConversation(t *testing.T) {
	cmd, args := Parse([]string{"export", "--id", "abc123", "--format", "Markdown", "--output", "/tmp/out"})
	assert.Equal(t, CmdExport, cmd)
	assert.Equal(t, "abc123", args.ConversationID)
	assert.Equal(t, "markdown", args.Format)
	assert.Equal(t, "/tmp/out", args.OutputDir)
}

func TestParse_ProvidersJSON(t *testing.T) {
	cmd, args := Parse([]string{"providers", "--json"})
	assert.Equal(t, CmdProviders, cmd)
	assert.True(t, args.JSON)
}

func TestParse_VersionAliases(t *testing.T) {
	for _, argv := range [][]string{{"version"}, {"-v"}, {"--version"}} {
		cmd, _ := Parse(argv)
		assert.Equal(t, CmdVersion, cmd)
	}
}

func TestParse_UnknownCommand(t *testing.T) {
	cmd, args := Parse([]string{"frobnicate"})
	assert.Equal(t, CmdHelp, cmd)
	assert.NotEmpty(t, args.Errors)
}

func TestParse_FlagMissingValue(t *testing.T) {
	_, args := Parse([]string{"serve", "--addr"})
	assert.NotEmpty(t, args.Errors)

	_, args = Parse([]string{"export", "--format"})
	assert.NotEmpty(t, args.Errors)
}

func TestParse_UnknownFlagCollected(t *testing.T) {
	cmd, args := Parse([]string{"providers", "--verbose"})
	assert.Equal(t, CmdProviders, cmd)
	assert.NotEmpty(t, args.Errors)
}
