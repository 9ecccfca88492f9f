// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
)

// Version information (can be overridden at build time).
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdServe Command = iota
	CmdExport
	CmdProviders
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string

	// Addr overrides the configured listen address (serve).
	Addr string

	// Format is the export format: json, markdown or html (export).
	Format string

	// OutputDir is where export files are written (export).
	OutputDir string

	// ConversationID selects a single conversation to export. Empty
	// exports the full snapshot (export).
	ConversationID string

	// JSON switches the providers listing to JSON output.
	JSON bool

	// Errors collects unrecognized arguments for reporting.
	Errors []string
}

const usageText = `aichat - chat backend for the advance-ai-chatbot front end

Usage:
  aichat [command] [flags]

Commands:
  serve                 Start the HTTP API server (default)
    --addr ADDR         Listen address (overrides config)
  export                Export conversations
    --id ID             Export a single conversation instead of a snapshot
    --format FORMAT     json, markdown or html (default: json)
    --output DIR        Output directory (default: current directory)
  providers             List providers with usable credentials
    --json              Output as JSON
  version               Print version information
  help                  Show this help

Global flags:
  --config PATH         Config file location (default: ~/.aichat/config.toml)

Environment:
  GEMINI_API_KEY, HUGGINGFACE_API_KEY, ANTHROPIC_API_KEY, GROQ_API_KEY
  override the keys in the config file. A provider with no key is omitted.
`

// Usage returns the full help text.
func Usage() string {
	return usageText
}

// VersionString returns the formatted version output.
func VersionString() string {
	return fmt.Sprintf("aichat version %s\n  Git commit: %s\n  Build date: %s\n",
		Version, GitCommit, BuildDate)
}

// Parse parses command-line arguments (without the program name) and
// returns the command and its arguments. Unknown flags are collected in
// Args.Errors rather than aborting, so the caller decides how to report
// them.
func Parse(argv []string) (Command, Args) {
	var args Args

	remaining := parseGlobalFlags(argv, &args)

	if len(remaining) == 0 {
		return CmdServe, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]

	switch cmd {
	case "serve":
		parseServeArgs(&args, remaining)
		return CmdServe, args

	case "export":
		parseExportArgs(&args, remaining)
		return CmdExport, args

	case "providers":
		parseProvidersArgs(&args, remaining)
		return CmdProviders, args

	case "version", "-v", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		args.Errors = append(args.Errors, fmt.Sprintf("unknown command: %s", cmd))
		return CmdHelp, args
	}
}

// parseGlobalFlags strips flags that apply to every command and returns the
// remaining arguments.
func parseGlobalFlags(argv []string, args *Args) []string {
	remaining := make([]string, 0, len(argv))

	i := 0
	for i < len(argv) {
		switch argv[i] {
		case "--config":
			if i+1 < len(argv) {
				args.ConfigPath = argv[i+1]
				i += 2
				continue
			}
			args.Errors = append(args.Errors, "--config requires a path")
			i++
		default:
			remaining = append(remaining, argv[i])
			i++
		}
	}
	return remaining
}

func parseServeArgs(args *Args, argv []string) {
	i := 0
	for i < len(argv) {
		switch argv[i] {
		case "--addr":
			if i+1 < len(argv) {
				args.Addr = argv[i+1]
				i += 2
				continue
			}
			args.Errors = append(args.Errors, "--addr requires an address")
			i++
		default:
			args.Errors = append(args.Errors, fmt.Sprintf("unknown serve flag: %s", argv[i]))
			i++
		}
	}
}

func parseExportArgs(args *Args, argv []string) {
	args.Format = "json"
	args.OutputDir = "."

	i := 0
	for i < len(argv) {
		switch argv[i] {
		case "--id":
			if i+1 < len(argv) {
				args.ConversationID = argv[i+1]
				i += 2
				continue
			}
			args.Errors = append(args.Errors, "--id requires a conversation id")
			i++
		case "--format":
			if i+1 < len(argv) {
				args.Format = strings.ToLower(argv[i+1])
				i += 2
				continue
			}
			args.Errors = append(args.Errors, "--format requires a format name")
			i++
		case "--output":
			if i+1 < len(argv) {
				args.OutputDir = argv[i+1]
				i += 2
				continue
			}
			args.Errors = append(args.Errors, "--output requires a directory")
			i++
		default:
			args.Errors = append(args.Errors, fmt.Sprintf("unknown export flag: %s", argv[i]))
			i++
		}
	}
}

func parseProvidersArgs(args *Args, argv []string) {
	for _, arg := range argv {
		switch arg {
		case "--json":
			args.JSON = true
		default:
			args.Errors = append(args.Errors, fmt.Sprintf("unknown providers flag: %s", arg))
		}
	}
}
