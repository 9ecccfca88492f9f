// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses command-line arguments for the aichat binary.
//
// Commands:
//
//	serve      start the HTTP API server (the default when no command is given)
//	export     write conversations to disk as JSON, Markdown or HTML
//	providers  list the providers that have usable credentials
//	version    print version information
//
// Parsing is done by hand: the command surface is small and flag values are
// all simple strings, so a flag-package dependency buys nothing here.
package cli
