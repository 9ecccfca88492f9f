// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

// aichat - chat backend for the advance-ai-chatbot browser front end.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yawarquil/advance-ai-chatbot/internal/chat"
	"github.com/yawarquil/advance-ai-chatbot/internal/cli"
	"github.com/yawarquil/advance-ai-chatbot/internal/config"
	"github.com/yawarquil/advance-ai-chatbot/internal/export"
	"github.com/yawarquil/advance-ai-chatbot/internal/provider"
	"github.com/yawarquil/advance-ai-chatbot/internal/server"
	"github.com/yawarquil/advance-ai-chatbot/internal/storage"
	"github.com/yawarquil/advance-ai-chatbot/internal/util"
)

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	for _, e := range args.Errors {
		fmt.Fprintf(os.Stderr, "aichat: %s\n", e)
	}
	if len(args.Errors) > 0 {
		fmt.Fprint(os.Stderr, cli.Usage())
		os.Exit(2)
	}

	switch cmd {
	case cli.CmdServe:
		if err := runServe(args); err != nil {
			log.Fatalf("MAIN: serve failed: %v", err)
		}
	case cli.CmdExport:
		if err := runExport(args); err != nil {
			log.Fatalf("MAIN: export failed: %v", err)
		}
	case cli.CmdProviders:
		if err := runProviders(args); err != nil {
			log.Fatalf("MAIN: providers failed: %v", err)
		}
	case cli.CmdVersion:
		fmt.Print(cli.VersionString())
	case cli.CmdHelp:
		fmt.Print(cli.Usage())
	}
}

// loadConfig loads the config from the flag-supplied path, or the default
// location when none is given.
func loadConfig(args cli.Args) (*config.Config, string, error) {
	path := args.ConfigPath
	if path == "" {
		var err error
		path, err = config.ConfigPath()
		if err != nil {
			return nil, "", err
		}
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// buildRegistry constructs the provider registry from configured
// credentials and applies provider tweaks.
func buildRegistry(cfg *config.Config) *provider.Registry {
	registry := provider.NewRegistry(provider.Credentials{
		GeminiKey:        cfg.Providers.GeminiAPIKey,
		HuggingFaceToken: cfg.Providers.HuggingFaceToken,
		AnthropicKey:     cfg.Providers.AnthropicAPIKey,
		GroqKey:          cfg.Providers.GroqAPIKey,
	})

	if cfg.Providers.GeminiModel != "" {
		if p, err := registry.Get(provider.KeyGemini); err == nil {
			if g, ok := p.(*provider.Gemini); ok {
				g.WithModel(cfg.Providers.GeminiModel)
			}
		}
	}
	return registry
}

// =============================================================================
// SERVE
// =============================================================================

func runServe(args cli.Args) error {
	cfg, cfgPath, err := loadConfig(args)
	if err != nil {
		return err
	}
	if args.Addr != "" {
		cfg.Server.Addr = args.Addr
	}

	store, err := storage.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := buildRegistry(cfg)
	if registry.Len() == 0 {
		log.Printf("MAIN: no provider credentials configured; only stored conversations are served")
	}

	orch := chat.NewOrchestrator(registry, store)
	srv := server.NewServer(cfg.Server, registry, orch, store)

	// Credential and server changes take effect on restart; the watcher
	// exists so edits are noticed and validated immediately.
	watcher, err := config.NewWatcher(cfgPath, func(next *config.Config) {
		log.Printf("MAIN: config reloaded; credential and server changes take effect on restart")
	})
	if err != nil {
		log.Printf("MAIN: config watcher unavailable: %v", err)
	} else if err := watcher.Watch(); err != nil {
		log.Printf("MAIN: config watcher failed to start: %v", err)
	} else {
		defer watcher.Close()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		log.Printf("MAIN: received %v, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// =============================================================================
// EXPORT
// =============================================================================

func runExport(args cli.Args) error {
	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if args.ConversationID != "" {
		return exportConversation(store, cfg, args)
	}
	return exportSnapshot(store, args)
}

// exportConversation writes a single conversation in the requested format.
func exportConversation(store *storage.Store, cfg *config.Config, args cli.Args) error {
	conv, err := store.LoadConversation(args.ConversationID)
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	opts.OutputDir = args.OutputDir
	if cfg.Export.Theme != "" {
		opts.Theme = cfg.Export.Theme
	}

	exporter, err := export.ForFormat(args.Format, opts)
	if err != nil {
		return err
	}

	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Printf("exported %s\n", path)
	return nil
}

// exportSnapshot writes the full snapshot of every conversation plus
// settings as JSON.
func exportSnapshot(store *storage.Store, args cli.Args) error {
	if args.Format != "json" {
		return fmt.Errorf("full snapshots are JSON only; use --id to export one conversation as %s", args.Format)
	}

	conversations, err := store.LoadConversations()
	if err != nil {
		return err
	}
	settings, err := store.LoadSettings()
	if err != nil {
		return err
	}

	data, err := export.NewSnapshot(conversations, settings).Marshal()
	if err != nil {
		return err
	}

	name := fmt.Sprintf("chat-export-%s.json", time.Now().Format("2006-01-02-150405"))
	path := filepath.Join(args.OutputDir, name)
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("exported %d conversations to %s\n", len(conversations), path)
	return nil
}

// =============================================================================
// PROVIDERS
// =============================================================================

func runProviders(args cli.Args) error {
	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}

	infos := buildRegistry(cfg).ListAvailable()

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Println("no providers available - set GEMINI_API_KEY, HUGGINGFACE_API_KEY or ANTHROPIC_API_KEY")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%-10s %s\n", info.Key, info.DisplayName)
	}
	return nil
}
