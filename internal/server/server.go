// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yawarquil/advance-ai-chatbot/internal/chat"
	"github.com/yawarquil/advance-ai-chatbot/internal/config"
	"github.com/yawarquil/advance-ai-chatbot/internal/export"
	"github.com/yawarquil/advance-ai-chatbot/internal/model"
	"github.com/yawarquil/advance-ai-chatbot/internal/provider"
	"github.com/yawarquil/advance-ai-chatbot/internal/storage"
)

// =============================================================================
// CONSTANTS AND LIMITS
// =============================================================================

const (
	// Version is the server version reported by /health.
	Version = "1.0.0"

	// DefaultMaxBodyBytes caps request bodies when the config leaves the
	// limit unset.
	DefaultMaxBodyBytes = 1 << 20 // 1 MB

	// MaxTextLength is the maximum message text length in runes.
	MaxTextLength = 32_000

	// MaxAttachments is the maximum number of attachments per message.
	MaxAttachments = 10

	// MaxQueryLength is the maximum search query length.
	MaxQueryLength = 200
)

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// SendRequest is the body of POST /v1/chat/send.
type SendRequest struct {
	// ConversationID identifies an existing conversation. Empty starts a
	// new one.
	ConversationID string `json:"conversation_id"`

	// Provider is the registry key of the provider to use. Empty falls
	// back to the stored default.
	Provider string `json:"provider"`

	Text        string             `json:"text"`
	Attachments []model.Attachment `json:"attachments,omitempty"`
}

// FollowupRequest is the body of POST /v1/chat/regenerate and /v1/chat/retry.
type FollowupRequest struct {
	ConversationID string `json:"conversation_id"`
	Provider       string `json:"provider"`
}

// ChatResponse is the reply to the three chat endpoints. Exactly one of
// Reply and Failure is set.
type ChatResponse struct {
	ConversationID string        `json:"conversation_id"`
	Title          string        `json:"title"`
	Reply          *chat.Reply   `json:"reply,omitempty"`
	Failure        *chat.Failure `json:"failure,omitempty"`
}

// ConversationSummary is a conversation without its messages, for listings.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ProvidersResponse is the reply to GET /v1/providers.
type ProvidersResponse struct {
	Providers []provider.Info `json:"providers"`
}

// HealthResponse is the reply to GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Providers int    `json:"providers"`
}

// =============================================================================
// SERVER
// =============================================================================

// Server exposes the chat backend over HTTP for the browser front end.
type Server struct {
	cfg      config.ServerConfig
	registry *provider.Registry
	orch     *chat.Orchestrator
	store    *storage.Store

	router  *http.ServeMux
	server  *http.Server
	limiter *RateLimiter
}

// NewServer creates a Server wired to the given registry, orchestrator and
// store. Call Start to begin serving.
func NewServer(cfg config.ServerConfig, registry *provider.Registry, orch *chat.Orchestrator, store *storage.Store) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		orch:     orch,
		store:    store,
		router:   http.NewServeMux(),
	}
	if cfg.RateLimitPerSec > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst)
	}
	s.setupRoutes()
	return s
}

// =============================================================================
// ROUTES
// =============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /v1/chat/send", s.handleChatSend)
	s.router.HandleFunc("POST /v1/chat/regenerate", s.handleChatRegenerate)
	s.router.HandleFunc("POST /v1/chat/retry", s.handleChatRetry)
	s.router.HandleFunc("GET /v1/providers", s.handleProviders)
	s.router.HandleFunc("GET /v1/conversations", s.handleListConversations)
	s.router.HandleFunc("GET /v1/conversations/{id}", s.handleGetConversation)
	s.router.HandleFunc("DELETE /v1/conversations/{id}", s.handleDeleteConversation)
	s.router.HandleFunc("GET /v1/export", s.handleExport)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the full handler including the middleware chain.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		CORSMiddleware(s.cfg.AllowedOrigins),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, RateLimitMiddleware(s.limiter))
	}
	if s.cfg.AuthToken != "" {
		middlewares = append(middlewares, AuthMiddleware(s.cfg.AuthToken))
	}
	return Chain(middlewares...)(s.router)
}

// =============================================================================
// CHAT HANDLERS
// =============================================================================

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len([]rune(req.Text)) > MaxTextLength {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("text exceeds %d characters", MaxTextLength))
		return
	}
	if len(req.Attachments) > MaxAttachments {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("too many attachments (max %d)", MaxAttachments))
		return
	}

	var conv *model.Conversation
	if req.ConversationID == "" {
		conv = model.NewConversation()
	} else {
		var ok bool
		conv, ok = s.loadConversation(w, req.ConversationID)
		if !ok {
			return
		}
	}

	outcome, err := s.orch.Send(r.Context(), conv, req.Text, req.Attachments, s.resolveProvider(req.Provider))
	if err != nil {
		s.writeOrchestratorError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse(conv, outcome))
}

func (s *Server) handleChatRegenerate(w http.ResponseWriter, r *http.Request) {
	s.handleFollowup(w, r, s.orch.Regenerate)
}

func (s *Server) handleChatRetry(w http.ResponseWriter, r *http.Request) {
	s.handleFollowup(w, r, s.orch.Retry)
}

// handleFollowup covers regenerate and retry, which share a body shape and
// only differ in the orchestrator call.
func (s *Server) handleFollowup(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, conv *model.Conversation, providerKey string) (*chat.Outcome, error)) {
	var req FollowupRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.ConversationID == "" {
		s.writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	conv, ok := s.loadConversation(w, req.ConversationID)
	if !ok {
		return
	}

	outcome, err := op(r.Context(), conv, s.resolveProvider(req.Provider))
	if err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	if outcome == nil {
		s.writeError(w, http.StatusBadRequest, "conversation has no user message")
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse(conv, outcome))
}

// chatResponse builds the shared response shape for the chat endpoints.
func chatResponse(conv *model.Conversation, outcome *chat.Outcome) ChatResponse {
	return ChatResponse{
		ConversationID: conv.ID,
		Title:          conv.Title,
		Reply:          outcome.Reply,
		Failure:        outcome.Failure,
	}
}

// =============================================================================
// PROVIDER AND CONVERSATION HANDLERS
// =============================================================================

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ProvidersResponse{Providers: s.registry.ListAvailable()})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if len([]rune(query)) > MaxQueryLength {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("query exceeds %d characters", MaxQueryLength))
		return
	}

	conversations, err := s.store.Search(query)
	if err != nil {
		log.Printf("SERVER: failed to list conversations: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summaries = append(summaries, ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(conv.Messages),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string][]ConversationSummary{"conversations": summaries})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.loadConversation(w, r.PathValue("id"))
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteConversation(id); err != nil {
		if errors.Is(err, storage.ErrConversationNotFound) {
			s.writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		log.Printf("SERVER: failed to delete conversation %s: %v", id, err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// EXPORT AND HEALTH HANDLERS
// =============================================================================

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.store.LoadConversations()
	if err != nil {
		log.Printf("SERVER: failed to load conversations for export: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}
	settings, err := s.store.LoadSettings()
	if err != nil {
		log.Printf("SERVER: failed to load settings for export: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	data, err := export.NewSnapshot(conversations, settings).Marshal()
	if err != nil {
		log.Printf("SERVER: failed to marshal export: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="chat-export.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   Version,
		Providers: s.registry.Len(),
	})
}

// =============================================================================
// SERVER LIFECYCLE
// =============================================================================

// Start begins serving on the configured address and blocks until the
// listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", s.cfg.Addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and stops the rate limiter's
// background sweep.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeBody decodes a JSON request body with the configured size cap.
// Writes the error response itself and returns false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	maxBytes := s.cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// loadConversation loads a conversation by ID, writing the error response
// itself on failure.
func (s *Server) loadConversation(w http.ResponseWriter, id string) (*model.Conversation, bool) {
	conv, err := s.store.LoadConversation(id)
	if err != nil {
		if errors.Is(err, storage.ErrConversationNotFound) {
			s.writeError(w, http.StatusNotFound, "conversation not found")
			return nil, false
		}
		log.Printf("SERVER: failed to load conversation %s: %v", id, err)
		s.writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return nil, false
	}
	return conv, true
}

// resolveProvider falls back to the stored default when the request does not
// name a provider.
func (s *Server) resolveProvider(key string) string {
	if key != "" {
		return key
	}
	settings, err := s.store.LoadSettings()
	if err != nil {
		log.Printf("SERVER: failed to load settings, using default provider: %v", err)
		defaults := model.DefaultSettings()
		return defaults.Provider
	}
	return settings.Provider
}

// writeOrchestratorError maps orchestrator errors to HTTP responses.
// Generation failures never reach here; they arrive as Outcome.Failure.
func (s *Server) writeOrchestratorError(w http.ResponseWriter, err error) {
	if errors.Is(err, chat.ErrConversationBusy) {
		s.writeError(w, http.StatusConflict, "a response is already being generated for this conversation")
		return
	}
	log.Printf("SERVER: failed to persist conversation: %v", err)
	s.writeError(w, http.StatusInternalServerError, "failed to save conversation")
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}
