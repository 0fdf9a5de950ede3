package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ragstack/internal/contextutil"
	"ragstack/internal/service"
	"ragstack/internal/storage"
)

// ChatHandler handles HTTP requests for chat sessions and generation.
type ChatHandler struct {
	generation *service.GenerationService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(generation *service.GenerationService) *ChatHandler {
	return &ChatHandler{generation: generation}
}

// GenerateRequest represents the HTTP request payload for a generation turn.
type GenerateRequest struct {
	SessionID    string         `json:"session_id,omitempty"`
	Message      string         `json:"message"`
	SystemPrompt string         `json:"system_prompt,omitempty"`
	Model        string         `json:"model,omitempty"`
	Temperature  *float64       `json:"temperature,omitempty"`
	MaxTokens    int            `json:"max_tokens,omitempty"`
	UseRetrieval *bool          `json:"use_retrieval,omitempty"`
	TopK         int            `json:"top_k,omitempty"`
	FilterMeta   map[string]any `json:"filter_metadata,omitempty"`
}

// ReferenceResponse represents one source reference of an assistant reply.
type ReferenceResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// GenerateResponse represents the HTTP response payload for a generation turn.
type GenerateResponse struct {
	SessionID  string              `json:"session_id"`
	Message    MessageResponse     `json:"message"`
	References []ReferenceResponse `json:"references"`
}

// SessionResponse represents a chat session in HTTP responses.
type SessionResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MessageResponse represents a chat message in HTTP responses.
type MessageResponse struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	References []string       `json:"references"`
	CreatedAt  time.Time      `json:"created_at"`
}

// CreateSessionRequest represents the HTTP request payload for creating a session.
type CreateSessionRequest struct {
	Title    string         `json:"title,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func toSessionResponse(session *storage.ChatSession) SessionResponse {
	return SessionResponse{
		ID:        session.ID,
		Title:     session.Title,
		Metadata:  session.Metadata,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
}

func toMessageResponse(msg *storage.ChatMessage) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		SessionID:  msg.SessionID,
		Role:       msg.Role,
		Content:    msg.Content,
		Metadata:   msg.Metadata,
		References: msg.References,
		CreatedAt:  msg.CreatedAt,
	}
}

// Generate handles POST /chat/generate.
func (h *ChatHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Message == "" {
		logger.WarnContext(ctx, "empty message in generate request")
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	resp, err := h.generation.Generate(ctx, service.GenerateRequest{
		SessionID:    req.SessionID,
		Message:      req.Message,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		Retrieval: service.RetrievalOptions{
			Enabled:        req.UseRetrieval,
			TopK:           req.TopK,
			FilterMetadata: req.FilterMeta,
		},
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to generate reply")
		return
	}

	references := make([]ReferenceResponse, len(resp.References))
	for i, ref := range resp.References {
		references[i] = ReferenceResponse{
			ChunkID:    ref.ChunkID,
			DocumentID: ref.DocumentID,
			Score:      ref.Score,
		}
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		SessionID:  resp.SessionID,
		Message:    toMessageResponse(resp.Message),
		References: references,
	})
}

// CreateSession handles POST /chat/sessions.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.generation.CreateSession(ctx, req.Title, req.Metadata)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// ListSessions handles GET /chat/sessions.
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.generation.ListSessions(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list sessions")
		return
	}

	responses := make([]SessionResponse, len(sessions))
	for i, session := range sessions {
		responses[i] = toSessionResponse(session)
	}

	writeJSON(w, http.StatusOK, responses)
}

// SessionMessages handles GET /chat/sessions/{id}/messages.
func (h *ChatHandler) SessionMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	messages, err := h.generation.SessionMessages(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list messages")
		return
	}

	responses := make([]MessageResponse, len(messages))
	for i, msg := range messages {
		responses[i] = toMessageResponse(msg)
	}

	writeJSON(w, http.StatusOK, responses)
}

// DeleteSession handles DELETE /chat/sessions/{id}.
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.generation.DeleteSession(ctx, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
