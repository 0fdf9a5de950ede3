package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_completer.go -package=mocks ragstack/internal/service Completer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragstack/internal/contextutil"
	"ragstack/internal/llm"
	"ragstack/internal/rag"
	"ragstack/internal/storage"
)

// Defaults applied when a generation request leaves parameters unset.
const (
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 1000
	DefaultSessionTitle = "New Chat"

	// historyWindow is the number of most recent stored messages sent to the
	// model per turn.
	historyWindow = 10
)

// retrievalPromptFormat frames the retrieved context for the model.
const retrievalPromptFormat = `Use the following information from the knowledge base to help answer the user's question.
If the information is not relevant to the user's question, ignore it:

%s

When referring to the information, don't mention the source numbers or explicitly state that you're using the knowledge base.`

// Completer generates a reply from an ordered message list. This interface is
// defined from the service layer's perspective (consumer-first).
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.CompletionParams) (string, error)
}

// RetrievalOptions controls the retrieval step of a generation turn.
type RetrievalOptions struct {
	// Enabled toggles retrieval. Nil means enabled.
	Enabled        *bool
	TopK           int
	FilterMetadata map[string]any
}

// GenerateRequest is one user turn.
type GenerateRequest struct {
	// SessionID names an existing session; an empty or unknown id creates a
	// new one.
	SessionID    string
	Message      string
	SystemPrompt string
	Retrieval    RetrievalOptions
	Model        string
	Temperature  *float64
	MaxTokens    int
}

// Reference points an assistant reply at one retrieved chunk. ChunkID is
// empty when the chunk's durable record could not be resolved.
type Reference struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// GenerateResponse is the completed turn: the persisted assistant message and
// the references behind it.
type GenerateResponse struct {
	SessionID  string
	Message    *storage.ChatMessage
	References []Reference
}

// GenerationService orchestrates a chat turn: session resolution, history
// assembly, retrieval, prompt construction, model call, and persistence.
type GenerationService struct {
	sessions     storage.SessionStore
	messages     storage.MessageStore
	retriever    rag.Engine
	completer    Completer
	defaultModel string
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(sessions storage.SessionStore, messages storage.MessageStore, retriever rag.Engine, completer Completer, defaultModel string) *GenerationService {
	return &GenerationService{
		sessions:     sessions,
		messages:     messages,
		retriever:    retriever,
		completer:    completer,
		defaultModel: defaultModel,
	}
}

// Generate runs one turn. The user message is persisted before the model
// call, so a failed turn still leaves the user's input in the session and a
// retry sees it in history. The session timestamp advances to the assistant
// message's creation time, once, at the end of a successful turn.
func (s *GenerationService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.Message == "" {
		return nil, &ValidationError{Field: "message", Message: "cannot be empty"}
	}

	session, err := s.resolveSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	userMsg := &storage.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      storage.RoleUser,
		Content:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Insert(ctx, userMsg); err != nil {
		return nil, WrapError(err, "failed to persist user message")
	}

	history, err := s.messages.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, WrapError(err, "failed to load history")
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var references []Reference
	contextBlock := ""
	if req.Retrieval.Enabled == nil || *req.Retrieval.Enabled {
		results, err := s.retriever.Search(ctx, rag.SearchRequest{
			Query:  req.Message,
			TopK:   req.Retrieval.TopK,
			Filter: req.Retrieval.FilterMetadata,
		})
		if err != nil {
			return nil, WrapError(err, "failed to retrieve context")
		}
		contextBlock = buildContextBlock(results)
		for _, result := range results {
			references = append(references, Reference{
				ChunkID:    result.ChunkID,
				DocumentID: result.DocumentID,
				Score:      result.Score,
			})
		}
	}

	prompt := buildPrompt(history, req.SystemPrompt, contextBlock)

	temperature := DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	reply, err := s.completer.Complete(ctx, prompt, llm.CompletionParams{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w: %w", ErrExternalService, err)
	}

	chunkIDs := make([]string, 0, len(references))
	for _, ref := range references {
		chunkIDs = append(chunkIDs, ref.ChunkID)
	}

	assistantMsg := &storage.ChatMessage{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		Role:       storage.RoleAssistant,
		Content:    reply,
		References: chunkIDs,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.messages.Insert(ctx, assistantMsg); err != nil {
		return nil, WrapError(err, "failed to persist assistant message")
	}

	if err := s.sessions.Touch(ctx, session.ID, assistantMsg.CreatedAt); err != nil {
		return nil, WrapError(err, "failed to touch session")
	}

	logger.InfoContext(ctx, "generation turn completed", "session_id", session.ID, "references", len(references), "reply_length", len(reply))
	return &GenerateResponse{
		SessionID:  session.ID,
		Message:    assistantMsg,
		References: references,
	}, nil
}

// resolveSession loads the named session. An empty or unknown id starts a
// fresh session instead of failing the turn; the caller learns the real id
// from the response.
func (s *GenerationService) resolveSession(ctx context.Context, sessionID string) (*storage.ChatSession, error) {
	if sessionID != "" {
		session, err := s.sessions.GetByID(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, WrapError(err, "failed to get session")
		}
	}
	return s.CreateSession(ctx, DefaultSessionTitle, nil)
}

// buildContextBlock formats retrieved chunks as a numbered context block.
// Index order, and therefore relevance order, is preserved.
func buildContextBlock(results []rag.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, len(results))
	for i, result := range results {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, result.Text)
	}
	return strings.Join(parts, "\n\n")
}

// buildPrompt assembles the model input: system instructions first, then the
// history window in stored order. Retrieved context is merged into a leading
// system message when the caller supplied one, otherwise it becomes one.
func buildPrompt(history []*storage.ChatMessage, systemPrompt, contextBlock string) []llm.Message {
	system := systemPrompt
	if contextBlock != "" {
		retrieval := fmt.Sprintf(retrievalPromptFormat, contextBlock)
		if system != "" {
			system += "\n\n" + retrieval
		} else {
			system = retrieval
		}
	}

	messages := make([]llm.Message, 0, len(history)+1)
	if system != "" {
		messages = append(messages, llm.Message{Role: storage.RoleSystem, Content: system})
	}
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return messages
}

// CreateSession creates a new chat session. An empty title gets the default.
func (s *GenerationService) CreateSession(ctx context.Context, title string, metadata map[string]any) (*storage.ChatSession, error) {
	if title == "" {
		title = DefaultSessionTitle
	}

	now := time.Now().UTC()
	session := &storage.ChatSession{
		ID:        uuid.NewString(),
		Title:     title,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Insert(ctx, session); err != nil {
		return nil, WrapError(err, "failed to insert session")
	}
	return session, nil
}

// ListSessions returns all sessions, most recently active first.
func (s *GenerationService) ListSessions(ctx context.Context) ([]*storage.ChatSession, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to list sessions")
	}
	return sessions, nil
}

// SessionMessages returns a session's messages in creation order.
// The session must exist.
func (s *GenerationService) SessionMessages(ctx context.Context, sessionID string) ([]*storage.ChatMessage, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, WrapError(err, "failed to get session")
	}

	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, WrapError(err, "failed to list messages")
	}
	return messages, nil
}

// DeleteSession removes a session and its messages. Messages go first so a
// partial failure leaves the session listed and the delete retryable.
func (s *GenerationService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.messages.DeleteBySession(ctx, sessionID); err != nil {
		return WrapError(err, "failed to delete messages")
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return WrapError(err, "failed to delete session")
	}
	return nil
}
