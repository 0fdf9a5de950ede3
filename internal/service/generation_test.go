package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"ragstack/internal/llm"
	"ragstack/internal/rag"
	ragmocks "ragstack/internal/rag/mocks"
	"ragstack/internal/service/mocks"
	"ragstack/internal/storage"
	storagemocks "ragstack/internal/storage/mocks"
)

type generationMocks struct {
	sessions  *storagemocks.MockSessionStore
	messages  *storagemocks.MockMessageStore
	retriever *ragmocks.MockEngine
	completer *mocks.MockCompleter
}

func newGenerationService(ctrl *gomock.Controller) (*GenerationService, generationMocks) {
	m := generationMocks{
		sessions:  storagemocks.NewMockSessionStore(ctrl),
		messages:  storagemocks.NewMockMessageStore(ctrl),
		retriever: ragmocks.NewMockEngine(ctrl),
		completer: mocks.NewMockCompleter(ctrl),
	}
	return NewGenerationService(m.sessions, m.messages, m.retriever, m.completer, "test-model"), m
}

func TestGenerationService_Generate_NewSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newGenerationService(ctrl)

	// No session id: the turn creates one with the default title.
	var createdSession *storage.ChatSession
	m.sessions.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, session *storage.ChatSession) error {
			if session.Title != DefaultSessionTitle {
				t.Errorf("session title = %q, want %q", session.Title, DefaultSessionTitle)
			}
			createdSession = session
			return nil
		})

	var persisted []*storage.ChatMessage
	m.messages.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *storage.ChatMessage) error {
			persisted = append(persisted, msg)
			return nil
		}).Times(2)

	m.messages.EXPECT().
		ListBySession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string) ([]*storage.ChatMessage, error) {
			return persisted, nil
		})

	m.retriever.EXPECT().
		Search(gomock.Any(), gomock.Any()).
		Return([]rag.SearchResult{
			{ChunkID: "c-1", DocumentID: "doc-1", Text: "relevant chunk", Score: 0.9},
		}, nil)

	m.completer.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llm.Message, params llm.CompletionParams) (string, error) {
			if messages[0].Role != storage.RoleSystem {
				t.Errorf("first prompt message role = %q, want system", messages[0].Role)
			}
			if !strings.Contains(messages[0].Content, "[1] relevant chunk") {
				t.Errorf("system message missing numbered context block: %q", messages[0].Content)
			}
			if params.Model != "test-model" {
				t.Errorf("model = %q, want default", params.Model)
			}
			if params.Temperature != DefaultTemperature {
				t.Errorf("temperature = %v, want default", params.Temperature)
			}
			if params.MaxTokens != DefaultMaxTokens {
				t.Errorf("max tokens = %v, want default", params.MaxTokens)
			}
			return "the answer", nil
		})

	m.sessions.EXPECT().
		Touch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string, updatedAt any) error {
			if createdSession != nil && id != createdSession.ID {
				t.Errorf("Touch() session id = %q, want %q", id, createdSession.ID)
			}
			return nil
		})

	resp, err := svc.Generate(context.Background(), GenerateRequest{Message: "what is a raft?"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.SessionID == "" {
		t.Error("Generate() response has no session id")
	}
	if resp.Message.Role != storage.RoleAssistant {
		t.Errorf("Generate() message role = %q, want assistant", resp.Message.Role)
	}
	if resp.Message.Content != "the answer" {
		t.Errorf("Generate() message content = %q", resp.Message.Content)
	}
	if len(resp.References) != 1 || resp.References[0].ChunkID != "c-1" {
		t.Errorf("Generate() references = %+v, want chunk c-1", resp.References)
	}

	if len(persisted) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(persisted))
	}
	if persisted[0].Role != storage.RoleUser || persisted[1].Role != storage.RoleAssistant {
		t.Error("messages persisted in wrong order")
	}
	if len(persisted[1].References) != 1 || persisted[1].References[0] != "c-1" {
		t.Errorf("assistant references = %v, want [c-1]", persisted[1].References)
	}
}

func TestGenerationService_Generate_RetrievalDisabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newGenerationService(ctrl)

	session := &storage.ChatSession{ID: "sess-1", Title: "Existing"}
	m.sessions.EXPECT().GetByID(gomock.Any(), "sess-1").Return(session, nil)
	m.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	m.messages.EXPECT().ListBySession(gomock.Any(), "sess-1").Return(nil, nil)

	// No retriever expectation: retrieval must not run when disabled.
	m.completer.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llm.Message, _ llm.CompletionParams) (string, error) {
			for _, msg := range messages {
				if msg.Role == storage.RoleSystem && strings.Contains(msg.Content, "knowledge base") {
					t.Error("prompt contains retrieval framing with retrieval disabled")
				}
			}
			return "plain answer", nil
		})
	m.sessions.EXPECT().Touch(gomock.Any(), "sess-1", gomock.Any()).Return(nil)

	disabled := false
	resp, err := svc.Generate(context.Background(), GenerateRequest{
		SessionID: "sess-1",
		Message:   "hello",
		Retrieval: RetrievalOptions{Enabled: &disabled},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(resp.References) != 0 {
		t.Errorf("Generate() references = %v, want none", resp.References)
	}
}

func TestGenerationService_Generate_HistoryWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newGenerationService(ctrl)

	session := &storage.ChatSession{ID: "sess-1"}
	m.sessions.EXPECT().GetByID(gomock.Any(), "sess-1").Return(session, nil)
	m.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	// Fifteen stored messages; only the last ten may reach the model.
	history := make([]*storage.ChatMessage, 15)
	for i := range history {
		role := storage.RoleUser
		if i%2 == 1 {
			role = storage.RoleAssistant
		}
		history[i] = &storage.ChatMessage{ID: string(rune('a' + i)), SessionID: "sess-1", Role: role, Content: "turn"}
	}
	m.messages.EXPECT().ListBySession(gomock.Any(), "sess-1").Return(history, nil)

	disabled := false
	m.completer.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llm.Message, _ llm.CompletionParams) (string, error) {
			if len(messages) != 10 {
				t.Errorf("prompt carries %d messages, want 10", len(messages))
			}
			return "answer", nil
		})
	m.sessions.EXPECT().Touch(gomock.Any(), "sess-1", gomock.Any()).Return(nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{
		SessionID: "sess-1",
		Message:   "latest",
		Retrieval: RetrievalOptions{Enabled: &disabled},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestGenerationService_Generate_ProviderFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newGenerationService(ctrl)

	session := &storage.ChatSession{ID: "sess-1"}
	m.sessions.EXPECT().GetByID(gomock.Any(), "sess-1").Return(session, nil)

	// Only the user message lands; the failed turn persists no assistant
	// message and never touches the session.
	m.messages.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *storage.ChatMessage) error {
			if msg.Role != storage.RoleUser {
				t.Errorf("persisted role = %q, want user only", msg.Role)
			}
			return nil
		})
	m.messages.EXPECT().ListBySession(gomock.Any(), "sess-1").Return(nil, nil)

	disabled := false
	m.completer.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("llm unavailable"))

	_, err := svc.Generate(context.Background(), GenerateRequest{
		SessionID: "sess-1",
		Message:   "hello",
		Retrieval: RetrievalOptions{Enabled: &disabled},
	})
	if !errors.Is(err, ErrExternalService) {
		t.Errorf("Generate() error = %v, want ErrExternalService", err)
	}
}

func TestGenerationService_Generate_UnknownSessionStartsFresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newGenerationService(ctrl)

	// A stale session id must not fail the turn: a new session is created
	// and the turn proceeds under its identity.
	m.sessions.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)

	var createdSession *storage.ChatSession
	m.sessions.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, session *storage.ChatSession) error {
			if session.Title != DefaultSessionTitle {
				t.Errorf("session title = %q, want %q", session.Title, DefaultSessionTitle)
			}
			createdSession = session
			return nil
		})

	m.messages.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *storage.ChatMessage) error {
			if createdSession != nil && msg.SessionID != createdSession.ID {
				t.Errorf("message session id = %q, want %q", msg.SessionID, createdSession.ID)
			}
			return nil
		}).Times(2)
	m.messages.EXPECT().ListBySession(gomock.Any(), gomock.Any()).Return(nil, nil)

	disabled := false
	m.completer.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("answer", nil)
	m.sessions.EXPECT().Touch(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	resp, err := svc.Generate(context.Background(), GenerateRequest{
		SessionID: "missing",
		Message:   "hello",
		Retrieval: RetrievalOptions{Enabled: &disabled},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.SessionID == "" || resp.SessionID == "missing" {
		t.Errorf("Generate() session id = %q, want a fresh session", resp.SessionID)
	}
}

func TestGenerationService_Generate_EmptyMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _ := newGenerationService(ctrl)
	_, err := svc.Generate(context.Background(), GenerateRequest{Message: ""})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Generate() error = %v, want ValidationError", err)
	}
}

func TestGenerationService_Generate_SystemPromptMerged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newGenerationService(ctrl)

	session := &storage.ChatSession{ID: "sess-1"}
	m.sessions.EXPECT().GetByID(gomock.Any(), "sess-1").Return(session, nil)
	m.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	m.messages.EXPECT().ListBySession(gomock.Any(), "sess-1").Return(nil, nil)

	m.retriever.EXPECT().
		Search(gomock.Any(), gomock.Any()).
		Return([]rag.SearchResult{{ChunkID: "c-1", Text: "context text", Score: 0.8}}, nil)

	m.completer.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llm.Message, _ llm.CompletionParams) (string, error) {
			systemCount := 0
			for _, msg := range messages {
				if msg.Role == storage.RoleSystem {
					systemCount++
					if !strings.Contains(msg.Content, "Be terse.") {
						t.Error("system message lost the caller's prompt")
					}
					if !strings.Contains(msg.Content, "context text") {
						t.Error("system message missing retrieved context")
					}
				}
			}
			if systemCount != 1 {
				t.Errorf("prompt has %d system messages, want 1", systemCount)
			}
			return "answer", nil
		})
	m.sessions.EXPECT().Touch(gomock.Any(), "sess-1", gomock.Any()).Return(nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{
		SessionID:    "sess-1",
		Message:      "hello",
		SystemPrompt: "Be terse.",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestGenerationService_DeleteSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newGenerationService(ctrl)

	gomock.InOrder(
		m.messages.EXPECT().DeleteBySession(gomock.Any(), "sess-1").Return(nil),
		m.sessions.EXPECT().Delete(gomock.Any(), "sess-1").Return(nil),
	)

	if err := svc.DeleteSession(context.Background(), "sess-1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
}

func TestGenerationService_DeleteSession_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newGenerationService(ctrl)
	m.messages.EXPECT().DeleteBySession(gomock.Any(), "missing").Return(nil)
	m.sessions.EXPECT().Delete(gomock.Any(), "missing").Return(storage.ErrNotFound)

	if err := svc.DeleteSession(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteSession() error = %v, want ErrNotFound", err)
	}
}

func TestGenerationService_SessionMessages_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newGenerationService(ctrl)
	m.sessions.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)

	if _, err := svc.SessionMessages(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SessionMessages() error = %v, want ErrNotFound", err)
	}
}
