package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Viranshu-30/HippoSync/internal/access"
	"github.com/Viranshu-30/HippoSync/internal/adapter/llm"
	"github.com/Viranshu-30/HippoSync/internal/adapter/memory"
	"github.com/Viranshu-30/HippoSync/internal/config"
	"github.com/Viranshu-30/HippoSync/internal/domain"
	"github.com/Viranshu-30/HippoSync/internal/extract"
	"github.com/Viranshu-30/HippoSync/internal/store"
)

// fakeMemory records writes and serves canned search results.
type fakeMemory struct {
	searchResp *memory.SearchResponse
	searchErr  error
	writeErr   error

	searches []memory.SearchRequest
	episodic []fakeWrite
	profile  []fakeWrite
}

type fakeWrite struct {
	scope       memory.Scope
	text        string
	episodeType string
	metadata    map[string]interface{}
}

func (f *fakeMemory) Search(ctx context.Context, req memory.SearchRequest) (*memory.SearchResponse, error) {
	f.searches = append(f.searches, req)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResp == nil {
		return &memory.SearchResponse{}, nil
	}
	return f.searchResp, nil
}

func (f *fakeMemory) AddEpisodic(ctx context.Context, scope memory.Scope, text, episodeType string, metadata map[string]interface{}) error {
	f.episodic = append(f.episodic, fakeWrite{scope, text, episodeType, metadata})
	return f.writeErr
}

func (f *fakeMemory) AddProfile(ctx context.Context, scope memory.Scope, text, episodeType string, metadata map[string]interface{}) error {
	f.profile = append(f.profile, fakeWrite{scope, text, episodeType, metadata})
	return f.writeErr
}

// fakeLLM replies with a fixed string and captures the last request.
type fakeLLM struct {
	reply   string
	err     error
	models  []llm.Model
	lastReq *llm.ChatCompletionRequest
}

func (f *fakeLLM) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatCompletionResponse{
		Model: req.Model,
		Choices: []llm.Choice{
			{Message: &llm.ChatMessage{Role: "assistant", Content: f.reply}},
		},
	}, nil
}

func (f *fakeLLM) ListModels(ctx context.Context) ([]llm.Model, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

func newTestService(t *testing.T, mem *fakeMemory, provider *fakeLLM) (*Service, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	engine, err := access.NewPolicyEngine(context.Background(), access.DefaultPolicy)
	require.NoError(t, err)
	resolver := access.NewResolver(st, engine)

	cfg := &config.Config{
		DefaultModel:  "gpt-4o-mini",
		LLMTimeout:    5 * time.Second,
		MemoryTimeout: 5 * time.Second,
	}
	return New(st, resolver, mem, provider, extract.NewSnifferExtractor(), cfg), st
}

func TestChatSimpleTurn(t *testing.T) {
	ctx := context.Background()
	mem := &fakeMemory{}
	provider := &fakeLLM{reply: "hey there"}
	svc, st := newTestService(t, mem, provider)

	resp, err := svc.Chat(ctx, &ChatRequest{
		ThreadID:    "t1",
		RequesterID: "u1",
		Message:     "hello",
		Temperature: 1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "hey there", resp.Reply)
	assert.Equal(t, "t1", resp.ThreadID)

	// Zero search results: one user message, no context system message,
	// and empty provenance.
	require.Len(t, provider.lastReq.Messages, 1)
	assert.Equal(t, "user", provider.lastReq.Messages[0].Role)
	assert.Equal(t, "hello", provider.lastReq.Messages[0].Content)
	assert.Empty(t, resp.UsedContext)

	// User message persisted before retrieval was issued.
	require.Len(t, mem.searches, 1)
	assert.Equal(t, "hello", mem.searches[0].Query)
	assert.Equal(t, 12, mem.searches[0].Limit)
	assert.Equal(t, "user-u1", mem.searches[0].Scope.GroupScope)

	messages, err := st.GetMessages(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.SenderUser, messages[0].Sender)
	assert.Equal(t, domain.SenderAssistant, messages[1].Sender)
	assert.Equal(t, "hey there", messages[1].Content)

	// Write-back: one chat episodic, one assistant_fact profile.
	require.Len(t, mem.episodic, 1)
	assert.Equal(t, "chat", mem.episodic[0].episodeType)
	assert.Contains(t, mem.episodic[0].text, "User: hello")
	assert.Contains(t, mem.episodic[0].text, "Assistant: hey there")
	require.Len(t, mem.profile, 1)
	assert.Equal(t, "assistant_fact", mem.profile[0].episodeType)
	assert.Equal(t, "t1", mem.profile[0].metadata["thread_id"])
}

func TestChatSearchFailureDegrades(t *testing.T) {
	ctx := context.Background()
	mem := &fakeMemory{searchErr: errors.New("memory service down")}
	provider := &fakeLLM{reply: "still here"}
	svc, _ := newTestService(t, mem, provider)

	resp, err := svc.Chat(ctx, &ChatRequest{
		ThreadID:    "t1",
		RequesterID: "u1",
		Message:     "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "still here", resp.Reply)
	assert.Empty(t, resp.UsedContext)

	// No context system message was assembled.
	require.Len(t, provider.lastReq.Messages, 1)
	assert.Equal(t, "user", provider.lastReq.Messages[0].Role)
}

func TestChatWriteBackFailureDoesNotAffectReply(t *testing.T) {
	ctx := context.Background()
	mem := &fakeMemory{writeErr: errors.New("write refused")}
	provider := &fakeLLM{reply: "unaffected"}
	svc, st := newTestService(t, mem, provider)

	resp, err := svc.Chat(ctx, &ChatRequest{
		ThreadID:    "t1",
		RequesterID: "u1",
		Message:     "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "unaffected", resp.Reply)

	// Reply persisted despite the failed write-back.
	messages, err := st.GetMessages(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "unaffected", messages[1].Content)
}

func TestChatCompletionFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	mem := &fakeMemory{}
	provider := &fakeLLM{err: errors.New("quota exceeded")}
	svc, st := newTestService(t, mem, provider)

	_, err := svc.Chat(ctx, &ChatRequest{
		ThreadID:    "t1",
		RequesterID: "u1",
		Message:     "hello",
	})
	require.Error(t, err)

	// The user message stays durable; no reply, no write-back.
	messages, err := st.GetMessages(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, domain.SenderUser, messages[0].Sender)
	assert.Empty(t, mem.episodic)
}

func TestChatMemoryResultsFlowIntoContext(t *testing.T) {
	ctx := context.Background()
	mem := &fakeMemory{
		searchResp: &memory.SearchResponse{
			EpisodicResults: []memory.Result{{Content: "earlier we discussed Go", Score: 0.9}},
			ProfileResults:  []memory.Result{{Content: "user prefers short answers", Score: 0.8}},
		},
	}
	provider := &fakeLLM{reply: "ok"}
	svc, _ := newTestService(t, mem, provider)

	resp, err := svc.Chat(ctx, &ChatRequest{
		ThreadID:    "t1",
		RequesterID: "u1",
		Message:     "continue",
	})
	require.NoError(t, err)

	require.Len(t, provider.lastReq.Messages, 2)
	assert.Equal(t, "system", provider.lastReq.Messages[0].Role)
	assert.Contains(t, provider.lastReq.Messages[0].Content, "earlier we discussed Go")
	assert.Contains(t, provider.lastReq.Messages[0].Content, "user prefers short answers")
	assert.Equal(t, []string{"earlier we discussed Go", "user prefers short answers"}, resp.UsedContext)
}

func TestChatProjectThreadAccess(t *testing.T) {
	ctx := context.Background()
	mem := &fakeMemory{}
	provider := &fakeLLM{reply: "ok"}
	svc, st := newTestService(t, mem, provider)

	thread := &domain.Thread{
		ThreadID:    "team-thread",
		Title:       "team",
		ProjectID:   "p1",
		OwnerUserID: "owner",
		SessionID:   "s1",
		GroupScope:  "project-p1",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, st.CreateThread(ctx, thread))

	_, err := svc.Chat(ctx, &ChatRequest{
		ThreadID:    "team-thread",
		RequesterID: "outsider",
		Message:     "hi",
	})
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	// Denial is terminal: nothing ran after the access check.
	assert.Empty(t, mem.searches)
	messages, err := st.GetMessages(ctx, "team-thread", 10)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestChatProjectScopedMissingThreadIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeMemory{}, &fakeLLM{reply: "ok"})

	_, err := svc.Chat(ctx, &ChatRequest{
		ThreadID:    "missing",
		RequesterID: "u1",
		ProjectID:   "p1",
		Message:     "hi",
	})
	require.ErrorIs(t, err, domain.ErrThreadNotFound)
}

func TestChatDocumentUpload(t *testing.T) {
	ctx := context.Background()
	mem := &fakeMemory{}
	provider := &fakeLLM{reply: "summary of the doc"}
	svc, st := newTestService(t, mem, provider)

	// 3000 words at chunkSize=1200 overlap=150 yields 3 chunks.
	words := make([]string, 3000)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	doc := strings.Join(words, " ")

	resp, err := svc.Chat(ctx, &ChatRequest{
		ThreadID:    "t1",
		RequesterID: "u1",
		Upload:      &Upload{Filename: "notes.txt", Data: []byte(doc)},
	})
	require.NoError(t, err)
	assert.Equal(t, "summary of the doc", resp.Reply)

	// 3 document_chunk writes (3 < 24), one document summary, one
	// profile document fact.
	var chunkWrites, docWrites []fakeWrite
	for _, w := range mem.episodic {
		switch w.episodeType {
		case "document_chunk":
			chunkWrites = append(chunkWrites, w)
		case "document":
			docWrites = append(docWrites, w)
		}
	}
	require.Len(t, chunkWrites, 3)
	assert.Equal(t, 0, chunkWrites[0].metadata["part"])
	assert.Equal(t, "notes.txt", chunkWrites[0].metadata["source"])
	assert.Equal(t, "text", chunkWrites[0].metadata["kind"])
	require.Len(t, docWrites, 1)
	assert.Contains(t, docWrites[0].text, "(3 chunks)")

	var profileDocs int
	for _, w := range mem.profile {
		if w.episodeType == "document" {
			profileDocs++
		}
	}
	assert.Equal(t, 1, profileDocs)

	// Effective user message: summarize instruction over the first 4000
	// characters of the parsed text.
	userMsg := provider.lastReq.Messages[len(provider.lastReq.Messages)-1]
	assert.Equal(t, "user", userMsg.Role)
	assert.True(t, strings.HasPrefix(userMsg.Content, "Please summarize this document:\n"))
	body := strings.TrimPrefix(userMsg.Content, "Please summarize this document:\n")
	assert.Len(t, body, 4000)
	assert.True(t, strings.HasPrefix(doc, body))

	// Parsed document text leads the provenance list.
	require.NotEmpty(t, resp.UsedContext)
	assert.Equal(t, body, resp.UsedContext[0])

	// Only the file-arrival message and the reply were persisted; the
	// synthesized instruction is effective-only.
	messages, err := st.GetMessages(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.MessageTypeFile, messages[0].Type)
	assert.Equal(t, "notes.txt", messages[0].Filename)
	assert.Equal(t, domain.SenderAssistant, messages[1].Sender)
}

func TestChatUploadWithoutUsableText(t *testing.T) {
	ctx := context.Background()
	mem := &fakeMemory{}
	provider := &fakeLLM{reply: "cannot read that"}
	svc, st := newTestService(t, mem, provider)

	// The default extractor labels pdf uploads without parsing them.
	resp, err := svc.Chat(ctx, &ChatRequest{
		ThreadID:    "t1",
		RequesterID: "u1",
		Upload:      &Upload{Filename: "scan.pdf", Data: []byte{0x25, 0x50, 0x44, 0x46}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cannot read that", resp.Reply)

	// File-arrival message persisted despite empty extraction; no
	// document memory was written.
	messages, err := st.GetMessages(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.MessageTypeFile, messages[0].Type)
	for _, w := range mem.episodic {
		assert.NotEqual(t, "document_chunk", w.episodeType)
	}

	// With no text and no parsed content, the user turn falls back to
	// the analyze instruction and retrieval used the generic query.
	userMsg := provider.lastReq.Messages[len(provider.lastReq.Messages)-1]
	assert.Equal(t, "Analyze the uploaded file scan.pdf.", userMsg.Content)
	require.Len(t, mem.searches, 1)
	assert.Equal(t, "recent context and uploaded documents", mem.searches[0].Query)
}

func TestChatAutoProvisionUsesThreadScope(t *testing.T) {
	ctx := context.Background()
	mem := &fakeMemory{}
	provider := &fakeLLM{reply: "ok"}
	svc, st := newTestService(t, mem, provider)

	resp, err := svc.Chat(ctx, &ChatRequest{
		RequesterID: "u7",
		Message:     "first contact",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ThreadID)

	thread, err := st.GetThread(ctx, resp.ThreadID)
	require.NoError(t, err)
	require.NotNil(t, thread)
	assert.Equal(t, "user-u7", thread.GroupScope)

	// Every memory call was scoped by the provisioned thread's keys.
	require.Len(t, mem.searches, 1)
	assert.Equal(t, thread.SessionID, mem.searches[0].Scope.SessionID)
	for _, w := range append(mem.episodic, mem.profile...) {
		assert.Equal(t, thread.SessionID, w.scope.SessionID)
		assert.Equal(t, "user-u7", w.scope.GroupScope)
	}
}
