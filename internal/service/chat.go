package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Viranshu-30/HippoSync/internal/adapter/llm"
	"github.com/Viranshu-30/HippoSync/internal/adapter/memory"
	"github.com/Viranshu-30/HippoSync/internal/chunker"
	"github.com/Viranshu-30/HippoSync/internal/domain"
	"github.com/Viranshu-30/HippoSync/internal/prompt"
)

const (
	// retrieveLimit bounds combined results requested from memory search.
	retrieveLimit = 12

	// maxChunkWrites caps episodic document_chunk writes per upload,
	// below the chunker's own hard cap.
	maxChunkWrites = 24

	// fallbackQuery is used when a turn has neither text nor an upload.
	fallbackQuery = "recent context and uploaded documents"
)

// ChatRequest is one chat turn.
type ChatRequest struct {
	ThreadID     string
	RequesterID  string
	ProjectID    string
	Message      string
	Model        string
	Temperature  float64
	SystemPrompt string

	// Upload, when non-nil, is this turn's attached document.
	Upload *Upload
}

// Upload carries an attached file's bytes and name.
type Upload struct {
	Filename string
	Data     []byte
}

// ChatResponse is the turn's outcome.
type ChatResponse struct {
	Reply       string   `json:"reply"`
	ThreadID    string   `json:"thread_id"`
	UsedContext []string `json:"used_context"`
}

// Chat runs one turn of the memory-augmented pipeline: resolve access,
// ingest any upload, persist the user message, retrieve memory, assemble
// the prompt, complete, persist the reply, write back memory.
//
// Access resolution, message persistence and the completion call are
// fatal on failure; retrieval degrades to an empty context; memory
// writes are best-effort. Messages already appended are never rolled
// back by a later failure.
func (s *Service) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	grant, err := s.resolver.Resolve(ctx, req.ThreadID, req.RequesterID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	thread := grant.Thread
	scope := memory.Scope{
		GroupScope: grant.GroupScope,
		UserID:     req.RequesterID,
		SessionID:  grant.SessionID,
	}

	// The effective message drives retrieval and the prompt; only the
	// literal user text is ever persisted as a user message.
	userText := req.Message
	effectiveText := req.Message
	parsedText := ""
	filename := ""

	if req.Upload != nil {
		filename = req.Upload.Filename
		parsedText, err = s.ingestUpload(ctx, thread, scope, req.Upload)
		if err != nil {
			return nil, err
		}
		if parsedText != "" && strings.TrimSpace(userText) == "" {
			effectiveText = "Please summarize this document:\n" + prompt.TruncateDocument(parsedText)
		}
	}

	if strings.TrimSpace(userText) != "" {
		if err := s.persistMessage(ctx, thread.ThreadID, domain.Message{
			Sender:  domain.SenderUser,
			Type:    domain.MessageTypeText,
			Content: userText,
		}); err != nil {
			return nil, fmt.Errorf("failed to persist user message: %w", err)
		}
	}

	search := s.retrieve(ctx, scope, effectiveText)

	assembled := prompt.Assemble(prompt.Input{
		SystemPrompt: req.SystemPrompt,
		UserMessage:  effectiveText,
		DocumentText: parsedText,
		Filename:     filename,
		Search:       search,
	})

	model := req.Model
	if model == "" {
		model = s.config.DefaultModel
	}
	temperature := req.Temperature
	llmCtx, cancel := context.WithTimeout(ctx, s.config.LLMTimeout)
	defer cancel()
	completion, err := s.llmClient.CreateChatCompletion(llmCtx, &llm.ChatCompletionRequest{
		Model:       model,
		Messages:    assembled.Messages,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	reply := completion.ReplyText()

	if err := s.persistMessage(ctx, thread.ThreadID, domain.Message{
		Sender:  domain.SenderAssistant,
		Type:    domain.MessageTypeText,
		Content: reply,
	}); err != nil {
		return nil, fmt.Errorf("failed to persist reply: %w", err)
	}

	s.writeBackMemory(ctx, thread.ThreadID, scope, model, effectiveText, reply)

	return &ChatResponse{
		Reply:       reply,
		ThreadID:    thread.ThreadID,
		UsedContext: assembled.UsedContext,
	}, nil
}

// ingestUpload extracts the upload's text, records the file-arrival
// message, and files the document into episodic and profile memory.
// Returns the parsed text, "" when nothing usable was extracted.
// Extraction failure never fails the turn; only the file-arrival message
// persistence can.
func (s *Service) ingestUpload(ctx context.Context, thread *domain.Thread, scope memory.Scope, upload *Upload) (string, error) {
	parsedText, kind := s.extractUpload(upload)

	// The file-arrival message is persisted whether or not extraction
	// produced usable text.
	if err := s.persistMessage(ctx, thread.ThreadID, domain.Message{
		Sender:   domain.SenderUser,
		Type:     domain.MessageTypeFile,
		Filename: upload.Filename,
	}); err != nil {
		return "", fmt.Errorf("failed to persist file message: %w", err)
	}

	if strings.TrimSpace(parsedText) == "" {
		return "", nil
	}

	chunks := chunker.Chunk(parsedText, chunker.DefaultChunkSize, chunker.DefaultOverlap)
	writes := chunks
	if len(writes) > maxChunkWrites {
		writes = writes[:maxChunkWrites]
	}
	for i, ch := range writes {
		s.addEpisodic(ctx, scope, ch, "document_chunk", map[string]interface{}{
			"source":    upload.Filename,
			"part":      i,
			"kind":      string(kind),
			"thread_id": thread.ThreadID,
		})
	}

	s.addEpisodic(ctx, scope,
		fmt.Sprintf("Document uploaded: %s (%d chunks).", upload.Filename, len(chunks)),
		"document", map[string]interface{}{
			"kind":      string(kind),
			"thread_id": thread.ThreadID,
		})
	s.addProfile(ctx, scope,
		"Stored document: "+upload.Filename,
		"document", map[string]interface{}{
			"filename":  upload.Filename,
			"kind":      string(kind),
			"thread_id": thread.ThreadID,
		})

	return parsedText, nil
}

// extractUpload spools the upload to a temp file for the extractor. The
// temp file is removed on every exit path.
func (s *Service) extractUpload(upload *Upload) (string, domain.DocumentKind) {
	tmp, err := os.CreateTemp("", "hipposync-upload-*")
	if err != nil {
		log.Printf("WARN: failed to create temp file for upload: %v", err)
		return "", domain.DocumentKindUnknown
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(upload.Data); err != nil {
		tmp.Close()
		log.Printf("WARN: failed to spool upload: %v", err)
		return "", domain.DocumentKindUnknown
	}
	if err := tmp.Close(); err != nil {
		log.Printf("WARN: failed to close temp file: %v", err)
		return "", domain.DocumentKindUnknown
	}

	return s.extractor.Extract(tmpPath, upload.Filename)
}

// retrieve queries the memory service. Failures and timeouts degrade to
// an empty result so the turn proceeds with no recalled context.
func (s *Service) retrieve(ctx context.Context, scope memory.Scope, effectiveText string) *memory.SearchResponse {
	query := effectiveText
	if strings.TrimSpace(query) == "" {
		query = fallbackQuery
	}

	memCtx, cancel := context.WithTimeout(ctx, s.config.MemoryTimeout)
	defer cancel()
	search, err := s.memory.Search(memCtx, memory.SearchRequest{
		Scope:           scope,
		Query:           query,
		Limit:           retrieveLimit,
		IncludeEpisodic: true,
		IncludeProfile:  true,
	})
	if err != nil {
		log.Printf("WARN: memory search failed, proceeding without context: %v", err)
		return &memory.SearchResponse{}
	}
	return search
}

// writeBackMemory files the completed exchange into episodic and profile
// memory. Runs after the reply is durable; failures are logged only and
// never change the turn's outcome.
func (s *Service) writeBackMemory(ctx context.Context, threadID string, scope memory.Scope, model, userText, reply string) {
	s.addEpisodic(ctx, scope,
		fmt.Sprintf("User: %s\nAssistant: %s", userText, reply),
		"chat", map[string]interface{}{
			"model":     model,
			"thread_id": threadID,
		})
	s.addProfile(ctx, scope,
		"Assistant reply: "+reply,
		"assistant_fact", map[string]interface{}{
			"model":     model,
			"thread_id": threadID,
			"source":    "assistant",
		})
}

func (s *Service) addEpisodic(ctx context.Context, scope memory.Scope, text, episodeType string, metadata map[string]interface{}) {
	memCtx, cancel := context.WithTimeout(ctx, s.config.MemoryTimeout)
	defer cancel()
	if err := s.memory.AddEpisodic(memCtx, scope, text, episodeType, metadata); err != nil {
		log.Printf("WARN: episodic memory write failed (type=%s): %v", episodeType, err)
	}
}

func (s *Service) addProfile(ctx context.Context, scope memory.Scope, text, episodeType string, metadata map[string]interface{}) {
	memCtx, cancel := context.WithTimeout(ctx, s.config.MemoryTimeout)
	defer cancel()
	if err := s.memory.AddProfile(memCtx, scope, text, episodeType, metadata); err != nil {
		log.Printf("WARN: profile memory write failed (type=%s): %v", episodeType, err)
	}
}

// persistMessage appends a message and touches the thread's activity
// timestamp.
func (s *Service) persistMessage(ctx context.Context, threadID string, msg domain.Message) error {
	msg.MessageID = ulid.Make().String()
	msg.ThreadID = threadID
	msg.CreatedAt = time.Now()
	if err := s.store.CreateMessage(ctx, &msg); err != nil {
		return err
	}
	// last_message_at is advisory ordering metadata; last write wins.
	if err := s.store.TouchThread(ctx, threadID); err != nil {
		log.Printf("WARN: failed to touch thread %s: %v", threadID, err)
	}
	return nil
}
