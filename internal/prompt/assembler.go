// Package prompt assembles the bounded context block and the message
// sequence handed to the completion provider.
package prompt

import (
	"strings"

	"github.com/Viranshu-30/HippoSync/internal/adapter/llm"
	"github.com/Viranshu-30/HippoSync/internal/adapter/memory"
)

const (
	// documentCharBudget bounds how much freshly parsed document text is
	// injected into the context.
	documentCharBudget = 4000

	// maxContextBlobs bounds how many memory blobs join the context block.
	maxContextBlobs = 10

	// maxUsedContext bounds the provenance list returned to the caller.
	maxUsedContext = 8

	contextPrefix = "Relevant memory context:\n"
)

// Input is everything the assembler considers for one turn.
type Input struct {
	SystemPrompt string
	UserMessage  string
	// DocumentText is freshly parsed text from this turn's upload, if any.
	DocumentText string
	// Filename is the uploaded file's name, used for the fallback
	// instruction when the user supplied no text.
	Filename string
	// Search is the memory retrieval result, possibly nil or empty.
	Search *memory.SearchResponse
}

// Output is the assembled prompt.
type Output struct {
	Messages []llm.ChatMessage
	// UsedContext is the list of context blobs actually consulted,
	// for provenance in the turn's response.
	UsedContext []string
}

// TruncateDocument clips parsed document text to the context budget.
func TruncateDocument(text string) string {
	if len(text) > documentCharBudget {
		return text[:documentCharBudget]
	}
	return text
}

// Assemble builds the context block and message list. Fresh document text
// takes priority over retrieved memory; memory blobs keep the service's
// ranking order, episodic before profile. An empty context block never
// produces a context message, and the user turn falls back so the
// provider is never called with zero messages.
func Assemble(in Input) Output {
	var blobs []string
	if in.DocumentText != "" {
		blobs = append(blobs, TruncateDocument(in.DocumentText))
	}
	if in.Search != nil {
		for _, r := range in.Search.EpisodicResults {
			blobs = append(blobs, r.Content)
		}
		for _, r := range in.Search.ProfileResults {
			blobs = append(blobs, r.Content)
		}
	}

	joined := blobs
	if len(joined) > maxContextBlobs {
		joined = joined[:maxContextBlobs]
	}
	contextText := strings.Join(nonEmptyBlobs(joined), "\n\n")

	var messages []llm.ChatMessage
	if in.SystemPrompt != "" {
		messages = append(messages, llm.ChatMessage{Role: "system", Content: in.SystemPrompt})
	}
	if contextText != "" {
		messages = append(messages, llm.ChatMessage{Role: "system", Content: contextPrefix + contextText})
	}

	switch {
	case strings.TrimSpace(in.UserMessage) != "":
		messages = append(messages, llm.ChatMessage{Role: "user", Content: in.UserMessage})
	case in.Filename != "":
		messages = append(messages, llm.ChatMessage{Role: "user", Content: "Analyze the uploaded file " + in.Filename + "."})
	default:
		messages = append(messages, llm.ChatMessage{Role: "user", Content: "Hi!"})
	}

	used := blobs
	if len(used) > maxUsedContext {
		used = used[:maxUsedContext]
	}

	return Output{Messages: messages, UsedContext: used}
}

func nonEmptyBlobs(blobs []string) []string {
	out := blobs[:0:0]
	for _, b := range blobs {
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}
