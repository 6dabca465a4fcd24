// Package chunker splits extracted document text into overlapping
// word-windows for memory indexing.
package chunker

import (
	"strings"
)

const (
	DefaultChunkSize = 1200
	DefaultOverlap   = 150

	// MaxChunks bounds the output regardless of input size so a single
	// document can never flood the memory service.
	MaxChunks = 50
)

// Chunk splits text on whitespace and emits consecutive windows of size
// words, advancing by max(1, size-overlap) words each step. Windows are
// re-joined with single spaces. Empty input yields nil.
func Chunk(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}

	step := size - overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if len(chunks) == MaxChunks {
			break
		}
	}
	return chunks
}
