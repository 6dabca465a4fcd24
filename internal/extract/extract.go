// Package extract detects uploaded document formats and pulls out their
// text content. Extraction never fails hard: unreadable or unparseable
// files yield empty text, which callers treat as "no usable content".
package extract

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/Viranshu-30/HippoSync/internal/domain"
)

// Extractor turns an uploaded file into an opaque text blob plus a
// detected kind label.
type Extractor interface {
	Extract(path, filename string) (string, domain.DocumentKind)
}

// SnifferExtractor routes purely off the filename extension. Binary
// formats (pdf, docx) are labelled but not parsed here; a richer
// implementation can wrap this one to add real parsers.
type SnifferExtractor struct{}

// NewSnifferExtractor creates a new extension-sniffing extractor.
func NewSnifferExtractor() *SnifferExtractor {
	return &SnifferExtractor{}
}

var _ Extractor = (*SnifferExtractor)(nil)

// Extract reads the file at path and returns its text and kind.
func (e *SnifferExtractor) Extract(path, filename string) (string, domain.DocumentKind) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return "", domain.DocumentKindPDF
	case strings.HasSuffix(name, ".docx"):
		return "", domain.DocumentKindDocx
	case strings.HasSuffix(name, ".txt"), strings.HasSuffix(name, ".md"):
		return readText(path), domain.DocumentKindText
	default:
		// Fallback: try reading as plain text.
		return readText(path), domain.DocumentKindUnknown
	}
}

// readText reads a file as UTF-8 text, returning "" on any failure or
// when the content does not look like text at all.
func readText(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return text
}
