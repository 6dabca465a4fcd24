// Package domain defines the core domain models for the chat backend.
package domain

import (
	"time"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// MessageType distinguishes text turns from file-arrival records.
type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
)

// DocumentKind is the detected format of an uploaded document.
type DocumentKind string

const (
	DocumentKindPDF     DocumentKind = "pdf"
	DocumentKindDocx    DocumentKind = "docx"
	DocumentKindText    DocumentKind = "text"
	DocumentKindUnknown DocumentKind = "unknown"
)

// Thread represents a conversation thread. GroupScope and SessionID are
// the durable keys under which all memory for the thread is filed; they
// are set at creation and never change.
type Thread struct {
	ThreadID      string     `json:"thread_id"`
	Title         string     `json:"title"`
	ProjectID     string     `json:"project_id,omitempty"`
	OwnerUserID   string     `json:"owner_user_id"`
	SessionID     string     `json:"session_id"`
	GroupScope    string     `json:"group_scope"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Message represents a single message in a thread. Messages are
// append-only; replay order is created_at ascending.
type Message struct {
	MessageID string      `json:"message_id"`
	ThreadID  string      `json:"thread_id"`
	Sender    Sender      `json:"sender"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content,omitempty"`
	Filename  string      `json:"filename,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
