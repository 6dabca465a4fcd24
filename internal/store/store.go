// Package store persists conversation threads and messages.
package store

import (
	"context"

	"github.com/Viranshu-30/HippoSync/internal/domain"
)

// Store is the conversation store interface.
type Store interface {
	// CreateThread inserts a new thread row.
	CreateThread(ctx context.Context, thread *domain.Thread) error

	// GetThread retrieves a thread by id. Returns (nil, nil) when the
	// thread does not exist.
	GetThread(ctx context.Context, threadID string) (*domain.Thread, error)

	// GetOrCreateThread inserts the thread if its id is absent and
	// returns the row that ended up in the store. Safe under concurrent
	// calls with the same id: exactly one row is ever created.
	GetOrCreateThread(ctx context.Context, thread *domain.Thread) (*domain.Thread, error)

	// ListThreads lists personal threads for a user (projectID empty) or
	// the threads of one project, most recently active first.
	ListThreads(ctx context.Context, ownerUserID, projectID string) ([]domain.Thread, error)

	// RenameThread updates a thread's title.
	RenameThread(ctx context.Context, threadID, title string) error

	// TouchThread updates last_message_at. Last write wins.
	TouchThread(ctx context.Context, threadID string) error

	// DeleteThread removes a thread and cascades to its messages.
	DeleteThread(ctx context.Context, threadID string) error

	// CreateMessage appends a message. Messages are never updated.
	CreateMessage(ctx context.Context, message *domain.Message) error

	// GetMessages lists a thread's messages, created_at ascending.
	GetMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error)

	// IsProjectMember reports whether the user is a current member of
	// the project.
	IsProjectMember(ctx context.Context, projectID, userID string) (bool, error)

	// AddProjectMember records project membership. Membership is owned
	// by the external project service; this exists for seeding.
	AddProjectMember(ctx context.Context, projectID, userID, role string) error

	Close() error
}
