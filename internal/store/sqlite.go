package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Viranshu-30/HippoSync/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			project_id TEXT,
			owner_user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			group_scope TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_message_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_owner ON threads(owner_user_id, project_id)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			type TEXT NOT NULL,
			content TEXT,
			filename TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS project_members (
			project_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (project_id, user_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateThread inserts a new thread.
func (s *SQLiteStore) CreateThread(ctx context.Context, thread *domain.Thread) error {
	var projectID sql.NullString
	if thread.ProjectID != "" {
		projectID = sql.NullString{String: thread.ProjectID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (thread_id, title, project_id, owner_user_id, session_id, group_scope, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		thread.ThreadID, thread.Title, projectID, thread.OwnerUserID, thread.SessionID, thread.GroupScope, thread.CreatedAt)
	return err
}

// GetThread retrieves a thread by ID.
func (s *SQLiteStore) GetThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	var thread domain.Thread
	var projectID sql.NullString
	var lastMessageAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT thread_id, title, project_id, owner_user_id, session_id, group_scope, created_at, last_message_at FROM threads WHERE thread_id = ?`,
		threadID).Scan(&thread.ThreadID, &thread.Title, &projectID, &thread.OwnerUserID, &thread.SessionID, &thread.GroupScope, &thread.CreatedAt, &lastMessageAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if projectID.Valid {
		thread.ProjectID = projectID.String
	}
	if lastMessageAt.Valid {
		thread.LastMessageAt = &lastMessageAt.Time
	}
	return &thread, nil
}

// GetOrCreateThread inserts the thread unless its id already exists, then
// reads back whichever row won. ON CONFLICT DO NOTHING makes concurrent
// first requests for the same id converge on a single row.
func (s *SQLiteStore) GetOrCreateThread(ctx context.Context, thread *domain.Thread) (*domain.Thread, error) {
	var projectID sql.NullString
	if thread.ProjectID != "" {
		projectID = sql.NullString{String: thread.ProjectID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (thread_id, title, project_id, owner_user_id, session_id, group_scope, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(thread_id) DO NOTHING`,
		thread.ThreadID, thread.Title, projectID, thread.OwnerUserID, thread.SessionID, thread.GroupScope, thread.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s.GetThread(ctx, thread.ThreadID)
}

// ListThreads lists personal threads for a user, or a project's threads.
func (s *SQLiteStore) ListThreads(ctx context.Context, ownerUserID, projectID string) ([]domain.Thread, error) {
	query := `SELECT thread_id, title, project_id, owner_user_id, session_id, group_scope, created_at, last_message_at FROM threads`
	var args []interface{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	} else {
		query += ` WHERE project_id IS NULL AND owner_user_id = ?`
		args = append(args, ownerUserID)
	}
	query += ` ORDER BY COALESCE(last_message_at, created_at) DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []domain.Thread
	for rows.Next() {
		var thread domain.Thread
		var pid sql.NullString
		var lastMessageAt sql.NullTime
		if err := rows.Scan(&thread.ThreadID, &thread.Title, &pid, &thread.OwnerUserID, &thread.SessionID, &thread.GroupScope, &thread.CreatedAt, &lastMessageAt); err != nil {
			return nil, err
		}
		if pid.Valid {
			thread.ProjectID = pid.String
		}
		if lastMessageAt.Valid {
			thread.LastMessageAt = &lastMessageAt.Time
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

// RenameThread updates a thread's title.
func (s *SQLiteStore) RenameThread(ctx context.Context, threadID, title string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE threads SET title = ? WHERE thread_id = ?`,
		title, threadID)
	return err
}

// TouchThread updates a thread's last activity timestamp.
func (s *SQLiteStore) TouchThread(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE threads SET last_message_at = ? WHERE thread_id = ?`,
		time.Now(), threadID)
	return err
}

// DeleteThread removes a thread; its messages cascade.
func (s *SQLiteStore) DeleteThread(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM threads WHERE thread_id = ?`,
		threadID)
	return err
}

// CreateMessage appends a message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	var content, filename sql.NullString
	if message.Content != "" {
		content = sql.NullString{String: message.Content, Valid: true}
	}
	if message.Filename != "" {
		filename = sql.NullString{String: message.Filename, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, thread_id, sender, type, content, filename, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		message.MessageID, message.ThreadID, message.Sender, message.Type, content, filename, message.CreatedAt)
	return err
}

// GetMessages retrieves messages for a thread in replay order.
func (s *SQLiteStore) GetMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, thread_id, sender, type, content, filename, created_at FROM messages WHERE thread_id = ? ORDER BY created_at ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var content, filename sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.ThreadID, &msg.Sender, &msg.Type, &content, &filename, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if content.Valid {
			msg.Content = content.String
		}
		if filename.Valid {
			msg.Filename = filename.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// IsProjectMember reports current membership.
func (s *SQLiteStore) IsProjectMember(ctx context.Context, projectID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddProjectMember records membership.
func (s *SQLiteStore) AddProjectMember(ctx context.Context, projectID, userID, role string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO project_members (project_id, user_id, role, created_at) VALUES (?, ?, ?, ?)`,
		projectID, userID, role, time.Now())
	return err
}

var _ Store = (*SQLiteStore)(nil)
