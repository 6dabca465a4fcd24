package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Viranshu-30/HippoSync/internal/access"
	"github.com/Viranshu-30/HippoSync/internal/domain"
)

// CreateThreadRequest creates a new personal or project thread.
type CreateThreadRequest struct {
	RequesterID string
	Title       string
	ProjectID   string
}

// CreateThread explicitly creates a thread. Project-scoped creation
// requires current membership.
func (s *Service) CreateThread(ctx context.Context, req *CreateThreadRequest) (*domain.Thread, error) {
	groupScope := access.PersonalGroupScope(req.RequesterID)
	if req.ProjectID != "" {
		member, err := s.store.IsProjectMember(ctx, req.ProjectID, req.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if !member {
			return nil, domain.ErrAccessDenied
		}
		groupScope = access.ProjectGroupScope(req.ProjectID)
	}

	title := req.Title
	if title == "" {
		title = "New chat"
	}
	thread := &domain.Thread{
		ThreadID:    uuid.New().String(),
		Title:       title,
		ProjectID:   req.ProjectID,
		OwnerUserID: req.RequesterID,
		SessionID:   access.NewSessionID(),
		GroupScope:  groupScope,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return thread, nil
}

// ListThreads lists the requester's personal threads, or a project's
// threads when projectID is set (membership required).
func (s *Service) ListThreads(ctx context.Context, requesterID, projectID string) ([]domain.Thread, error) {
	if projectID != "" {
		member, err := s.store.IsProjectMember(ctx, projectID, requesterID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if !member {
			return nil, domain.ErrAccessDenied
		}
	}
	threads, err := s.store.ListThreads(ctx, requesterID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

// GetThreadMessages fetches a thread's messages in replay order.
func (s *Service) GetThreadMessages(ctx context.Context, threadID, requesterID string, limit int) ([]domain.Message, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	if thread == nil {
		return nil, domain.ErrThreadNotFound
	}
	if err := s.authorizeThread(ctx, thread, requesterID); err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessages(ctx, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// RenameThread updates a thread's title. Owner only.
func (s *Service) RenameThread(ctx context.Context, threadID, requesterID, title string) error {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to get thread: %w", err)
	}
	if thread == nil {
		return domain.ErrThreadNotFound
	}
	if thread.OwnerUserID != requesterID {
		return domain.ErrAccessDenied
	}
	if err := s.store.RenameThread(ctx, threadID, title); err != nil {
		return fmt.Errorf("failed to rename thread: %w", err)
	}
	return nil
}

// DeleteThread removes a thread and its messages. Owner only. Memory
// already filed under the thread's scope keys is left in place; the
// memory service owns its own retention.
func (s *Service) DeleteThread(ctx context.Context, threadID, requesterID string) error {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to get thread: %w", err)
	}
	if thread == nil {
		return domain.ErrThreadNotFound
	}
	if thread.OwnerUserID != requesterID {
		return domain.ErrAccessDenied
	}
	if err := s.store.DeleteThread(ctx, threadID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// ListModels proxies the completion provider's model list.
func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	models, err := s.llmClient.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// authorizeThread mirrors the chat access rules for the read paths.
func (s *Service) authorizeThread(ctx context.Context, thread *domain.Thread, requesterID string) error {
	if thread.ProjectID != "" {
		member, err := s.store.IsProjectMember(ctx, thread.ProjectID, requesterID)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if !member {
			return domain.ErrAccessDenied
		}
		return nil
	}
	if thread.OwnerUserID != requesterID {
		return domain.ErrAccessDenied
	}
	return nil
}
