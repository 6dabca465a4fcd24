package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Viranshu-30/HippoSync/internal/domain"
	"github.com/Viranshu-30/HippoSync/internal/store"
)

// Grant is a successful access resolution: the thread plus the memory
// scope keys every memory call for this turn must use.
type Grant struct {
	Thread     *domain.Thread
	GroupScope string
	SessionID  string
}

// Resolver checks thread access and auto-provisions personal threads.
type Resolver struct {
	store  store.Store
	policy *PolicyEngine
}

// NewResolver creates a resolver backed by the store and policy engine.
func NewResolver(store store.Store, policy *PolicyEngine) *Resolver {
	return &Resolver{store: store, policy: policy}
}

// NewSessionID generates a per-thread memory session key.
func NewSessionID() string {
	return "t-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// PersonalGroupScope derives the memory partition key for a user.
func PersonalGroupScope(userID string) string {
	return "user-" + userID
}

// ProjectGroupScope derives the memory partition key for a project.
func ProjectGroupScope(projectID string) string {
	return "project-" + projectID
}

// Resolve returns a Grant for the requester on the thread, or a denial.
//
// A missing thread id is auto-provisioned as a personal thread owned by
// the requester, unless projectID names an explicitly project-scoped
// request, in which case a missing thread is a hard not-found. This is
// the only place the pipeline mutates thread identity.
func (r *Resolver) Resolve(ctx context.Context, threadID, requesterID, projectID string) (*Grant, error) {
	var thread *domain.Thread
	var err error

	if threadID != "" {
		thread, err = r.store.GetThread(ctx, threadID)
		if err != nil {
			return nil, fmt.Errorf("failed to get thread: %w", err)
		}
	}

	if thread == nil {
		if projectID != "" {
			return nil, domain.ErrThreadNotFound
		}
		thread, err = r.provisionPersonal(ctx, threadID, requesterID)
		if err != nil {
			return nil, err
		}
	}

	if err := r.authorize(ctx, thread, requesterID); err != nil {
		return nil, err
	}

	return &Grant{
		Thread:     thread,
		GroupScope: thread.GroupScope,
		SessionID:  thread.SessionID,
	}, nil
}

// provisionPersonal creates a personal thread via the store's upsert so
// concurrent first requests with the same id converge on one row.
func (r *Resolver) provisionPersonal(ctx context.Context, threadID, requesterID string) (*domain.Thread, error) {
	if threadID == "" {
		threadID = uuid.New().String()
	}
	thread := &domain.Thread{
		ThreadID:    threadID,
		Title:       "Personal Chat",
		OwnerUserID: requesterID,
		SessionID:   NewSessionID(),
		GroupScope:  PersonalGroupScope(requesterID),
		CreatedAt:   time.Now(),
	}
	created, err := r.store.GetOrCreateThread(ctx, thread)
	if err != nil {
		return nil, fmt.Errorf("failed to provision thread: %w", err)
	}
	return created, nil
}

func (r *Resolver) authorize(ctx context.Context, thread *domain.Thread, requesterID string) error {
	isMember := false
	if thread.ProjectID != "" {
		var err error
		isMember, err = r.store.IsProjectMember(ctx, thread.ProjectID, requesterID)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
	}

	decision, err := r.policy.Evaluate(ctx, policyInput{
		RequesterID: requesterID,
		OwnerID:     thread.OwnerUserID,
		ProjectID:   thread.ProjectID,
		IsMember:    isMember,
	})
	if err != nil {
		return err
	}
	if decision != "allow" {
		return domain.ErrAccessDenied
	}
	return nil
}
