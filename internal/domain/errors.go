package domain

import "errors"

// Sentinel errors returned by the service layer. Transport maps these to
// HTTP status codes; everything else is a server error.
var (
	// ErrThreadNotFound is returned when an explicitly requested
	// project-scoped thread does not exist.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrAccessDenied is returned when the requester is neither the
	// thread's personal owner nor a member of its project.
	ErrAccessDenied = errors.New("access denied")
)
