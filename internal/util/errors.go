package util

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailRegistered   = errors.New("email already registered")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrNotebookNotFound  = errors.New("notebook not found")
	ErrSourceNotFound    = errors.New("source not found")
	ErrNoteNotFound      = errors.New("note not found")
	ErrNotOwner          = errors.New("resource belongs to another user")
	ErrMeetingNotReady   = errors.New("meeting provider not configured")
	ErrWorkflowNotReady  = errors.New("workflow engine not configured")
	ErrInvalidCredential = errors.New("invalid email or password")
)
