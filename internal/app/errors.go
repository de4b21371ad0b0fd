package service

import (
	"errors"
)

// Sentinel errors returned by the Service.
var (
	ErrNotStarted          = errors.New("service not started")
	ErrStopped             = errors.New("service stopped")
	ErrIngest              = errors.New("ingestion failed")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrUpdateFailed        = errors.New("update failed")
	ErrNoRowReturned       = errors.New("update returned no row")
	ErrUnexpectedUpdate    = errors.New("unexpected update error")
)

// User-facing messages for failed edits.
const (
	MsgUpdateFailedPrefix = "Failed to update species: "
	MsgNoRowReturned      = "Update did not return a row. This usually means the id didn't match any row, or you aren't authorized to edit this species."
	MsgUnexpectedUpdate   = "An unexpected error occurred while updating the species."
	MsgDuplicateSubmit    = "This form was already submitted."
)

// UpdateError carries the message shown to the user next to the kind of
// failure. errors.Is matches both Kind and the underlying cause.
type UpdateError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *UpdateError) Error() string { return e.Message }

func (e *UpdateError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
