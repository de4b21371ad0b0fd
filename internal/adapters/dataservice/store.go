// Package dataservice talks to the store that owns the species table.
//
// Two backends exist: RESTClient for the hosted PostgREST-style service and
// SQLiteStore for local development. Both enforce that only the author of a
// row may update it; callers must not rely on their own checks for that.
package dataservice

import (
	"context"
	"errors"

	"github.com/okian/speciesdex/internal/domain/species"
)

// Caller identifies who issues a request.
type Caller struct {
	// AccessToken is the session bearer token; empty means anonymous.
	AccessToken string
	// UserID is the session user, used by backends without token auth.
	UserID string
}

// Store reads and updates species.
type Store interface {
	List(ctx context.Context, caller Caller) ([]species.Species, error)
	// Get returns ErrNotFound when the id does not exist.
	Get(ctx context.Context, caller Caller, id species.ID) (*species.Species, error)
	// Update applies patch to the row with id and returns the updated row.
	// It returns nil, nil when no row came back: the id did not match or the
	// caller is not allowed to edit the row.
	Update(ctx context.Context, caller Caller, id species.ID, patch species.Patch) (*species.Species, error)
}

// UserMessage extracts the service-provided message from err when there is
// one, and falls back to err.Error().
func UserMessage(err error) string {
	var he *HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return he.Message
	}
	return err.Error()
}
