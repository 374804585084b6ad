package session

import "context"

// Store persists session records. The Manager keeps the authoritative table
// in memory and writes through the store in the background; LoadAll is used
// once at startup to restore sessions.
type Store interface {
	// Save creates or replaces a record.
	Save(ctx context.Context, rec Record) error

	// Delete removes a record. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// LoadAll returns every stored record.
	LoadAll(ctx context.Context) ([]Record, error)
}
