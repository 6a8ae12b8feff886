package storage

import "context"

// ObjectStore abstracts the external store that raw CSV uploads live in.
// The dispatcher never talks to the store directly; it fetches sheets by
// the public URL returned from Upload.
type ObjectStore interface {
	// Upload stores raw bytes under publicID and returns the public URL.
	Upload(ctx context.Context, publicID string, data []byte) (string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, publicID string) error
}
