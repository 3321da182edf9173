// Package blob stores uploaded images under opaque keys.
package blob

import "context"

// Store is an object store addressed by key.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType, cacheControl string) error
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL of key.
	URL(key string) string
}
