// Package blobstore stores media binaries in S3-compatible object storage.
// Uploads and downloads go directly between the client and the bucket via
// presigned URLs; the server itself only deletes objects during vault
// cleanup.
package blobstore

import "context"

// Store is the object-storage surface used by the services.
type Store interface {
	// PresignPut returns a temporary URL the client can PUT the payload to.
	PresignPut(ctx context.Context, key string) (string, error)

	// PresignGet returns a temporary URL for downloading the payload.
	PresignGet(ctx context.Context, key string) (string, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
