package storage

import (
	"context"
	"time"
)

// Object is a listed storage object
type Object struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
}

// Store defines the object storage operations the handlers need
type Store interface {
	// List returns every object in bucket whose key starts with prefix
	List(ctx context.Context, bucket, prefix string) ([]Object, error)

	// Put writes body under key, replacing any existing object
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error

	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, bucket, key string) error
}
