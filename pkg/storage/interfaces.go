package storage

import (
	"context"
	"io"
)

// ObjectStore holds large objects such as session videos under a key.
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ImageStore holds resized images such as course thumbnails.
type ImageStore interface {
	// Upload returns the image ID and its delivery URLs.
	Upload(ctx context.Context, reader io.Reader, filename string, metadata map[string]string) (string, []string, error)
	Delete(ctx context.Context, imageID string) error
	GetPublicURL(imageID string) string
	GetThumbnailURL(imageID string) string
}
