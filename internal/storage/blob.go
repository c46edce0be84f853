package storage

import (
	"errors"
	"io"
)

var ErrBadKey = errors.New("invalid media key")

// BlobStore holds question media (images for IMAGE_MAP questions, prompt
// attachments). Keys are slash-separated relative paths.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	URL(key string) string // path the API serves the blob under
}
