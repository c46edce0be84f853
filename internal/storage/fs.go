package storage

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSStore keeps blobs on local disk under base.
type FSStore struct {
	base   string
	prefix string
}

// NewFSStore creates base if needed. URLs are built as prefix + "/" + key.
func NewFSStore(base, prefix string) (*FSStore, error) {
	if base == "" {
		base = "./data/media"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base, prefix: strings.TrimSuffix(prefix, "/")}, nil
}

// cleanKey rejects keys that would escape base.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))[1:]
	if k == "" || k == "." || strings.Contains(key, "..") {
		return "", ErrBadKey
	}
	return k, nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.base, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", err
	}
	return k, f.Close()
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.base, filepath.FromSlash(k)))
}

func (s *FSStore) URL(key string) string {
	return s.prefix + "/" + strings.TrimPrefix(key, "/")
}
