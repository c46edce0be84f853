package http

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

// MountMedia serves question media: GET {prefix}/*
func MountMedia(r chi.Router, bs storage.BlobStore) {
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		key := chi.URLParam(req, "*")
		rc, err := bs.Get(key)
		switch {
		case errors.Is(err, storage.ErrBadKey):
			http.Error(w, "bad key", http.StatusBadRequest)
			return
		case errors.Is(err, fs.ErrNotExist):
			http.NotFound(w, req)
			return
		case err != nil:
			http.Error(w, "media unavailable", http.StatusInternalServerError)
			return
		}
		defer rc.Close()
		if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", "private, max-age=3600")
		_, _ = io.Copy(w, rc)
	})
}
