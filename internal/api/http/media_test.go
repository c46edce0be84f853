package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

func TestMountMedia(t *testing.T) {
	bs, err := storage.NewFSStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bs.Put("cardio/heart.png", strings.NewReader("PNGDATA")); err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	r.Route("/media", func(mr chi.Router) { MountMedia(mr, bs) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/cardio/heart.png", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "PNGDATA" || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status=%d type=%q body=%q", rec.Code, rec.Header().Get("Content-Type"), rec.Body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/cardio/missing.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing: status %d", rec.Code)
	}
}
