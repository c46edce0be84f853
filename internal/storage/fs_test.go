package storage

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "/media/")
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Put("banks/cardio/heart.png", strings.NewReader("PNG"))
	if err != nil {
		t.Fatal(err)
	}
	if key != "banks/cardio/heart.png" || s.URL(key) != "/media/banks/cardio/heart.png" {
		t.Fatalf("key=%q url=%q", key, s.URL(key))
	}
	rc, err := s.Get("/banks/cardio/heart.png")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "PNG" {
		t.Fatalf("read %q", b)
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"", "../secret", "a/../../b", "/"} {
		if _, err := s.Put(k, strings.NewReader("x")); !errors.Is(err, ErrBadKey) {
			t.Errorf("Put(%q) err = %v", k, err)
		}
		if _, err := s.Get(k); !errors.Is(err, ErrBadKey) {
			t.Errorf("Get(%q) err = %v", k, err)
		}
	}
}
