package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

// seedFile is the on-disk format:
//
//	{
//	  "banks": [ { "id": "cardio", "title": "...", "status": "OPEN", "questions": [...] } ],
//	  "users": [ { "id": "u1", "username": "alice", "password": "...", "role": "student" } ],
//	  "media": { "cardio/heart.png": "./assets/heart.png" }
//	}
//
// Media paths are relative to the seed file.
type seedFile struct {
	Banks []quiz.Bank       `json:"banks"`
	Users []users.User      `json:"users"`
	Media map[string]string `json:"media"`
}

func main() {
	path := flag.String("file", "seed.json", "seed file")
	flag.Parse()

	cfg := config.FromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("read seed: %v", err)
	}
	var sf seedFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		log.Fatalf("parse seed: %v", err)
	}

	dbh, err := db.Open(ctx, db.Normalize(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	if len(sf.Media) > 0 {
		media, err := storage.NewFSStore(cfg.MediaDir, "/media")
		if err != nil {
			log.Fatalf("media store: %v", err)
		}
		if err := copyMedia(media, filepath.Dir(*path), sf.Media); err != nil {
			log.Fatalf("media: %v", err)
		}
	}

	var store quiz.BankWriter = quiz.NewSQLStore(dbh, string(db.Normalize(cfg.DBDriver)))
	for _, b := range sf.Banks {
		if err := store.PutBank(ctx, b); err != nil {
			log.Fatalf("bank %s: %v", b.ID, err)
		}
	}

	ins, upd, err := users.NewDirectory(dbh).Upsert(ctx, sf.Users)
	if err != nil {
		log.Fatalf("users: %v", err)
	}
	log.Printf("seeded %d banks, %d media files, users inserted=%d updated=%d", len(sf.Banks), len(sf.Media), ins, upd)
}

func copyMedia(bs storage.BlobStore, root string, media map[string]string) error {
	for key, src := range media {
		if !filepath.IsAbs(src) {
			src = filepath.Join(root, src)
		}
		f, err := os.Open(src)
		if err != nil {
			return err
		}
		stored, err := bs.Put(key, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		log.Printf("media %s served at %s", src, bs.URL(stored))
	}
	return nil
}
