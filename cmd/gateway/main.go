package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/audit"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/notify"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

func main() {
	cfg := config.FromEnv()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Normalize(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()
	store := quiz.NewSQLStore(dbh, string(db.Normalize(cfg.DBDriver)))
	dir := users.NewDirectory(dbh)

	// --- Notifications ---
	var notifier quiz.Notifier = notify.LogNotifier{Log: logger}
	if cfg.RedisURL != "" {
		rdb, err := notify.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		notifier = notify.NewRedisPublisher(rdb, cfg.NotifyChannel)
	}

	events := audit.NewEventLog(dbh, cfg.SiteID)
	svc := quiz.NewService(store, store,
		quiz.WithNotifier(notifier),
		quiz.WithAuditor(events),
		quiz.WithUserDirectory(dir),
		quiz.WithLogger(logger),
	)

	media, err := storage.NewFSStore(cfg.MediaDir, "/media")
	if err != nil {
		log.Fatalf("media store: %v", err)
	}

	authSvc := auth.NewAuthService(cfg.AuthSecret)
	r := newRouter(cfg, dbh, svc, events, authSvc, dir, media)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutCtx)
		svc.Drain()
		return err
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("server: %v", err)
	}
	log.Printf("shutdown complete")
}

func newRouter(cfg config.Config, dbh *sql.DB, svc api.AttemptService, events api.EventReader, authSvc *auth.AuthService, dir *users.Directory, media storage.BlobStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Local login (on by default offline; can be enabled online via env)
	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, dir))
	}

	// Protected API (JWT → subject + role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		api.MountAttempts(pr, svc)
		api.MountAudit(pr, events)
		pr.Route("/media", func(mr chi.Router) { api.MountMedia(mr, media) })
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := dbh.PingContext(ctx); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Mode == config.ModeOnline {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
