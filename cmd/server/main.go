package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"forum_backend/internal/app/di"
	"forum_backend/internal/app/router"
	forumhandler "forum_backend/internal/feature/forum/transport/handler"
	"forum_backend/internal/feature/forum/usecase"
	"forum_backend/internal/platform/config"
	jwtmw "forum_backend/internal/platform/jwt"
)

func main() {
	// .env はローカル開発用。存在しなくてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Println("[WARN] failed to load .env:", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	storage, err := di.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("storage unavailable: %v", err)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Println("[ERROR] Failed to close storage:", err)
		}
	}()

	// Store
	store := di.NewForumStore(cfg, storage.Backend)
	if cfg.LazyInit {
		// 起動時に一度初期化しておく。失敗しても最初のリクエストで再試行される
		if err := store.Initialize(ctx, usecase.InitOptions{IncludeSampleGroups: cfg.SeedSampleGroups}); err != nil {
			slog.Error("initial seeding failed", "error", err)
		}
	}

	// JWT_SECRETチェック（開発中の注意喚起）
	if cfg.JWTSecret == "" {
		log.Println("[WARN] JWT_SECRET is not set. Authenticated routes will answer 500.")
	}

	// Handler
	r := router.NewRouter(router.Handlers{
		Auth:   forumhandler.NewAuthHandler(store, jwtmw.NewGenerator(cfg.JWTSecret, cfg.JWTExpiration)),
		System: forumhandler.NewSystemHandler(store),
		Meets:  forumhandler.NewMeetHandler(store),
		Reset:  forumhandler.NewPasswordResetHandler(store, nil),
		Probe:  func() string { return string(storage.Backend.Kind()) },
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "storage", storage.Backend.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("[ERROR] server shutdown:", err)
	}
}
