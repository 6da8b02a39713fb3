package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-mocktest/internal/api/http"
	"github.com/mind-engage/mindengage-mocktest/internal/auth"
	authmw "github.com/mind-engage/mindengage-mocktest/internal/auth/middleware"
	"github.com/mind-engage/mindengage-mocktest/internal/config"
	"github.com/mind-engage/mindengage-mocktest/internal/db"
	"github.com/mind-engage/mindengage-mocktest/internal/exam"
	"github.com/mind-engage/mindengage-mocktest/internal/jobs"
	"github.com/mind-engage/mindengage-mocktest/internal/submission"
	syncx "github.com/mind-engage/mindengage-mocktest/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	// --- Storage ---
	var (
		dbh      *sql.DB
		store    exam.Store
		events   syncx.Appender
		otpStore auth.OTPStore
	)
	if cfg.DBDriver == "memory" {
		store = exam.NewInMemoryStore()
		events = &syncx.MemoryLog{}
		otpStore = auth.NewMemoryOTPStore()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		var err error
		dbh, err = db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		cancel()
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		defer dbh.Close()
		store = exam.NewSQLStore(dbh, cfg.DBDriver)
		events = syncx.NewEventRepo(dbh)
		otpStore = auth.NewSQLOTPStore(dbh)
	}

	svc := submission.New(store, submission.WithEvents(events))
	authSvc := authmw.NewAuthService(cfg.AuthSecret)
	otp := auth.NewOTPService(otpStore, cfg.OTPTTL, cfg.AdminPhones)

	refresher := jobs.NewRankRefresher(svc, cfg.RankRefreshInterval)
	if err := refresher.Start(); err != nil {
		log.Fatalf("rank refresher: %v", err)
	}
	defer refresher.Stop()

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if dbh != nil {
			if err := dbh.PingContext(r.Context()); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	// Stored roles override token roles when a database is present.
	var roleMW []func(http.Handler) http.Handler
	if dbh != nil {
		roleMW = append(roleMW, authmw.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))
	}
	r.Mount("/", api.NewRouter(svc, otp, authSvc, roleMW...))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
