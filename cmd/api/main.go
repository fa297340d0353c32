package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"gymops.dev/internal/audit"
	"gymops.dev/internal/auth"
	"gymops.dev/internal/httpapi"
	"gymops.dev/internal/obs"
	"gymops.dev/internal/sproc"
	"gymops.dev/internal/store/pg"
	"gymops.dev/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("GYMOPS_PG_DSN")
	if dsn == "" {
		log.Fatal("missing GYMOPS_PG_DSN")
	}
	secret := os.Getenv("GYMOPS_SESSION_SECRET")
	if secret == "" {
		log.Fatal("missing GYMOPS_SESSION_SECRET")
	}
	addr := os.Getenv("GYMOPS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	sessionOpts := []auth.ManagerOption{}
	if raw := os.Getenv("GYMOPS_SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("parse GYMOPS_SESSION_TTL: %v", err)
		}
		sessionOpts = append(sessionOpts, auth.WithTTL(ttl))
	}

	sessions := auth.NewManager(
		auth.NewVerifier(db),
		auth.NewResolver(db),
		[]byte(secret),
		sessionOpts...,
	)

	store := pg.NewStore(db, sessions)
	procs := sproc.NewClient(db)
	recorder := audit.NewRecorder(db)
	feed := stream.New()

	api := httpapi.New(
		httpapi.ReadyProbe{DB: db},
		version,
		sessions,
		store,
		procs,
		recorder,
		httpapi.WithStream(feed),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting gymops-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
