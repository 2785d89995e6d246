package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/masterdata/internal/auth"
	"github.com/rpattn/masterdata/internal/config"
	"github.com/rpattn/masterdata/internal/ingestion"
	"github.com/rpattn/masterdata/internal/middleware"
	"github.com/rpattn/masterdata/internal/upsert"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Kind, err)
	}
	defer store.close()

	sink := upsert.NewSink(store.schema, store.exec, store.dialect, cfg.Ingestion.Sink())
	service := ingestion.NewService(store.mappings, store.logs, sink, ingestion.Options{
		Sheet:    cfg.Ingestion.Sheet,
		StartRow: cfg.Ingestion.StartRow,
		Range:    cfg.Ingestion.Range,
	})

	mux := http.NewServeMux()
	mux.Handle("POST /upload", ingestion.NewHTTPHandler(service, cfg.Server.UploadDir, cfg.Server.MaxUploadMB))
	ingestion.NewAdminHandler(store.mappings, store.schema, store.logs, cfg.Ingestion.SystemColumns).Register(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(middleware.LoggingMiddleware(auth.ActorMiddleware(cfg.Server.ActorHeader)(mux))),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting masterdata server on %s (storage=%s)", cfg.Server.Addr, cfg.Storage.Kind)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		store.close()
		log.Fatalf("Server stopped with error: %v", err)
	}
	log.Println("Server exited")
}
