package main

import (
	"context"
	"embed"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/arcfield-data/galaxy.report/internal/api"
	"github.com/arcfield-data/galaxy.report/internal/config"
	"github.com/arcfield-data/galaxy.report/internal/fsutil"
	"github.com/arcfield-data/galaxy.report/internal/store"
	"github.com/arcfield-data/galaxy.report/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS
	devMode     = flag.Bool("dev", false, "Run in dev mode")
	listen      = flag.String("listen", ":8080", "Listen address")
	dbFile      = flag.String("db", "galaxy_results.db", "Path to results database")
	configPath  = flag.String("config", "", "Path to settings JSON (optional)")
	migrations  = flag.String("migrations", "migrations", "Path to migrations directory")
	plotDir     = flag.String("plots", "plots", "Directory for fit plot output")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	settings := config.EmptySettings()
	if *configPath != "" {
		var err error
		settings, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	} else if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		settings, err = config.Load(config.DefaultConfigPath)
		if err != nil {
			log.Fatalf("failed to load default config: %v", err)
		}
	}

	db, err := store.NewStore(*dbFile)
	if err != nil {
		log.Fatalf("failed to open results database: %v", err)
	}
	defer db.Close()

	if err := db.MigrateUp(*migrations); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	log.Printf("galaxy.report %s (%s) listening on %s", version.Version, version.GitSHA, *listen)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		db.AttachAdminRoutes(mux)

		// mount the API handlers; the API mux registers full /api/ paths
		apiMux := api.NewServer(db, fsutil.OSFileSystem{}, settings, *plotDir).ServeMux()
		mux.Handle("/api/", apiMux)

		// read static files from the embedded filesystem in production or from
		// the local ./static in dev for easier iteration without restarting the
		// server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			staticHandler = http.FileServer(http.FS(staticFiles))
		}
		mux.Handle("/", staticHandler)

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: h,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
