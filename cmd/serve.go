package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/facekit/livematch/internal/catalogue"
	"github.com/facekit/livematch/internal/catalogue/postgres"
	"github.com/facekit/livematch/internal/config"
	"github.com/facekit/livematch/internal/match"
	"github.com/facekit/livematch/internal/recognizer"
	"github.com/facekit/livematch/internal/stream"
	"github.com/facekit/livematch/internal/web"
	"github.com/facekit/livematch/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the identification server",
	Long: `Start the livematch server.
Clients connect, open a server-sent event channel, and stream video frames.
Each processed frame is matched against the identity catalogue and its
results are pushed back on the event channel.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Bool("linear-match", false, "Skip the HNSW index and match by linear scan")
}

// openCatalogue picks the catalogue backend: PostgreSQL when DATABASE_URL is
// set, an in-memory store otherwise. The returned closer is nil for memory.
func openCatalogue(ctx context.Context, cfg *config.Config) (catalogue.Store, func() error, error) {
	if cfg.Database.URL == "" {
		fmt.Printf("Using in-memory identity catalogue (set DATABASE_URL for persistence)\n")
		return catalogue.NewMemoryStore(cfg.Match.Dim), nil, nil
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	fmt.Printf("Identity catalogue backed by PostgreSQL\n")
	return postgres.NewIdentityRepository(pool, cfg.Match.Dim), pool.Close, nil
}

// buildMatcher sets up the matcher, optionally over an HNSW index, and
// returns a reindex hook to run after catalogue mutations.
func buildMatcher(ctx context.Context, store catalogue.Store, linear bool) (*match.Matcher, func(context.Context)) {
	if linear {
		fmt.Printf("Matching by linear scan\n")
		return match.NewMatcher(nil), nil
	}

	ranker := match.NewHNSWRanker()
	reindex := func(ctx context.Context) {
		records, err := store.ListActive(ctx)
		if err != nil {
			fmt.Printf("Warning: refreshing HNSW index: %v\n", err)
			return
		}
		ranker.Rebuild(records)
	}
	reindex(ctx)
	fmt.Printf("HNSW index built with %d identities\n", ranker.Len())
	return match.NewMatcher(ranker), reindex
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	encoder := recognizer.NewClient(cfg.Encoder.URL)
	if err := encoder.Healthy(ctx); err != nil {
		fmt.Printf("Warning: encoder sidecar not reachable at %s: %v\n", cfg.Encoder.URL, err)
	}

	store, closeStore, err := openCatalogue(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	matcher, reindex := buildMatcher(ctx, store, mustGetBool(cmd, "linear-match"))

	registry := stream.NewRegistry()
	lifecycle := stream.NewLifecycle(registry, cfg.Stream.SweepInterval)
	hub := handlers.NewHub()
	dispatcher := stream.NewDispatcher(registry, store, matcher, encoder, hub, stream.Options{
		Threshold:        cfg.Match.Threshold,
		ThrottleInterval: cfg.Stream.ThrottleInterval,
		EncoderTimeout:   cfg.Encoder.Timeout,
		MaxFrameBytes:    cfg.Stream.MaxFrameBytes,
	})

	go lifecycle.Run(ctx)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(host, port, web.Deps{
		Stream:     handlers.NewStreamHandler(lifecycle, dispatcher, hub),
		Identities: handlers.NewIdentitiesHandler(store, encoder, cfg.Encoder.Timeout, reindex),
		Health:     handlers.NewHealthHandler(encoder),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting livematch server on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
