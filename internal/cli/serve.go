package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cybermaze-gateway/internal/app"
	"cybermaze-gateway/internal/config"
	"cybermaze-gateway/internal/domain"
	"cybermaze-gateway/internal/infra/archive"
	"cybermaze-gateway/internal/infra/ctfd"
	pgexport "cybermaze-gateway/internal/infra/postgres"
	gatewayredis "cybermaze-gateway/internal/infra/redis"
	transport "cybermaze-gateway/internal/transport/http"
	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCmd builds the CLI subcommand to start the gateway.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	mode := app.Mode(cfg.Mode)
	window := domain.EventWindow{
		Start:        config.Timestamp(cfg.Event.Start),
		End:          config.Timestamp(cfg.Event.End),
		Paused:       cfg.Event.Paused,
		ScoresHidden: cfg.Event.ScoresHidden,
	}

	var live app.Client
	var platform app.PlatformOps = app.UnavailablePlatform{}
	if cfg.Platform.URL != "" {
		liveClient, err := ctfd.NewClient(cfg.Platform.URL, log)
		if err != nil {
			return err
		}
		live = liveClient
		platform = liveClient
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var scheduler gocron.Scheduler
	var archiveService app.Client
	switch mode {
	case app.ModeArchive:
		snapshot, err := loadSnapshot(ctx, cfg)
		if err != nil {
			return err
		}
		delay := config.TTLDuration(cfg.Archive.Delay, 50*time.Millisecond)
		archiveService = archive.NewService(snapshot, delay)
		log.Info("archive snapshot loaded", zap.String("event", snapshot.EventInfo().Name))
	case app.ModeLive:
		if live == nil {
			return fmt.Errorf("live mode requires a platform url")
		}
		if redisClient != nil {
			cache := gatewayredis.NewResponseCache(live, redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Second))
			live = cache
			scheduler, err = startCacheWarming(cfg, cache, log)
			if err != nil {
				return err
			}
		}
	}

	selected := app.Select(mode, archiveService, live)
	handler := transport.NewHandler(selected, platform, window, log)
	pollInterval := config.TTLDuration(cfg.Notifications.PollInterval, 30*time.Second)
	stream := transport.NewNotificationStream(selected, pollInterval, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("GET /ws/notifications", stream.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting gateway", zap.String("port", finalPort), zap.String("mode", cfg.Mode))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	if scheduler != nil {
		_ = scheduler.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadSnapshot builds the archive snapshot from whichever backing
// store the config points at: exported JSON documents on disk, or the
// export_documents table in Postgres.
func loadSnapshot(ctx context.Context, cfg config.Config) (*archive.Snapshot, error) {
	if cfg.Archive.PostgresURL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Archive.PostgresURL)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return archive.BuildSnapshot(ctx, pgexport.NewExportLoader(pool))
	}
	dir := cfg.Archive.Dir
	if dir == "" {
		dir = "data/export"
	}
	return archive.BuildSnapshot(ctx, archive.NewFSLoader(dir))
}

// startCacheWarming keeps the cached list endpoints fresh so most UI
// reads in live mode never wait on the platform.
func startCacheWarming(cfg config.Config, cache *gatewayredis.ResponseCache, log *zap.Logger) (gocron.Scheduler, error) {
	if cfg.Redis.WarmInterval == "" {
		return nil, nil
	}
	interval := config.TTLDuration(cfg.Redis.WarmInterval, time.Minute)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if err := cache.Warm(ctx); err != nil {
				log.Warn("cache warm failed", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	return scheduler, nil
}
