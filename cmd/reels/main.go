package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/LeventeLantos/reels-scheduler/internal/api"
	"github.com/LeventeLantos/reels-scheduler/internal/cache"
	"github.com/LeventeLantos/reels-scheduler/internal/client"
	"github.com/LeventeLantos/reels-scheduler/internal/config"
	"github.com/LeventeLantos/reels-scheduler/internal/repo"
	"github.com/LeventeLantos/reels-scheduler/internal/scheduler"
	"github.com/LeventeLantos/reels-scheduler/internal/service"
)

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadAll()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return err
	}
	if err := repo.Migrate(pingCtx, db); err != nil {
		return err
	}

	reelRepo := repo.NewPostgresReelRepo(db)

	igClient := client.NewInstagramClient(cfg.Instagram.BaseURL, client.StaticCredentials{
		AccessToken: cfg.Instagram.AccessToken,
		UserID:      cfg.Instagram.UserID,
	})

	publisher, err := service.NewPublisher(igClient, cfg.Publish.PollInterval, cfg.Publish.PollMaxAttempts)
	if err != nil {
		return err
	}

	dispatcher, err := service.NewDispatcher(reelRepo, publisher)
	if err != nil {
		return err
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		published := cache.NewRedisCache(rdb, cfg.Redis.TTL)
		dispatcher.WithPublishedHook(published.StorePublished)
	}

	dispatchLoop, err := scheduler.NewLoop("dispatch", cfg.Dispatch.Interval, dispatcher.Tick)
	if err != nil {
		return err
	}

	reaper, err := service.NewReaper(reelRepo, cfg.Reaper.MaxAge)
	if err != nil {
		return err
	}
	reaperLoop, err := scheduler.NewLoop("reaper", cfg.Reaper.Interval, reaper.Run)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Assign.Timezone)
	if err != nil {
		return err
	}
	assigner, err := service.NewAssigner(reelRepo,
		cfg.Assign.BatchSize, cfg.Assign.WindowStartHour, cfg.Assign.WindowEndHour, loc)
	if err != nil {
		return err
	}
	assignJob, err := scheduler.NewDaily("assign", cfg.Assign.CronSpec, loc, assigner.Run)
	if err != nil {
		return err
	}

	handler := api.NewHandler(dispatchLoop, reelRepo)
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           loggingMiddleware(api.Router(handler)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	dispatchLoop.Start()
	reaperLoop.Start()
	assignJob.Start()

	slog.Info("reels scheduler starting",
		"addr", cfg.Server.Address,
		"dispatch_interval", cfg.Dispatch.Interval.String(),
		"assign_cron", cfg.Assign.CronSpec,
		"redis", cfg.Redis.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)

		assignJob.Stop()
		reaperLoop.Stop()
		dispatchLoop.Stop()
		return nil
	})

	return g.Wait()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
