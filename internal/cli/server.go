package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"talent-assessment-service/internal/app"
	"talent-assessment-service/internal/config"
	"talent-assessment-service/internal/infra/file"
	"talent-assessment-service/internal/infra/gemini"
	"talent-assessment-service/internal/infra/memory"
	mongostore "talent-assessment-service/internal/infra/mongo"
	pgstore "talent-assessment-service/internal/infra/postgres"
	redisstore "talent-assessment-service/internal/infra/redis"
	"talent-assessment-service/internal/logger"
	transport "talent-assessment-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
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
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	ai := gemini.NewClient(gemini.Config{
		APIKey:          cfg.AI.APIKey,
		BaseURL:         cfg.AI.BaseURL,
		GenerationModel: cfg.AI.GenerationModel,
		EvaluationModel: cfg.AI.EvaluationModel,
		Timeout:         config.TTLDuration(cfg.AI.Timeout, gemini.DefaultTimeout),
		MaxRetries:      *cfg.AI.MaxRetries,
		QuestionCount:   cfg.AI.QuestionCount,
	})
	if !ai.IsEnabled() {
		log.Warn().Msg("no AI api key configured; session creation will fail and evaluations fall back")
	}

	opts := []app.Option{
		app.WithBaseURL(cfg.Server.BaseURL),
		app.WithLogger(log),
	}
	if cfg.Store.Key != "" {
		opts = append(opts, app.WithStorageKey(cfg.Store.Key))
	}
	manager := app.NewSessionManager(store, ai, ai, opts...)
	manager.Load(ctx)

	router := transport.NewRouter(manager, transport.ExamOptions{
		Config: app.ExamConfig{
			Duration:           config.TTLDuration(cfg.Exam.Duration, app.DefaultExamDuration),
			AutoSubmitOnExpiry: cfg.Exam.AutoSubmitOnExpiry,
		},
		Tick: config.TTLDuration(cfg.Exam.Tick, time.Second),
	}, log)

	// Generation and evaluation calls can take most of a minute.
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		log.Info().Str("port", finalPort).Str("store", cfg.Store.Backend).Msg("starting assessment service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore builds the configured KV backend and a func releasing its connections.
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (app.KVStore, func(), error) {
	noop := func() {}
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Warn().Msg("memory store selected; sessions are lost on restart")
		return memory.NewStore(), noop, nil

	case config.BackendFile:
		return file.NewStore(cfg.File.Path), noop, nil

	case config.BackendRedis:
		if cfg.Redis.Addr == "" {
			return nil, nil, fmt.Errorf("redis backend needs redis.addr")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		ttl := config.TTLDuration(cfg.Redis.TTL, 0)
		return redisstore.NewStore(client, ttl), func() { client.Close() }, nil

	case config.BackendPostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewStore(pool), pool.Close, nil

	case config.BackendMongo:
		if cfg.Mongo.URI == "" {
			return nil, nil, fmt.Errorf("mongo backend needs mongo.uri")
		}
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(shutdownCtx)
		}
		return mongostore.NewStore(client.Database(cfg.Mongo.Database), cfg.Mongo.Collection), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
