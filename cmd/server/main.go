package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-reader/internal/agent"
	"github.com/p-n-ai/pai-reader/internal/api"
	"github.com/p-n-ai/pai-reader/internal/chat"
	"github.com/p-n-ai/pai-reader/internal/content"
	"github.com/p-n-ai/pai-reader/internal/platform/cache"
	"github.com/p-n-ai/pai-reader/internal/platform/config"
	"github.com/p-n-ai/pai-reader/internal/platform/database"
	"github.com/p-n-ai/pai-reader/internal/platform/logging"
	"github.com/p-n-ai/pai-reader/internal/platform/metrics"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// app holds the wired services of one server process.
type app struct {
	cfg     *config.Config
	store   *agent.SessionStore
	sweeper *agent.Sweeper
	gateway *chat.Gateway
	engine  *agent.Engine
	server  *http.Server
	closers []func()
}

// newApp connects the optional backing services and wires the session store,
// chat channels and HTTP API around them.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg}

	catalog, err := content.Load(cfg.ContentPath)
	if err != nil {
		return nil, fmt.Errorf("loading content: %w", err)
	}

	checks := map[string]api.HealthChecker{}
	var loggers agent.MultiEventLogger
	var stats api.StatsReader

	db, err := database.Open(ctx, cfg.Database)
	switch {
	case errors.Is(err, database.ErrNoURL):
		slog.Info("database not configured, quiz events are not persisted")
	case err != nil:
		return nil, fmt.Errorf("connecting to database: %w", err)
	default:
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		checks["database"] = db
		loggers = append(loggers, agent.NewPostgresEventLogger(db.Pool))
	}

	c, err := cache.Open(ctx, cfg.Cache)
	switch {
	case errors.Is(err, cache.ErrNoURL):
		slog.Info("cache not configured, quiz statistics are disabled")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("connecting to cache: %w", err)
	default:
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks["cache"] = c
		redisStats := agent.NewRedisStatsLogger(c.Client)
		loggers = append(loggers, redisStats)
		stats = redisStats
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		// The gauge reads the store lazily, so it can be created first.
		m = metrics.New(func() int { return a.store.Len() })
		loggers = append(loggers, agent.NewMetricsEventLogger(m))
	}

	var events agent.EventLogger = agent.NopEventLogger{}
	if len(loggers) > 0 {
		events = loggers
	}

	a.store = agent.NewSessionStore(agent.StoreConfig{
		Catalog: catalog,
		Events:  events,
		Options: []quiz.Option{
			quiz.WithGenerationDelay(cfg.Quiz.GenerationDelay),
			quiz.WithLogger(logger),
		},
	})
	a.sweeper = agent.NewSweeper(a.store, cfg.Quiz.SessionIdleTTL, 0)

	a.gateway = chat.NewGateway()
	if cfg.HasTelegram() {
		tg, err := chat.NewTelegramChannel(cfg.Telegram.BotToken)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating telegram channel: %w", err)
		}
		a.gateway.Register("telegram", tg)
	}
	a.engine = agent.NewEngine(agent.EngineConfig{Store: a.store, Sender: a.gateway})

	srv := api.NewServer(api.Options{
		Store:   a.store,
		Metrics: m,
		Stats:   stats,
		Checks:  checks,
	})
	a.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     srv.Router(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return a, nil
}

// handleMessage answers one chat message on the channel it came from.
func (a *app) handleMessage(ctx context.Context, msg chat.InboundMessage) {
	if err := a.gateway.SendTyping(ctx, msg.Channel, msg.UserID); err != nil {
		slog.Debug("failed to send typing", "error", err, "channel", msg.Channel)
	}

	reply, err := a.engine.ProcessMessage(ctx, msg)
	if err != nil {
		slog.Error("failed to process message", "error", err, "channel", msg.Channel, "user_id", msg.UserID)
		return
	}

	if err := a.gateway.Send(ctx, chat.OutboundMessage{
		Channel:   msg.Channel,
		UserID:    msg.UserID,
		Text:      reply,
		ParseMode: agent.ParseMode,
	}); err != nil {
		slog.Error("failed to send reply", "error", err, "channel", msg.Channel, "user_id", msg.UserID)
	}
}

// Run serves until ctx is cancelled, then shuts down.
func (a *app) Run(ctx context.Context) error {
	a.sweeper.Start(ctx)

	if err := a.gateway.StartAll(ctx, func(msg chat.InboundMessage) {
		a.handleMessage(ctx, msg)
	}); err != nil {
		return fmt.Errorf("starting chat channels: %w", err)
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return err
	}
	slog.Info("shutting down")

	if err := a.gateway.StopAll(); err != nil {
		slog.Error("failed to stop chat channels", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases backing connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
