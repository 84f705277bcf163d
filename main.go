// Command linkline is the chat-driven link curation service. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Connects to Twitch chat (anonymously when no bot credentials are set)
//     and runs the curation engine that turns chat links into a moderated,
//     ordered queue.
//   - Exposes the HTTP control surface with /events (SSE), /status,
//     /healthz, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/linkline/chat"
	"github.com/onnwee/linkline/config"
	"github.com/onnwee/linkline/db"
	"github.com/onnwee/linkline/engine"
	"github.com/onnwee/linkline/server"
	"github.com/onnwee/linkline/telemetry"
	"github.com/onnwee/linkline/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateBotAuth(); err != nil {
		slog.Error("invalid bot credentials", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("linkline", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first, embedded SQL as fallback for deployments
	// that predate the schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting embedded SQL fallback", slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Chat transport and engine. The transport delivers into the engine via
	// closure; eng is assigned before Connect starts the read loop.
	var eng *engine.Engine
	client := chat.New(cfg.TwitchBotUsername, cfg.TwitchOAuthToken, func(m engine.Message) {
		eng.Deliver(m)
	})
	eng = engine.New(client, &db.KVBanStore{DB: database}, engine.Options{
		Policy:       cfg.QueuePolicy,
		IntakeClosed: !cfg.IntakeOpen,
		JoinTimeout:  cfg.JoinTimeout,
		EventBuffer:  cfg.EventBuffer,
	})
	go func() {
		if err := eng.Run(ctx); err != nil {
			slog.Error("engine exited with error", slog.Any("err", err))
		}
	}()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	if err := client.Connect(connectCtx); err != nil {
		cancel()
		slog.Error("twitch chat connect failed", slog.Any("err", err))
		os.Exit(1)
	}
	cancel()
	defer func() {
		if err := client.Disconnect(); err != nil {
			slog.Warn("chat disconnect failed", slog.Any("err", err))
		}
	}()

	// Optional boot channel
	if cfg.TwitchChannel != "" {
		bctx, bcancel := context.WithTimeout(ctx, 5*time.Second)
		if err := eng.JoinChannel(bctx, cfg.TwitchChannel); err != nil {
			slog.Warn("boot channel join request failed", slog.String("channel", cfg.TwitchChannel), slog.Any("err", err))
		}
		bcancel()
	}

	// Helix channel lookups when app credentials are present
	var helix *twitchapi.HelixClient
	if cfg.HelixEnabled() {
		helix = twitchapi.NewHelixClient(ctx, cfg.TwitchClientID, cfg.TwitchClientSecret)
		slog.Info("helix channel lookups enabled")
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP control surface
	go func() {
		if err := server.Start(ctx, database, eng, helix, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
