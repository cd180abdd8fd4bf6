package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	relay "github.com/blanxlait/kroger-relay"
	echoapi "github.com/blanxlait/kroger-relay/api/echo"
	"github.com/blanxlait/kroger-relay/config"
	"github.com/blanxlait/kroger-relay/internal/metrics"
	"github.com/blanxlait/kroger-relay/internal/server"
	"github.com/blanxlait/kroger-relay/mongodb"
	"github.com/blanxlait/kroger-relay/tracing"
)

var (
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db_name", cfg.MongoDBName).
		Str("log_level", cfg.LogLevel).
		Msg("Starting kroger-relay server")

	if cfg.KrogerClientID == "" || cfg.KrogerClientSecret == "" {
		log.Fatal().Msg("KROGER_CLIENT_ID and KROGER_CLIENT_SECRET must be configured")
	}

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize TracerProvider")
	}
	tracerProvider = tp

	ctx := context.Background()
	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MongoDB connection")
	}
	db := mongodb.GetDB()

	sessionRepo, err := mongodb.NewSessionRepositoryMongo(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session repository")
	}
	rateLimitRepo := mongodb.NewRateLimitRepositoryMongo(db)

	kroger := relay.NewKrogerClient(
		cfg.KrogerClientID,
		cfg.KrogerClientSecret,
		cfg.KrogerAuthorizeURL,
		cfg.KrogerTokenURL,
		cfg.CallbackURL,
	)
	limiter := relay.NewRateLimiter(rateLimitRepo)
	service := relay.NewRelayService(sessionRepo, kroger, time.Duration(cfg.SessionTTLMin)*time.Minute)

	limits := relay.Limits{
		AuthorizeMax:       cfg.AuthorizeRateMax,
		AuthorizeWindowMin: cfg.AuthorizeRateWindowMin,
		TokenMax:           cfg.TokenRateMax,
		TokenWindowMin:     cfg.TokenRateWindowMin,
	}
	api := echoapi.NewRelayAPI(service, limiter, kroger, limits)

	metrics.InitCustomMetrics(prometheus.DefaultRegisterer)

	httpServer = server.NewHTTPServer(cfg, api)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("TracerProvider shutdown error")
		}
	}
	mongodb.CloseMongoDB(shutdownCtx)

	log.Info().Msg("Server gracefully stopped")
}

func setupLogger(cfg *config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}
