// cmd/inspector/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tamzrod/line-inspector/internal/config"
	"github.com/tamzrod/line-inspector/internal/events"
	"github.com/tamzrod/line-inspector/internal/server"
	"github.com/tamzrod/line-inspector/internal/system"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: inspector <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger, err := newLogger(cfg.Inspector.Log)
	if err != nil {
		log.Fatalf("logger build failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Build the system context
	// --------------------

	var (
		deps       system.Deps
		mqttClient mqtt.Client
	)

	// ---- events (optional) ----
	if mc := cfg.Inspector.MQTT; mc.Broker != "" {
		em, client, err := events.Dial(ctx, events.Config{
			Broker:      mc.Broker,
			ClientID:    mc.ClientID,
			TopicPrefix: mc.TopicPrefix,
			QoS:         mc.QoS,
			Logger:      logger.Named("events"),
		})
		if err != nil {
			// the line runs without events
			logger.Error("mqtt unavailable, events disabled", zap.Error(err))
		} else {
			deps.Events = em
			mqttClient = client
		}
	}

	sys, err := system.New(cfg, logger, deps)
	if err != nil {
		logger.Fatal("system build failed", zap.Error(err))
	}
	if mqttClient != nil {
		sys.OnClose(func(context.Context) error {
			mqttClient.Disconnect(250)
			return nil
		})
	}

	sys.Start(ctx)
	if err := sys.EnsureDetection(); err != nil {
		logger.Fatal("detection start failed", zap.Error(err))
	}

	// --------------------
	// HTTP surface
	// --------------------

	srv := &http.Server{
		Addr:              cfg.Inspector.HTTP.Addr,
		Handler:           server.New(sys, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	// --------------------
	// Block until signal, then shut down
	// --------------------

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// MJPEG viewers never end their response on their own
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
		_ = srv.Close()
	}

	if err := sys.Wait(); err != nil {
		logger.Error("component failed", zap.Error(err))
	}
	if err := sys.Close(shutdownCtx); err != nil {
		logger.Error("cleanup failed", zap.Error(err))
	}
}

func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
