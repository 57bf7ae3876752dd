package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickerfeed/config"
	"tickerfeed/internal/binance/collector"
	"tickerfeed/internal/metrics"
	"tickerfeed/logger"
	"tickerfeed/pkg/binance"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts collector.Options
	var metricsServer *metrics.Server
	if cfg.Metrics.Addr != "" {
		streamName := binance.StreamName(cfg.Ticker.Pair(), binance.StreamType(cfg.Ticker.Stream))
		opts.Metrics = metrics.New(streamName, true)
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, opts.Metrics, log.Named("metrics"))
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	feed, err := collector.New(cfg, log, opts)
	if err != nil {
		log.Fatal("failed to set up feed", zap.Error(err))
	}

	log.Info("starting feed", zap.String("stream", feed.Stream), zap.String("url", cfg.Binance.WS.URL))
	if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("feed stopped", zap.Error(err))
	}
	log.Info("feed stopped", zap.String("status", feed.Store.Status().Label))

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Warn("failed to stop metrics server", zap.Error(err))
		}
	}
}
