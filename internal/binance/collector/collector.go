package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tickerfeed/config"
	"tickerfeed/internal/binance/backoff"
	"tickerfeed/internal/binance/memorystore"
	"tickerfeed/internal/binance/stream"
	"tickerfeed/internal/binance/ticker"
	"tickerfeed/internal/metrics"
	"tickerfeed/pkg/binance"
	"tickerfeed/pkg/storage/postgres"

	"go.uber.org/zap"
)

// Options carries the optional parts of a Feed.
type Options struct {
	Metrics   *metrics.Collector // nil disables metrics
	Observers []ticker.Observer  // extra observers, called after the built-in ones
}

// Feed is one ticker stream: the runner plus everything observing it.
type Feed struct {
	Stream string
	Runner *ticker.Runner
	Store  *memorystore.SnapshotStore

	cfg    *config.Config
	rest   *binance.RESTClient
	db     *postgres.PostgresClient
	writer *postgres.SnapshotWriter
	logger *zap.Logger
}

// New wires a Feed for cfg.Ticker. Nothing connects until Run.
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*Feed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	meta, err := binance.ParseStreamType(cfg.Ticker.Stream)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	streamName := binance.StreamName(cfg.Ticker.Pair(), binance.StreamType(meta.Name))
	subscription, err := binance.NewSubscribeRequest(streamName).Encode()
	if err != nil {
		return nil, fmt.Errorf("encode subscription: %w", err)
	}

	feedLogger := logger.With(zap.String("stream", streamName))
	f := &Feed{
		Stream: streamName,
		Store:  memorystore.NewSnapshotStore(),
		cfg:    cfg,
		rest:   binance.NewRESTClient(cfg.Binance.REST.BaseURL, cfg.Binance.REST.Timeout),
		logger: feedLogger,
	}

	observers := ticker.Observers{f.Store, newStatusLogger(feedLogger.Named("status"))}
	var runnerOpts []ticker.Option
	if opts.Metrics != nil {
		observers = append(observers, opts.Metrics)
		runnerOpts = append(runnerOpts, ticker.WithEffectHook(opts.Metrics.ObserveEffect))
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		f.db = db
		f.writer = postgres.NewSnapshotWriter(db, streamName, feedLogger.Named("postgres"))
		observers = append(observers, f.writer)
	}
	observers = append(observers, opts.Observers...)

	ws := binance.NewWSClient(binance.WSOptions{
		HandshakeTimeout: cfg.Binance.WS.HandshakeTimeout,
		WriteTimeout:     cfg.Binance.WS.WriteTimeout,
		ReadTimeout:      cfg.Binance.WS.ReadTimeout,
	}, feedLogger.Named("ws"))

	machineCfg := ticker.Config{
		Subscription: subscription,
		Decoder:      stream.Decoder{EventType: meta.EventType},
		Backoff:      backoff.New(cfg.Backoff.Base, cfg.Backoff.Ceiling),
		Format:       ticker.NewPriceFormatter(cfg.Ticker.Unit()),
	}
	f.Runner = ticker.NewRunner(cfg.Binance.WS.URL, machineCfg, wsTransport{client: ws}, observers, feedLogger.Named("runner"), runnerOpts...)

	return f, nil
}

// Run checks the symbol when configured, starts the stream and blocks until
// ctx is cancelled or Stop is called. Storage is flushed and closed before
// it returns.
func (f *Feed) Run(ctx context.Context) error {
	defer f.closeStorage()

	if f.writer != nil {
		f.writer.StartWorker()
	}

	if f.cfg.Ticker.VerifySymbol {
		CheckSymbol(ctx, f.rest, f.cfg.Ticker.Pair(), f.logger)
	}

	f.Runner.Start()
	return f.Runner.Run(ctx)
}

// Stop requests shutdown; Run returns once it has been handled.
func (f *Feed) Stop() { f.Runner.Stop() }

func (f *Feed) closeStorage() {
	if f.writer != nil {
		f.writer.Close()
	}
	if f.db != nil {
		if err := f.db.Close(); err != nil {
			f.logger.Warn("failed to close postgres", zap.Error(err))
		}
	}
}

// CheckSymbol asks the exchange whether symbol is listed and logs the
// outcome. It never fails the feed: an unknown symbol only means the stream
// will stay unconfirmed.
func CheckSymbol(ctx context.Context, rest *binance.RESTClient, symbol string, logger *zap.Logger) bool {
	symbol = strings.ToUpper(symbol)

	status, err := rest.SymbolStatus(ctx, symbol)
	switch {
	case errors.Is(err, binance.ErrUnknownSymbol):
		logger.Warn("symbol is not listed, the stream will not deliver prices", zap.String("symbol", symbol))
		return false
	case err != nil:
		logger.Warn("symbol check failed", zap.String("symbol", symbol), zap.Error(err))
		return false
	case status != "TRADING":
		logger.Warn("symbol is not trading", zap.String("symbol", symbol), zap.String("status", status))
		return true
	}

	logger.Info("symbol verified", zap.String("symbol", symbol), zap.String("status", status))
	return true
}
