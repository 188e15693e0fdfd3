// Package main runs the subnet prediction bridge: a subprocess that
// speaks line-delimited JSON over stdin/stdout, ranks subnet miners from
// a ledger roster and fans prediction queries out to the best of them.
// All logging goes to stderr; stdout carries protocol frames only.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"subnet-bridge/internal/config"
	"subnet-bridge/internal/directory"
	"subnet-bridge/internal/ledger"
	"subnet-bridge/internal/metrics"
	"subnet-bridge/internal/orchestrator"
	"subnet-bridge/internal/protocol"
	"subnet-bridge/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "config file path (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := newLedgerClient(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("ledger client setup failed")
		os.Exit(1)
	}

	recorder := metrics.New(nil)
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	dir := directory.New(client, logger)

	tr := transport.NewSynthetic(transport.SyntheticConfig{
		DropRate:    cfg.Transport.DropRate,
		BaseLatency: cfg.Transport.BaseLatency.Std(),
		MeanJitter:  cfg.Transport.MeanJitter.Std(),
		Seed:        cfg.Transport.Seed,
	})

	orch := orchestrator.New(orchestrator.Options{
		Directory:      dir,
		Transport:      tr,
		Metrics:        recorder,
		PeerTimeout:    cfg.Query.PeerTimeout.Std(),
		MaxConcurrency: cfg.Query.MaxConcurrency,
		Logger:         logger,
	})

	handler := protocol.New(protocol.Options{
		In:             os.Stdin,
		Out:            os.Stdout,
		Directory:      dir,
		Orchestrator:   orch,
		Ledger:         client,
		Metrics:        recorder,
		RefreshTimeout: cfg.Ledger.RefreshTimeout.Std(),
		Logger:         logger,
	})

	logger.Info().
		Str("network", cfg.Network.Name).
		Int("subnet", cfg.Network.SubnetUID).
		Str("ledger", cfg.Ledger.Backend).
		Msg("bridge starting")

	if err := handler.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("bridge terminated abnormally")
		os.Exit(1)
	}
	logger.Info().Msg("bridge stopped")
}

// newLogger builds the stderr logger from config.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stderr
	var logger zerolog.Logger
	if cfg.Log.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(out)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// newLedgerClient selects the roster backend from config.
func newLedgerClient(ctx context.Context, cfg *config.Config) (ledger.Client, error) {
	switch cfg.Ledger.Backend {
	case "substrate":
		return ledger.NewSubstrateClient(ctx, ledger.SubstrateConfig{
			Endpoint:    cfg.Ledger.Endpoint,
			Network:     cfg.Network.Name,
			SubnetUID:   cfg.Network.SubnetUID,
			CallTimeout: cfg.Ledger.RefreshTimeout.Std(),
		})
	default:
		return ledger.NewSyntheticClient(ledger.SyntheticConfig{
			Network:     cfg.Network.Name,
			SubnetUID:   cfg.Network.SubnetUID,
			TotalMiners: cfg.Ledger.Synthetic.TotalMiners,
			ActiveRatio: cfg.Ledger.Synthetic.ActiveRatio,
			Seed:        cfg.Ledger.Synthetic.Seed,
		}), nil
	}
}

// serveMetrics exposes Prometheus metrics on a side port.
func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn().Err(err).Msg("metrics listener stopped")
	}
}
