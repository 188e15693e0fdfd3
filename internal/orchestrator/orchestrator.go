// Package orchestrator fans prediction queries out to the top-ranked
// miners and aggregates whatever responses arrive. Per-miner failures are
// absorbed: one unreachable miner never aborts its siblings or the query.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subnet-bridge/internal/directory"
	"subnet-bridge/internal/domain"
	"subnet-bridge/internal/metrics"
	"subnet-bridge/internal/transport"
)

// Default fan-out bounds.
const (
	DefaultPeerTimeout    = 12 * time.Second
	DefaultMaxConcurrency = 16
)

// Options for creating an Orchestrator.
type Options struct {
	Directory *directory.Directory
	Transport transport.Transport
	Metrics   *metrics.Recorder // optional

	// PeerTimeout bounds each per-miner sub-call.
	PeerTimeout time.Duration
	// MaxConcurrency caps in-flight sub-calls beyond the top-k bound.
	MaxConcurrency int

	Logger zerolog.Logger
}

// Orchestrator coordinates concurrent prediction queries.
type Orchestrator struct {
	directory      *directory.Directory
	transport      transport.Transport
	recorder       *metrics.Recorder
	peerTimeout    time.Duration
	maxConcurrency int
	log            zerolog.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.PeerTimeout <= 0 {
		opts.PeerTimeout = DefaultPeerTimeout
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	return &Orchestrator{
		directory:      opts.Directory,
		transport:      opts.Transport,
		recorder:       opts.Metrics,
		peerTimeout:    opts.PeerTimeout,
		maxConcurrency: opts.MaxConcurrency,
		log:            opts.Logger.With().Str("component", "orchestrator").Logger(),
	}
}

// QueryResult aggregates the outcome of one fan-out query.
// Predictions are ordered by arrival, not dispatch order, and
// SuccessfulQueries <= QueriedMiners always holds.
type QueryResult struct {
	Predictions       []*domain.PredictionResponse
	QueriedMiners     int
	SuccessfulQueries int
	Timestamp         int64
}

// QueryPredictions ranks the roster, dispatches one concurrent sub-call
// per selected miner and gathers successful responses. The error return
// is non-nil only when ranking itself fails; an empty result set with all
// miners unresponsive is still a successful query.
func (o *Orchestrator) QueryPredictions(ctx context.Context, symbols []string, topK int) (*QueryResult, error) {
	miners, _, err := o.directory.Rank(topK)
	if err != nil {
		return nil, err
	}

	queryID := uuid.NewString()
	req := domain.NewPredictionRequest(symbols)
	start := time.Now()

	o.log.Debug().
		Str("query_id", queryID).
		Strs("symbols", symbols).
		Int("miners", len(miners)).
		Msg("dispatching prediction query")

	// Fan-in channel: buffered so no sender blocks after collection ends.
	results := make(chan *domain.PredictionResponse, len(miners))
	sem := make(chan struct{}, o.maxConcurrency)
	var wg sync.WaitGroup

	for _, m := range miners {
		wg.Add(1)
		go func(m domain.Miner) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			callCtx, cancel := context.WithTimeout(ctx, o.peerTimeout)
			defer cancel()

			resp, err := o.transport.Query(callCtx, m, req)
			if err != nil {
				o.log.Debug().
					Str("query_id", queryID).
					Int("uid", m.UID).
					Err(err).
					Msg("miner query failed")
				o.recordMinerQuery(false)
				return
			}
			o.recordMinerQuery(true)
			results <- resp
		}(m)
	}

	wg.Wait()
	close(results)

	predictions := make([]*domain.PredictionResponse, 0, len(miners))
	for resp := range results {
		predictions = append(predictions, resp)
	}

	elapsed := time.Since(start)
	if o.recorder != nil {
		o.recorder.RecordQueryDuration(elapsed.Seconds())
	}
	o.log.Info().
		Str("query_id", queryID).
		Int("queried", len(miners)).
		Int("successful", len(predictions)).
		Dur("elapsed", elapsed).
		Msg("prediction query completed")

	return &QueryResult{
		Predictions:       predictions,
		QueriedMiners:     len(miners),
		SuccessfulQueries: len(predictions),
		Timestamp:         time.Now().Unix(),
	}, nil
}

func (o *Orchestrator) recordMinerQuery(ok bool) {
	if o.recorder != nil {
		o.recorder.RecordMinerQuery(ok)
	}
}
