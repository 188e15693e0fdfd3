// Package directory holds the current roster snapshot and ranks miners by
// composite score. Snapshots are replaced atomically so concurrent readers
// always observe a complete, if possibly stale, roster.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog"

	"subnet-bridge/internal/domain"
	"subnet-bridge/internal/ledger"
)

var (
	// ErrNotInitialized is returned when ranking is requested before the
	// first successful refresh.
	ErrNotInitialized = errors.New("no roster snapshot: directory not initialized")

	// ErrUpstreamUnavailable is returned when the ledger cannot supply a
	// roster. Any prior snapshot stays valid.
	ErrUpstreamUnavailable = errors.New("ledger unavailable")
)

// Directory is the peer directory and ranking engine.
type Directory struct {
	client   ledger.Client
	snapshot atomic.Pointer[domain.RosterSnapshot]
	log      zerolog.Logger
}

// New creates a Directory backed by the given ledger client.
func New(client ledger.Client, log zerolog.Logger) *Directory {
	return &Directory{
		client: client,
		log:    log.With().Str("component", "directory").Logger(),
	}
}

// Refresh pulls a full roster from the ledger and atomically replaces the
// snapshot. On failure the prior snapshot remains in place and the call
// returns ErrUpstreamUnavailable.
func (d *Directory) Refresh(ctx context.Context) error {
	snap, err := d.client.FetchRoster(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("roster refresh failed")
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	d.snapshot.Store(snap)
	d.log.Debug().
		Int("total", len(snap.Miners)).
		Int("active", snap.ActiveCount()).
		Msg("roster refreshed")
	return nil
}

// Snapshot returns the current roster snapshot, or nil before the first
// successful refresh. Callers must not mutate the result.
func (d *Directory) Snapshot() *domain.RosterSnapshot {
	return d.snapshot.Load()
}

// Initialized reports whether a roster snapshot exists.
func (d *Directory) Initialized() bool {
	return d.snapshot.Load() != nil
}

// Rank returns the top k queryable miners by composite score
// (stake × trust × incentive, descending) together with the total number
// of queryable miners. Equal scores are ordered by ascending uid so the
// result is reproducible. Returns ErrNotInitialized before the first
// successful refresh.
func (d *Directory) Rank(k int) ([]domain.Miner, int, error) {
	snap := d.snapshot.Load()
	if snap == nil {
		return nil, 0, ErrNotInitialized
	}

	ranked := make([]domain.Miner, 0, len(snap.Miners))
	for i := range snap.Miners {
		if snap.Miners[i].Queryable() {
			ranked = append(ranked, snap.Miners[i])
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		si, sj := ranked[i].Score(), ranked[j].Score()
		if si != sj {
			return si > sj
		}
		return ranked[i].UID < ranked[j].UID
	})

	total := len(ranked)
	if k < 0 {
		k = 0
	}
	if k > total {
		k = total
	}
	return ranked[:k], total, nil
}

// Stats computes aggregate network statistics over the current snapshot.
// Returns ErrNotInitialized before the first successful refresh.
func (d *Directory) Stats() (*domain.NetworkStats, error) {
	snap := d.snapshot.Load()
	if snap == nil {
		return nil, ErrNotInitialized
	}
	return &domain.NetworkStats{
		SubnetUID:    snap.SubnetUID,
		Network:      snap.Network,
		TotalMiners:  len(snap.Miners),
		ActiveMiners: snap.ActiveCount(),
		TotalStake:   snap.TotalStake(),
		AverageTrust: snap.AverageTrust(),
		LastUpdated:  snap.RefreshedAt,
	}, nil
}
