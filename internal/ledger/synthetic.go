package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"subnet-bridge/internal/domain"
	"subnet-bridge/internal/ss58"
)

// SyntheticConfig configures the synthetic roster generator.
type SyntheticConfig struct {
	Network     string
	SubnetUID   int
	TotalMiners int
	ActiveRatio float64 // fraction of miners with an axon address
	Seed        int64   // roster is a pure function of the seed
	FetchDelay  time.Duration
	FailRate    float64 // probability a FetchRoster call fails
}

// SyntheticClient implements Client with a deterministic generated roster.
// Miner keys are real ed25519 points derived from the seed and encoded
// SS58, so downstream key handling behaves exactly as with a live chain.
type SyntheticClient struct {
	cfg    SyntheticConfig
	miners []domain.Miner
	rng    *rand.Rand
}

// NewSyntheticClient builds the roster once from the seed.
func NewSyntheticClient(cfg SyntheticConfig) *SyntheticClient {
	if cfg.TotalMiners <= 0 {
		cfg.TotalMiners = 256
	}
	if cfg.ActiveRatio <= 0 || cfg.ActiveRatio > 1 {
		cfg.ActiveRatio = 0.8
	}
	if cfg.Network == "" {
		cfg.Network = "finney"
	}

	c := &SyntheticClient{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	c.miners = c.generate()
	return c
}

// FetchRoster returns a fresh snapshot of the generated roster.
func (c *SyntheticClient) FetchRoster(ctx context.Context) (*domain.RosterSnapshot, error) {
	if c.cfg.FetchDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.FetchDelay):
		}
	}
	if c.cfg.FailRate > 0 && c.rng.Float64() < c.cfg.FailRate {
		return nil, fmt.Errorf("synthetic ledger: simulated fetch failure")
	}

	now := time.Now().Unix()
	miners := make([]domain.Miner, len(c.miners))
	copy(miners, c.miners)
	for i := range miners {
		miners[i].UpdatedAt = now
	}

	return &domain.RosterSnapshot{
		Miners:      miners,
		Network:     c.cfg.Network,
		SubnetUID:   c.cfg.SubnetUID,
		RefreshedAt: now,
	}, nil
}

// Network returns the configured network name.
func (c *SyntheticClient) Network() string { return c.cfg.Network }

// SubnetUID returns the configured subnet uid.
func (c *SyntheticClient) SubnetUID() int { return c.cfg.SubnetUID }

// Close is a no-op; the synthetic client holds no connections.
func (c *SyntheticClient) Close() error { return nil }

// generate builds the full miner list from the seed.
func (c *SyntheticClient) generate() []domain.Miner {
	rng := rand.New(rand.NewSource(c.cfg.Seed))
	miners := make([]domain.Miner, c.cfg.TotalMiners)

	for uid := range miners {
		m := domain.Miner{
			UID:       uid,
			Hotkey:    deriveAddress(c.cfg.Seed, uid, "hot"),
			Coldkey:   deriveAddress(c.cfg.Seed, uid, "cold"),
			Stake:     rng.Float64() * 50000,
			Trust:     rng.Float64(),
			Incentive: rng.Float64(),
			Emission:  rng.Float64() * 10,
			VTrust:    rng.Float64(),
			Active:    rng.Float64() < c.cfg.ActiveRatio,
		}
		if m.Active {
			m.IP = fmt.Sprintf("10.%d.%d.%d", (uid>>8)&0xff, uid&0xff, 1+uid%250)
			m.Port = 8091
		}
		miners[uid] = m
	}

	// Consensus rank follows stake order: the heaviest miner is rank 0.
	order := make([]int, len(miners))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return miners[order[i]].Stake > miners[order[j]].Stake
	})
	for pos, uid := range order {
		miners[uid].Rank = pos
	}

	return miners
}

// deriveAddress derives the SS58 address for one miner key from a
// domain-separated (seed, uid, kind) tuple.
func deriveAddress(seed int64, uid int, kind string) string {
	material := fmt.Sprintf("miner/%s/%d/%d", kind, seed, uid)
	addr, err := ss58.DeriveAddress([]byte(material))
	if err != nil {
		// DeriveAddress fails only on malformed key lengths, which
		// cannot happen for basepoint multiples.
		panic(err)
	}
	return addr
}
