package transport

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"subnet-bridge/internal/domain"
)

// Default synthetic behavior, matching observed subnet miner latency and
// non-response rates.
const (
	DefaultDropRate    = 0.2
	DefaultBaseLatency = 100 * time.Millisecond
	DefaultMeanJitter  = 200 * time.Millisecond
)

// Reference prices used to scale projections per symbol.
var basePrices = map[string]float64{
	"BTC":   43000,
	"ETH":   2600,
	"SOL":   98,
	"AVAX":  36,
	"MATIC": 0.85,
	"ADA":   0.48,
	"DOT":   7.2,
	"LINK":  14.5,
}

const defaultBasePrice = 100

// Volatility multipliers per prediction horizon.
var horizonMultipliers = map[string]float64{
	"1h":  1.0,
	"4h":  1.5,
	"24h": 2.2,
}

// SyntheticConfig configures the synthetic transport.
type SyntheticConfig struct {
	DropRate    float64       // probability a miner never responds
	BaseLatency time.Duration // fixed latency floor per call
	MeanJitter  time.Duration // mean of the exponential latency tail
	Seed        int64
}

// Synthetic implements Transport by generating structurally valid miner
// responses locally. Safe for concurrent use.
type Synthetic struct {
	cfg SyntheticConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic creates a synthetic transport. An out-of-range DropRate
// and negative durations fall back to defaults; zero values are
// respected so tests can run instant and lossless.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.DropRate < 0 || cfg.DropRate > 1 {
		cfg.DropRate = DefaultDropRate
	}
	if cfg.BaseLatency < 0 {
		cfg.BaseLatency = DefaultBaseLatency
	}
	if cfg.MeanJitter < 0 {
		cfg.MeanJitter = DefaultMeanJitter
	}
	return &Synthetic{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Query simulates one miner round-trip: variable latency, a drop
// probability, then a generated response shaped by the miner's rank,
// trust and incentive.
func (t *Synthetic) Query(ctx context.Context, miner domain.Miner, req *domain.PredictionRequest) (*domain.PredictionResponse, error) {
	latency := t.cfg.BaseLatency + t.sampleJitter()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: uid=%d: %v", ErrUnreachable, miner.UID, ctx.Err())
	case <-time.After(latency):
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rng.Float64() < t.cfg.DropRate {
		return nil, fmt.Errorf("%w: uid=%d dropped request", ErrUnreachable, miner.UID)
	}

	// Lower-ranked miners forecast more conservatively.
	baseVol := 0.02 * (1 + float64(miner.Rank)/100)
	confidence := clamp(miner.Trust*miner.Incentive, domain.MinConfidence, domain.MaxConfidence)

	predictions := make(map[string]domain.SymbolPrediction, len(req.Symbols))
	for _, symbol := range req.Symbols {
		predictions[symbol] = domain.SymbolPrediction{
			Price1h:    t.projectPrice(symbol, "1h", baseVol),
			Price4h:    t.projectPrice(symbol, "4h", baseVol*2),
			Price24h:   t.projectPrice(symbol, "24h", baseVol*4),
			Confidence: confidence,
			Sentiment:  t.sampleSentiment(),
			RiskScore:  t.sampleBeta(2, 5),
			Reasoning: fmt.Sprintf("Analysis from miner %d using AI model v%d.%d",
				miner.UID, 1+t.rng.Intn(4), t.rng.Intn(10)),
		}
	}

	return &domain.PredictionResponse{
		MinerUID:    miner.UID,
		MinerHotkey: miner.Hotkey,
		MinerStake:  miner.Stake,
		Predictions: predictions,
		Timestamp:   time.Now().Unix(),
		ModelVersion: fmt.Sprintf("subnet18-v%d.%d",
			1+t.rng.Intn(2), t.rng.Intn(10)),
	}, nil
}

// projectPrice derives a finite projected value from the symbol's
// reference price, the miner volatility and the horizon multiplier.
// Caller must hold t.mu.
func (t *Synthetic) projectPrice(symbol, horizon string, vol float64) float64 {
	base, ok := basePrices[symbol]
	if !ok {
		base = defaultBasePrice
	}
	mult, ok := horizonMultipliers[horizon]
	if !ok {
		mult = 1.0
	}
	trend := t.rng.NormFloat64() * vol * mult
	return base * (1 + trend)
}

// sampleSentiment draws from a fixed categorical prior:
// bullish 0.4, bearish 0.3, neutral 0.3. Caller must hold t.mu.
func (t *Synthetic) sampleSentiment() domain.Sentiment {
	u := t.rng.Float64()
	switch {
	case u < 0.4:
		return domain.SentimentBullish
	case u < 0.7:
		return domain.SentimentBearish
	default:
		return domain.SentimentNeutral
	}
}

// sampleJitter draws the exponential latency tail.
func (t *Synthetic) sampleJitter() time.Duration {
	if t.cfg.MeanJitter == 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.rng.ExpFloat64() * float64(t.cfg.MeanJitter))
}

// sampleBeta draws from Beta(a, b) via two gamma variates; with a=2, b=5
// the distribution is skewed toward low risk. Caller must hold t.mu.
func (t *Synthetic) sampleBeta(a, b float64) float64 {
	ga := t.sampleGamma(a)
	gb := t.sampleGamma(b)
	if ga+gb == 0 {
		return 0
	}
	return ga / (ga + gb)
}

// sampleGamma draws from Gamma(shape, 1) for shape >= 1 using the
// Marsaglia-Tsang squeeze method. Caller must hold t.mu.
func (t *Synthetic) sampleGamma(shape float64) float64 {
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := t.rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := t.rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
