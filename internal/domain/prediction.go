package domain

// Prediction horizons queried from miners. Every SymbolPrediction carries
// one projected price per horizon.
var Timeframes = []string{"1h", "4h", "24h"}

// Confidence bounds enforced on every prediction.
const (
	MinConfidence = 0.1
	MaxConfidence = 0.95
)

// PredictionRequest is the payload dispatched to each selected miner.
type PredictionRequest struct {
	Symbols       []string           `json:"symbols"`
	Timeframes    []string           `json:"timeframes"`
	CurrentPrices map[string]float64 `json:"current_prices"` // filled in by miners
	RequestType   string             `json:"request_type"`
}

// NewPredictionRequest builds a price-prediction request over the standard
// horizons for the given symbols.
func NewPredictionRequest(symbols []string) *PredictionRequest {
	prices := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		prices[s] = 0
	}
	return &PredictionRequest{
		Symbols:       symbols,
		Timeframes:    Timeframes,
		CurrentPrices: prices,
		RequestType:   "price_prediction",
	}
}

// SymbolPrediction is one miner's forecast for a single symbol.
type SymbolPrediction struct {
	Price1h    float64   `json:"price_1h"`
	Price4h    float64   `json:"price_4h"`
	Price24h   float64   `json:"price_24h"`
	Confidence float64   `json:"confidence"` // clamped to [MinConfidence, MaxConfidence]
	Sentiment  Sentiment `json:"sentiment"`
	RiskScore  float64   `json:"risk_score"`
	Reasoning  string    `json:"reasoning"`
}

// PredictionResponse is one miner's reply to a PredictionRequest.
// Instances live only for the duration of a single query call.
type PredictionResponse struct {
	MinerUID     int                         `json:"miner_uid"`
	MinerHotkey  string                      `json:"miner_hotkey"`
	MinerStake   float64                     `json:"miner_stake"`
	Predictions  map[string]SymbolPrediction `json:"predictions"`
	Timestamp    int64                       `json:"timestamp"`
	ModelVersion string                      `json:"model_version"`
}
