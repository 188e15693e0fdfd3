package domain

// Miner represents one subnet participant from the ledger roster.
// Serialized verbatim into get_top_miners responses.
type Miner struct {
	UID       int     `json:"uid"`        // identity within a snapshot, unique
	Hotkey    string  `json:"hotkey"`     // operational key, SS58-encoded
	Coldkey   string  `json:"coldkey"`    // holding key, SS58-encoded
	Stake     float64 `json:"stake"`      // stake in TAO
	Rank      int     `json:"rank"`       // consensus rank position
	Trust     float64 `json:"trust"`      // trust weight [0,1]
	Incentive float64 `json:"incentive"`  // incentive weight [0,1]
	Emission  float64 `json:"emission"`   // emission share
	VTrust    float64 `json:"vtrust"`     // validator (weighted) trust
	UpdatedAt int64   `json:"updated_at"` // Unix timestamp (seconds)
	Active    bool    `json:"active"`
	IP        string  `json:"ip"`   // set only when active
	Port      int     `json:"port"` // set only when active
}

// Score returns the composite ranking score: stake × trust × incentive.
func (m *Miner) Score() float64 {
	return m.Stake * m.Trust * m.Incentive
}

// Queryable reports whether the miner can be dispatched a query:
// it must be active and expose a network address.
func (m *Miner) Queryable() bool {
	return m.Active && m.IP != "" && m.Port > 0
}
