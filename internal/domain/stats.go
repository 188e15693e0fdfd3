package domain

// NetworkStats is an aggregate view over one roster snapshot.
type NetworkStats struct {
	SubnetUID    int     `json:"subnet_uid"`
	Network      string  `json:"network"`
	TotalMiners  int     `json:"total_miners"`
	ActiveMiners int     `json:"active_miners"`
	TotalStake   float64 `json:"total_stake"`
	AverageTrust float64 `json:"average_trust"`
	LastUpdated  int64   `json:"last_updated"`
}
