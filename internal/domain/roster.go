package domain

// RosterSnapshot is a point-in-time listing of all subnet miners.
// Snapshots are immutable after construction and replaced wholesale on
// refresh; readers must never mutate Miners.
type RosterSnapshot struct {
	Miners      []Miner
	Network     string
	SubnetUID   int
	RefreshedAt int64 // Unix timestamp (seconds)
}

// ActiveCount returns the number of active miners in the snapshot.
func (s *RosterSnapshot) ActiveCount() int {
	n := 0
	for i := range s.Miners {
		if s.Miners[i].Active {
			n++
		}
	}
	return n
}

// TotalStake returns the summed stake over all miners, active or not.
func (s *RosterSnapshot) TotalStake() float64 {
	var total float64
	for i := range s.Miners {
		total += s.Miners[i].Stake
	}
	return total
}

// AverageTrust returns the mean trust over all miners, or 0 for an
// empty roster.
func (s *RosterSnapshot) AverageTrust() float64 {
	if len(s.Miners) == 0 {
		return 0
	}
	var total float64
	for i := range s.Miners {
		total += s.Miners[i].Trust
	}
	return total / float64(len(s.Miners))
}
