// Package ledger provides access to the chain-side roster of subnet miners.
// Two implementations exist: a SubstrateClient speaking JSON-RPC over
// WebSocket to a chain node, and a SyntheticClient generating a
// deterministic roster for operation without chain access.
package ledger

import (
	"context"

	"subnet-bridge/internal/domain"
)

// Client supplies roster snapshots from the ledger.
type Client interface {
	// FetchRoster retrieves the full current roster. The returned snapshot
	// is owned by the caller and never mutated by the client.
	FetchRoster(ctx context.Context) (*domain.RosterSnapshot, error)

	// Network returns the chain network name (e.g. "finney").
	Network() string

	// SubnetUID returns the subnet this client is scoped to.
	SubnetUID() int

	// Close releases any held connections.
	Close() error
}
