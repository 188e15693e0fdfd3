// Package transport defines the capability of exchanging one
// request/response with a single miner. The synthetic implementation
// stands in for a real axon round-trip behind the same interface.
package transport

import (
	"context"
	"errors"

	"subnet-bridge/internal/domain"
)

// ErrUnreachable is returned when a miner does not respond within the
// call's bounds. The orchestrator absorbs it; it never aborts a query.
var ErrUnreachable = errors.New("miner unreachable")

// Transport performs one prediction exchange with a single miner.
type Transport interface {
	// Query sends the request to the miner and returns its response.
	// Implementations must honor ctx cancellation and never panic:
	// any internal failure surfaces as an error, typically wrapping
	// ErrUnreachable.
	Query(ctx context.Context, miner domain.Miner, req *domain.PredictionRequest) (*domain.PredictionResponse, error)
}
