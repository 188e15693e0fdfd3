package protocol

import (
	"encoding/json"

	"subnet-bridge/internal/domain"
)

// Frame type tags emitted on stdout.
const (
	TypeReady    = "ready"
	TypeResponse = "response"
	TypeError    = "error"
)

// envelope is the minimal shape every request line must parse into.
// RequestID is opaque: whatever JSON value the host sent is echoed back.
type envelope struct {
	Action    string          `json:"action"`
	RequestID json.RawMessage `json:"request_id"`
}

// Header carries the fields common to every emitted frame.
type Header struct {
	Type      string          `json:"type"`
	Success   bool            `json:"success"`
	RequestID json.RawMessage `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (h *Header) setHeader(frameType string, success bool, requestID json.RawMessage, errMsg string) {
	h.Type = frameType
	h.Success = success
	h.RequestID = requestID
	h.Error = errMsg
}

// frame is implemented by every response payload via Header embedding.
type frame interface {
	setHeader(frameType string, success bool, requestID json.RawMessage, errMsg string)
}

// readyFrame is emitted once before the loop accepts input.
type readyFrame struct {
	Header
	Message string `json:"message"`
}

// Per-action request parameters. Defaults mirror the host SDK's; values
// are filled with defaults.Set and checked with validator before dispatch.

type initializeParams struct {
	WalletName   string `json:"wallet_name" default:"reckon" validate:"required"`
	WalletHotkey string `json:"wallet_hotkey" default:"default" validate:"required"`
}

// TopK is a pointer so an explicit 0 is distinguishable from an absent
// field: only a missing value takes the default. Values beyond the active
// peer count are capped by ranking, not rejected.

type topMinersParams struct {
	TopK *int `json:"top_k" default:"32" validate:"omitempty,gte=0"`
}

type queryParams struct {
	Symbols []string `json:"symbols" default:"[\"BTC\",\"ETH\"]" validate:"min=1,max=64,dive,required"`
	TopK    *int     `json:"top_k" default:"16" validate:"omitempty,gte=0"`
}

// Per-action response payloads.

type initializeResponse struct {
	Header
	Message      string `json:"message"`
	TotalMiners  int    `json:"total_miners"`
	ActiveMiners int    `json:"active_miners"`
	Network      string `json:"network"`
}

type topMinersResponse struct {
	Header
	Miners      []domain.Miner `json:"miners"`
	TotalActive int            `json:"total_active"`
	TopK        int            `json:"top_k"`
}

type queryResponse struct {
	Header
	Predictions       []*domain.PredictionResponse `json:"predictions"`
	QueriedMiners     int                          `json:"queried_miners"`
	SuccessfulQueries int                          `json:"successful_queries"`
	Timestamp         int64                        `json:"timestamp"`
}

type networkStatsResponse struct {
	Header
	domain.NetworkStats
}

type closeResponse struct {
	Header
	Message string `json:"message"`
}
