package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"subnet-bridge/internal/domain"
	"subnet-bridge/internal/ss58"
)

// Default substrate client configuration values.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultCallTimeout      = 30 * time.Second
)

// SubstrateConfig configures SubstrateClient behavior.
type SubstrateConfig struct {
	// Endpoint is the chain node WebSocket URL.
	Endpoint string
	// Network is the chain network name reported to callers.
	Network string
	// SubnetUID scopes roster queries to one subnet.
	SubnetUID int
	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration
	// CallTimeout bounds a single RPC round-trip.
	CallTimeout time.Duration
}

// SubstrateClient implements Client over a chain node's JSON-RPC
// WebSocket interface. Calls are strictly request/response: one in-flight
// call at a time, responses matched by request id.
type SubstrateClient struct {
	cfg SubstrateConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	requestID atomic.Uint64
	closed    atomic.Bool
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// neuronLite is the chain-side wire form of one roster entry.
type neuronLite struct {
	UID       int     `json:"uid"`
	Hotkey    string  `json:"hotkey"`
	Coldkey   string  `json:"coldkey"`
	Stake     float64 `json:"stake"`
	Rank      int     `json:"rank"`
	Trust     float64 `json:"trust"`
	Incentive float64 `json:"incentive"`
	Emission  float64 `json:"emission"`
	VTrust    float64 `json:"validator_trust"`
	Active    bool    `json:"active"`
	Axon      *struct {
		IP   string `json:"ip"`
		Port int    `json:"port"`
	} `json:"axon_info"`
}

// NewSubstrateClient dials the chain node and returns a connected client.
func NewSubstrateClient(ctx context.Context, cfg SubstrateConfig) (*SubstrateClient, error) {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("substrate dial %s: %w", cfg.Endpoint, err)
	}

	return &SubstrateClient{cfg: cfg, conn: conn}, nil
}

// FetchRoster queries the node for all neurons in the subnet and maps them
// into a roster snapshot. Entries with malformed keys are skipped rather
// than failing the whole fetch.
func (c *SubstrateClient) FetchRoster(ctx context.Context) (*domain.RosterSnapshot, error) {
	var neurons []neuronLite
	if err := c.call(ctx, "neuronInfo_getNeuronsLite", []any{c.cfg.SubnetUID}, &neurons); err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}

	now := time.Now().Unix()
	miners := make([]domain.Miner, 0, len(neurons))
	for _, n := range neurons {
		if !ss58.Valid(n.Hotkey) || !ss58.Valid(n.Coldkey) {
			continue
		}
		m := domain.Miner{
			UID:       n.UID,
			Hotkey:    n.Hotkey,
			Coldkey:   n.Coldkey,
			Stake:     n.Stake,
			Rank:      n.Rank,
			Trust:     n.Trust,
			Incentive: n.Incentive,
			Emission:  n.Emission,
			VTrust:    n.VTrust,
			Active:    n.Active,
			UpdatedAt: now,
		}
		if n.Active && n.Axon != nil {
			m.IP = n.Axon.IP
			m.Port = n.Axon.Port
		}
		miners = append(miners, m)
	}

	return &domain.RosterSnapshot{
		Miners:      miners,
		Network:     c.cfg.Network,
		SubnetUID:   c.cfg.SubnetUID,
		RefreshedAt: now,
	}, nil
}

// Network returns the configured network name.
func (c *SubstrateClient) Network() string { return c.cfg.Network }

// SubnetUID returns the configured subnet uid.
func (c *SubstrateClient) SubnetUID() int { return c.cfg.SubnetUID }

// Close closes the WebSocket connection.
func (c *SubstrateClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn.Close()
}

// call performs one JSON-RPC round-trip, skipping any interleaved
// subscription notifications until the matching response arrives.
func (c *SubstrateClient) call(ctx context.Context, method string, params []any, result any) error {
	if c.closed.Load() {
		return fmt.Errorf("substrate client closed")
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	deadline := time.Now().Add(c.cfg.CallTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	id := c.requestID.Add(1)
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write %s: %w", method, err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	for {
		var resp rpcResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("read %s: %w", method, err)
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	}
}
