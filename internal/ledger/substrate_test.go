package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"subnet-bridge/internal/ss58"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startNode runs a fake chain node answering neuronInfo_getNeuronsLite
// with the given result payload.
func startNode(t *testing.T, result any) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var req rpcRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Method != "neuronInfo_getNeuronsLite" {
				t.Errorf("unexpected method %s", req.Method)
				return
			}

			raw, err := json.Marshal(result)
			if err != nil {
				t.Errorf("marshal result: %v", err)
				return
			}
			resp := rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: raw}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testAddr(t *testing.T, seed string) string {
	t.Helper()
	addr, err := ss58.DeriveAddress([]byte(seed))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	return addr
}

func TestSubstrateFetchRoster(t *testing.T) {
	ctx := context.Background()

	hot := testAddr(t, "hot-0")
	cold := testAddr(t, "cold-0")

	neurons := []map[string]any{
		{
			"uid": 0, "hotkey": hot, "coldkey": cold,
			"stake": 1200.5, "rank": 3, "trust": 0.7, "incentive": 0.6,
			"emission": 1.1, "validator_trust": 0.2, "active": true,
			"axon_info": map[string]any{"ip": "1.2.3.4", "port": 8091},
		},
		{
			"uid": 1, "hotkey": testAddr(t, "hot-1"), "coldkey": testAddr(t, "cold-1"),
			"stake": 10.0, "active": false,
		},
		{
			// Malformed keys are skipped, not fatal.
			"uid": 2, "hotkey": "garbage", "coldkey": "garbage",
			"stake": 99.0, "active": true,
		},
	}

	client, err := NewSubstrateClient(ctx, SubstrateConfig{
		Endpoint:  startNode(t, neurons),
		Network:   "finney",
		SubnetUID: 18,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	snap, err := client.FetchRoster(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(snap.Miners) != 2 {
		t.Fatalf("expected 2 miners (garbage skipped), got %d", len(snap.Miners))
	}

	m := snap.Miners[0]
	if m.UID != 0 || m.Hotkey != hot || m.Stake != 1200.5 || m.Rank != 3 {
		t.Errorf("unexpected miner 0: %+v", m)
	}
	if m.IP != "1.2.3.4" || m.Port != 8091 {
		t.Errorf("expected axon address, got %s:%d", m.IP, m.Port)
	}

	inactive := snap.Miners[1]
	if inactive.Active || inactive.IP != "" {
		t.Errorf("inactive miner should carry no address: %+v", inactive)
	}

	if snap.Network != "finney" || snap.SubnetUID != 18 {
		t.Errorf("unexpected snapshot identity: %+v", snap)
	}
}

func TestSubstrateRPCError(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32601, Message: "method not found"},
		}
		_ = conn.WriteJSON(resp)
	}))
	defer server.Close()

	client, err := NewSubstrateClient(ctx, SubstrateConfig{
		Endpoint:  "ws" + strings.TrimPrefix(server.URL, "http"),
		Network:   "finney",
		SubnetUID: 18,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.FetchRoster(ctx); err == nil {
		t.Fatalf("expected RPC error")
	}
}

func TestSubstrateDialFailure(t *testing.T) {
	ctx := context.Background()
	if _, err := NewSubstrateClient(ctx, SubstrateConfig{
		Endpoint: "ws://127.0.0.1:1/rpc",
	}); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestSubstrateCallAfterClose(t *testing.T) {
	ctx := context.Background()

	client, err := NewSubstrateClient(ctx, SubstrateConfig{
		Endpoint: startNode(t, []map[string]any{}),
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if _, err := client.FetchRoster(ctx); err == nil {
		t.Fatalf("expected error after close")
	}
}
