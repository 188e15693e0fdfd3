// Package protocol implements the line-delimited JSON command loop that
// bridges the host process to the subnet. One request is processed to
// completion before the next line is read; malformed input is answered
// with an error frame and never kills the loop.
package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"subnet-bridge/internal/directory"
	"subnet-bridge/internal/ledger"
	"subnet-bridge/internal/metrics"
	"subnet-bridge/internal/orchestrator"
	"subnet-bridge/internal/ss58"
)

// ErrNotInitialized is returned for any action issued before a successful
// initialize.
var ErrNotInitialized = errors.New("bridge not initialized")

// maxLineBytes bounds a single request line.
const maxLineBytes = 1 << 20

var validate = validator.New()

// Options for creating a Handler.
type Options struct {
	In  io.Reader
	Out io.Writer

	Directory    *directory.Directory
	Orchestrator *orchestrator.Orchestrator
	Ledger       ledger.Client
	Metrics      *metrics.Recorder // optional

	// RefreshTimeout bounds one roster refresh.
	RefreshTimeout time.Duration

	Logger zerolog.Logger
}

// session holds the mutable wallet/connection state established by
// initialize and torn down on close.
type session struct {
	initialized   bool
	walletName    string
	walletHotkey  string
	walletAddress string
}

// Handler runs the protocol state machine over one input/output pair.
type Handler struct {
	in  *bufio.Scanner
	out *json.Encoder

	directory    *directory.Directory
	orchestrator *orchestrator.Orchestrator
	ledger       ledger.Client
	recorder     *metrics.Recorder

	refreshTimeout time.Duration
	sess           session
	log            zerolog.Logger
}

// New creates a Handler.
func New(opts Options) *Handler {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}
	scanner := bufio.NewScanner(opts.In)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	return &Handler{
		in:             scanner,
		out:            json.NewEncoder(opts.Out),
		directory:      opts.Directory,
		orchestrator:   opts.Orchestrator,
		ledger:         opts.Ledger,
		recorder:       opts.Metrics,
		refreshTimeout: opts.RefreshTimeout,
		log:            opts.Logger.With().Str("component", "protocol").Logger(),
	}
}

// Run emits the ready frame and processes requests until close, EOF or an
// unrecoverable input failure. All shutdown paths release the ledger
// connection; the returned error reflects only input-stream failure.
func (h *Handler) Run(ctx context.Context) error {
	defer h.shutdown()

	ready := &readyFrame{Message: "subnet bridge ready"}
	ready.setHeader(TypeReady, true, nil, "")
	if err := h.out.Encode(ready); err != nil {
		return fmt.Errorf("write ready: %w", err)
	}

	for h.in.Scan() {
		line := h.in.Bytes()

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			h.log.Warn().Err(err).Msg("malformed request line")
			h.writeError(TypeError, nil, fmt.Errorf("invalid JSON: %v", err))
			continue
		}

		closing := h.dispatch(ctx, line, &env)
		if closing {
			h.log.Info().Msg("close requested")
			return nil
		}
	}

	if err := h.in.Err(); err != nil {
		h.log.Error().Err(err).Msg("input stream failed")
		return fmt.Errorf("read input: %w", err)
	}
	h.log.Info().Msg("input stream closed")
	return nil
}

// dispatch routes one parsed request and writes exactly one response.
// The returned flag is true when the host requested a close.
func (h *Handler) dispatch(ctx context.Context, line []byte, env *envelope) bool {
	var (
		resp    frame
		err     error
		closing bool
	)

	switch env.Action {
	case "initialize":
		resp, err = h.handleInitialize(ctx, line)
	case "get_top_miners":
		resp, err = h.handleTopMiners(ctx, line)
	case "query_predictions":
		resp, err = h.handleQueryPredictions(ctx, line)
	case "get_network_stats":
		resp, err = h.handleNetworkStats(ctx)
	case "close":
		resp, err = h.handleClose()
		closing = err == nil
	default:
		err = fmt.Errorf("unknown action: %q", env.Action)
	}

	if h.recorder != nil {
		h.recorder.RecordRequest(env.Action, err == nil)
	}

	if err != nil {
		h.writeError(TypeResponse, env.RequestID, err)
		return false
	}
	resp.setHeader(TypeResponse, true, env.RequestID, "")
	h.write(resp)
	return closing
}

// parseParams decodes the request line into an action parameter struct,
// applies defaults and validates it.
func parseParams(line []byte, params any) error {
	if err := json.Unmarshal(line, params); err != nil {
		return fmt.Errorf("invalid parameters: %v", err)
	}
	if err := defaults.Set(params); err != nil {
		return fmt.Errorf("apply parameter defaults: %v", err)
	}
	if err := validate.Struct(params); err != nil {
		return fmt.Errorf("invalid parameters: %v", err)
	}
	return nil
}

func (h *Handler) handleInitialize(ctx context.Context, line []byte) (frame, error) {
	var params initializeParams
	if err := parseParams(line, &params); err != nil {
		return nil, err
	}

	if err := h.refresh(ctx); err != nil {
		return nil, err
	}
	stats, err := h.directory.Stats()
	if err != nil {
		return nil, err
	}

	addr, err := ss58.DeriveAddress([]byte("wallet/" + params.WalletName + "/" + params.WalletHotkey))
	if err != nil {
		return nil, fmt.Errorf("derive wallet address: %w", err)
	}
	h.sess = session{
		initialized:   true,
		walletName:    params.WalletName,
		walletHotkey:  params.WalletHotkey,
		walletAddress: addr,
	}

	h.log.Info().
		Str("wallet", params.WalletName).
		Str("hotkey", params.WalletHotkey).
		Str("address", addr).
		Int("subnet", stats.SubnetUID).
		Msg("session initialized")

	return &initializeResponse{
		Message:      fmt.Sprintf("Initialized connection to subnet %d", stats.SubnetUID),
		TotalMiners:  stats.TotalMiners,
		ActiveMiners: stats.ActiveMiners,
		Network:      stats.Network,
	}, nil
}

func (h *Handler) handleTopMiners(ctx context.Context, line []byte) (frame, error) {
	if !h.sess.initialized {
		return nil, ErrNotInitialized
	}
	var params topMinersParams
	if err := parseParams(line, &params); err != nil {
		return nil, err
	}

	if err := h.refresh(ctx); err != nil {
		return nil, err
	}
	miners, totalActive, err := h.directory.Rank(*params.TopK)
	if err != nil {
		return nil, err
	}

	return &topMinersResponse{
		Miners:      miners,
		TotalActive: totalActive,
		TopK:        len(miners),
	}, nil
}

func (h *Handler) handleQueryPredictions(ctx context.Context, line []byte) (frame, error) {
	if !h.sess.initialized {
		return nil, ErrNotInitialized
	}
	var params queryParams
	if err := parseParams(line, &params); err != nil {
		return nil, err
	}

	if err := h.refresh(ctx); err != nil {
		return nil, err
	}
	result, err := h.orchestrator.QueryPredictions(ctx, params.Symbols, *params.TopK)
	if err != nil {
		return nil, err
	}

	return &queryResponse{
		Predictions:       result.Predictions,
		QueriedMiners:     result.QueriedMiners,
		SuccessfulQueries: result.SuccessfulQueries,
		Timestamp:         result.Timestamp,
	}, nil
}

func (h *Handler) handleNetworkStats(ctx context.Context) (frame, error) {
	if !h.sess.initialized {
		return nil, ErrNotInitialized
	}
	if err := h.refresh(ctx); err != nil {
		return nil, err
	}
	stats, err := h.directory.Stats()
	if err != nil {
		return nil, err
	}
	return &networkStatsResponse{NetworkStats: *stats}, nil
}

func (h *Handler) handleClose() (frame, error) {
	h.sess = session{}
	return &closeResponse{Message: "Bridge connections closed"}, nil
}

// refresh runs one bounded roster refresh off the handler goroutine and
// awaits it. Once a snapshot exists, a failed refresh downgrades to a
// warning and the stale snapshot keeps serving.
func (h *Handler) refresh(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, h.refreshTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- h.directory.Refresh(rctx)
	}()

	// Waiting on rctx directly keeps the bound even if the ledger client
	// ignores its context.
	var err error
	select {
	case err = <-done:
	case <-rctx.Done():
		err = rctx.Err()
	}

	if err != nil {
		if h.directory.Initialized() {
			h.log.Warn().Err(err).Msg("refresh failed, serving stale roster")
			return nil
		}
		return err
	}

	if h.recorder != nil {
		if snap := h.directory.Snapshot(); snap != nil {
			h.recorder.SetActiveMiners(snap.ActiveCount())
		}
	}
	return nil
}

// writeError emits a failure frame. Parse failures are error-typed and
// carry no request id; dispatch failures echo the originating one.
func (h *Handler) writeError(frameType string, requestID json.RawMessage, err error) {
	var hdr Header
	hdr.setHeader(frameType, false, requestID, err.Error())
	h.write(&hdr)
}

func (h *Handler) write(resp frame) {
	if err := h.out.Encode(resp); err != nil {
		h.log.Error().Err(err).Msg("write response failed")
	}
}

// shutdown releases directory and transport resources.
func (h *Handler) shutdown() {
	if err := h.ledger.Close(); err != nil {
		h.log.Warn().Err(err).Msg("ledger close failed")
	}
}
