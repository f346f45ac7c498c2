package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KOMKZ/go-yogan-settings/ipc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cluster describes the process topology in multi-process mode
type Cluster interface {
	IsPrimary() bool
	// Hub is used by the primary to serve workers
	Hub() ipc.Hub
	// Endpoint is used by a worker to reach the primary
	Endpoint() ipc.Endpoint
}

// Role is chosen once per Initialize
type Role int

const (
	RoleStandalone Role = iota
	RolePrimary
	RoleWorker
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleWorker:
		return "worker"
	default:
		return "standalone"
	}
}

// HandshakeState is the worker side of the request/response exchange
type HandshakeState int

const (
	HandshakeIdle HandshakeState = iota
	HandshakeAwaitingResponse
	HandshakeFulfilled
	HandshakeTimedOut
	HandshakeCanceled
)

func (s HandshakeState) String() string {
	switch s {
	case HandshakeAwaitingResponse:
		return "awaiting_response"
	case HandshakeFulfilled:
		return "fulfilled"
	case HandshakeTimedOut:
		return "timed_out"
	case HandshakeCanceled:
		return "canceled"
	default:
		return "idle"
	}
}

// armResponder serves worker requests from the store. A previous responder
// of this manager is removed first.
func (m *Manager) armResponder(hub ipc.Hub, onDrop func(ReplyDrop)) {
	m.respMu.Lock()
	defer m.respMu.Unlock()

	if m.stopResponder != nil {
		m.stopResponder()
	}
	m.stopResponder = hub.Subscribe(func(from ipc.Peer, msg ipc.Message) {
		if msg.Type != ipc.TypeGetSettingsRequest {
			return
		}
		m.reply(context.Background(), from, msg, onDrop)
	})
}

func (m *Manager) reply(ctx context.Context, to ipc.Peer, req ipc.Message, onDrop func(ReplyDrop)) {
	m.metrics.recordWorkerRequest(ctx)

	drop := func(reason string, err error) {
		m.logger.WarnCtx(ctx, "settings reply dropped",
			zap.String("worker_id", to.ID()),
			zap.String("request_id", req.RequestID),
			zap.String("reason", reason),
			zap.Error(err))
		m.metrics.recordReplyDropped(ctx, reason)
		if onDrop != nil {
			onDrop(ReplyDrop{WorkerID: to.ID(), RequestID: req.RequestID, Reason: err})
		}
	}

	if !to.Connected() {
		drop("disconnected", ipc.ErrClosed)
		return
	}

	value, source := m.store.snapshot()
	payload, err := json.Marshal(value)
	if err != nil {
		drop("encode", ipc.ErrEncode.Wrap(err))
		return
	}

	resp := ipc.Message{
		Type:           ipc.TypeGetSettingsResponse,
		RequestID:      req.RequestID,
		Settings:       payload,
		SettingsSource: source,
	}
	if err := to.Send(ctx, resp); err != nil {
		drop("send", ErrTransport.Wrap(err))
		return
	}
	m.logger.DebugCtx(ctx, "settings sent to worker",
		zap.String("worker_id", to.ID()),
		zap.String("request_id", req.RequestID))
}

// requestSettings asks the primary once and waits for the matching response,
// the timeout or ctx, whichever comes first
func (m *Manager) requestSettings(ctx context.Context, ep ipc.Endpoint, timeout time.Duration) (value any, source string, err error) {
	requestID := uuid.NewString()
	log := m.logger.With(zap.String("request_id", requestID))
	state := HandshakeIdle
	start := time.Now()
	defer func() {
		m.metrics.recordHandshake(ctx, time.Since(start), state)
		log.DebugCtx(ctx, "settings handshake finished", zap.Stringer("state", state))
	}()

	// the listener exists before the request goes out
	responses := make(chan ipc.Message, 1)
	unsubscribe := ep.Subscribe(func(msg ipc.Message) {
		if msg.Type != ipc.TypeGetSettingsResponse {
			return
		}
		if msg.RequestID != "" && msg.RequestID != requestID {
			return
		}
		select {
		case responses <- msg:
		default:
		}
	})
	defer unsubscribe()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if err := ep.Send(ctx, ipc.Message{Type: ipc.TypeGetSettingsRequest, RequestID: requestID}); err != nil {
		return nil, "", ErrTransport.Wrapf(err, "send settings request failed")
	}
	state = HandshakeAwaitingResponse
	log.DebugCtx(ctx, "settings requested from primary", zap.Stringer("state", state))

	select {
	case msg := <-responses:
		if len(msg.Settings) == 0 {
			return nil, "", ErrTransport.WithMsg("settings response without settings")
		}
		if err := json.Unmarshal(msg.Settings, &value); err != nil {
			return nil, "", ErrTransport.Wrapf(err, "malformed settings response")
		}
		state = HandshakeFulfilled
		return value, msg.SettingsSource, nil
	case <-timer.C:
		state = HandshakeTimedOut
		return nil, "", ErrSettingsRequestTimeout.WithMsgf("no settings from primary within %s", timeout)
	case <-ctx.Done():
		state = HandshakeCanceled
		return nil, "", ctx.Err()
	}
}
