// Package ipc carries settings messages between a primary process and its workers.
//
// The primary side is a Hub: it delivers every worker message together with the
// Peer that sent it. The worker side is an Endpoint. Three transports are provided:
// in-memory (tests, goroutine "workers"), streams (pipes inherited by child
// processes) and Redis pub/sub.
package ipc

import (
	"context"
	"encoding/json"

	"github.com/KOMKZ/go-yogan-settings/errcode"
)

// Message types
const (
	TypeGetSettingsRequest  = "getSettingsRequest"
	TypeGetSettingsResponse = "getSettingsResponse"
)

// Message is the wire format of both request and response
type Message struct {
	Type           string          `json:"type"`
	RequestID      string          `json:"requestId,omitempty"`
	WorkerID       string          `json:"workerId,omitempty"`
	Settings       json.RawMessage `json:"settings,omitempty"`
	SettingsSource string          `json:"settingsSource,omitempty"`
}

// Peer is a worker as seen from the primary
type Peer interface {
	ID() string
	// Connected reports whether the worker can still receive messages
	Connected() bool
	Send(ctx context.Context, msg Message) error
}

// Hub is the primary side of the channel
type Hub interface {
	// Subscribe registers fn for every message from any worker.
	// The returned function removes the subscription.
	Subscribe(fn func(from Peer, msg Message)) (unsubscribe func())
}

// Endpoint is the worker side of the channel
type Endpoint interface {
	Send(ctx context.Context, msg Message) error
	Subscribe(fn func(msg Message)) (unsubscribe func())
}

var (
	// ErrClosed the channel or peer is closed
	ErrClosed = errcode.Register(errcode.New(22, 1, "ipc", "error.ipc.closed", "ipc channel closed"))
	// ErrEncode a message could not be encoded or decoded
	ErrEncode = errcode.Register(errcode.New(22, 2, "ipc", "error.ipc.encode", "ipc message encoding failed"))
	// ErrPublish the transport refused the message
	ErrPublish = errcode.Register(errcode.New(22, 3, "ipc", "error.ipc.publish", "ipc publish failed"))
)
