// Package cluster describes the primary/worker process topology used by
// multi-process settings distribution.
//
// The primary owns a stream hub. Workers are child processes started by a
// Supervisor; each inherits a pipe pair as file descriptors 3 (primary to
// worker) and 4 (worker to primary) and finds its id in YOGAN_SETTINGS_WORKER_ID.
package cluster

import (
	"fmt"
	"os"
	"sync"

	"github.com/KOMKZ/go-yogan-settings/errcode"
	"github.com/KOMKZ/go-yogan-settings/ipc"
)

const (
	// EnvWorkerID is set by the Supervisor for every worker it starts
	EnvWorkerID = "YOGAN_SETTINGS_WORKER_ID"

	workerInFD  = 3
	workerOutFD = 4
)

var (
	// ErrWorkerChannel the inherited descriptors are missing or unusable
	ErrWorkerChannel = errcode.Register(errcode.New(23, 1, "cluster", "error.cluster.worker_channel", "worker channel unavailable"))
	// ErrSpawn a worker process could not be started
	ErrSpawn = errcode.Register(errcode.New(23, 2, "cluster", "error.cluster.spawn", "worker spawn failed"))
	// ErrWorkerExited a worker ended with an error
	ErrWorkerExited = errcode.Register(errcode.New(23, 3, "cluster", "error.cluster.worker_exited", "worker exited"))
)

// Node is this process's place in the topology
type Node struct {
	workerID string
	hub      *ipc.StreamHub
	endpoint ipc.Endpoint
	closer   func() error
}

// NewPrimary creates a primary node; a nil hub gets a fresh one
func NewPrimary(hub *ipc.StreamHub) *Node {
	if hub == nil {
		hub = ipc.NewStreamHub()
	}
	return &Node{hub: hub}
}

// NewWorker creates a worker node talking to the primary through ep
func NewWorker(id string, ep ipc.Endpoint) *Node {
	return &Node{workerID: id, endpoint: ep}
}

// IsPrimary reports whether this process serves settings
func (n *Node) IsPrimary() bool {
	return n.workerID == ""
}

// WorkerID is empty on the primary
func (n *Node) WorkerID() string {
	return n.workerID
}

// Hub returns the worker hub, nil on a worker
func (n *Node) Hub() ipc.Hub {
	if n.hub == nil {
		return nil
	}
	return n.hub
}

// StreamHub returns the concrete hub the Supervisor attaches workers to
func (n *Node) StreamHub() *ipc.StreamHub {
	return n.hub
}

// Endpoint returns the channel to the primary, nil on the primary
func (n *Node) Endpoint() ipc.Endpoint {
	return n.endpoint
}

// Close releases the worker channel
func (n *Node) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}

var current = sync.OnceValues(func() (*Node, error) {
	return detect(os.Getenv, openFD)
})

// Current returns this process's node. The role is detected on first call.
func Current() (*Node, error) {
	return current()
}

func detect(getenv func(string) string, open func(fd uintptr, name string) (*os.File, error)) (*Node, error) {
	id := getenv(EnvWorkerID)
	if id == "" {
		return NewPrimary(nil), nil
	}

	in, err := open(workerInFD, "settings-ipc-in")
	if err != nil {
		return nil, ErrWorkerChannel.Wrap(err)
	}
	out, err := open(workerOutFD, "settings-ipc-out")
	if err != nil {
		_ = in.Close()
		return nil, ErrWorkerChannel.Wrap(err)
	}

	ep := ipc.NewStreamEndpoint(in, out)
	node := NewWorker(id, ep)
	node.closer = ep.Close
	return node, nil
}

func openFD(fd uintptr, name string) (*os.File, error) {
	f := os.NewFile(fd, name)
	if f == nil {
		return nil, fmt.Errorf("fd %d is invalid", fd)
	}
	if _, err := f.Stat(); err != nil {
		return nil, fmt.Errorf("fd %d: %w", fd, err)
	}
	return f, nil
}
