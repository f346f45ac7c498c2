package ipc

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryHub is an in-process Hub. Worker messages sent before the primary
// subscribes are queued, mimicking a transport that buffers early requests.
type MemoryHub struct {
	fan *fanout[delivery]
	mu  sync.Mutex
	eps map[string]*MemoryEndpoint
}

// NewMemoryHub creates an empty hub
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		fan: newFanout[delivery](true),
		eps: make(map[string]*MemoryEndpoint),
	}
}

// Subscribe implements Hub
func (h *MemoryHub) Subscribe(fn func(from Peer, msg Message)) func() {
	return h.fan.subscribe(func(d delivery) { fn(d.from, d.msg) })
}

// Connect returns the worker endpoint with the given id, creating it on first use
func (h *MemoryHub) Connect(id string) *MemoryEndpoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ep, ok := h.eps[id]; ok {
		return ep
	}
	ep := &MemoryEndpoint{id: id, hub: h, fan: newFanout[Message](false)}
	h.eps[id] = ep
	return ep
}

// MemoryEndpoint is the worker side of a MemoryHub
type MemoryEndpoint struct {
	id     string
	hub    *MemoryHub
	fan    *fanout[Message]
	closed atomic.Bool
	wg     sync.WaitGroup
}

// ID returns the worker id
func (e *MemoryEndpoint) ID() string {
	return e.id
}

// Send delivers msg to the primary asynchronously
func (e *MemoryEndpoint) Send(_ context.Context, msg Message) error {
	if e.closed.Load() {
		return ErrClosed
	}
	msg.WorkerID = e.id
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.hub.fan.publish(delivery{from: memoryPeer{e}, msg: msg})
	}()
	return nil
}

// Subscribe implements Endpoint; messages arriving with no subscriber are dropped
func (e *MemoryEndpoint) Subscribe(fn func(msg Message)) func() {
	return e.fan.subscribe(fn)
}

// Subscribers reports the number of active subscriptions
func (e *MemoryEndpoint) Subscribers() int {
	return e.fan.len()
}

// Close disconnects the worker; the primary sees Connected() == false afterwards
func (e *MemoryEndpoint) Close() error {
	e.closed.Store(true)
	return nil
}

// Flush waits for in-flight sends to reach the hub
func (e *MemoryEndpoint) Flush() {
	e.wg.Wait()
}

type memoryPeer struct {
	ep *MemoryEndpoint
}

func (p memoryPeer) ID() string { return p.ep.id }

func (p memoryPeer) Connected() bool { return !p.ep.closed.Load() }

func (p memoryPeer) Send(_ context.Context, msg Message) error {
	if p.ep.closed.Load() {
		return ErrClosed
	}
	go p.ep.fan.publish(msg)
	return nil
}
