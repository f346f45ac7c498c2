package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"

	"github.com/KOMKZ/go-yogan-settings/logger"
	"go.uber.org/zap"
)

// maxFrameSize caps one encoded message; a longer line ends the stream
const maxFrameSize = 16 << 20

// StreamOption configures stream hubs and endpoints
type StreamOption func(*streamConfig)

type streamConfig struct {
	logger *logger.CtxZapLogger
}

// WithStreamLogger sets where malformed frames are reported
func WithStreamLogger(l *logger.CtxZapLogger) StreamOption {
	return func(c *streamConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newStreamConfig(opts []StreamOption) streamConfig {
	cfg := streamConfig{logger: logger.GetLogger("ipc")}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// streamConn exchanges newline-delimited JSON messages over a reader/writer pair
type streamConn struct {
	enc    *json.Encoder
	wmu    sync.Mutex
	w      io.Writer
	r      io.Reader
	logger *logger.CtxZapLogger
	closed atomic.Bool
	done   chan struct{}
}

func newStreamConn(r io.Reader, w io.Writer, log *logger.CtxZapLogger) *streamConn {
	return &streamConn{enc: json.NewEncoder(w), w: w, r: r, logger: log, done: make(chan struct{})}
}

func (c *streamConn) send(msg Message) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.enc.Encode(msg); err != nil {
		return ErrPublish.Wrap(err)
	}
	return nil
}

// readLoop delivers one message per line until the reader fails or hits EOF;
// the conn is closed afterwards. Lines that do not decode are skipped.
func (c *streamConn) readLoop(deliver func(Message)) {
	defer func() {
		c.closed.Store(true)
		close(c.done)
	}()

	sc := bufio.NewScanner(c.r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			c.logger.Warn("discarding malformed ipc message", zap.Int("size", len(line)), zap.Error(err))
			continue
		}
		deliver(msg)
	}
	if err := sc.Err(); err != nil {
		c.logger.Debug("ipc stream ended", zap.Error(err))
	}
}

func (c *streamConn) close() error {
	c.closed.Store(true)
	var err error
	if closer, ok := c.w.(io.Closer); ok {
		err = closer.Close()
	}
	if closer, ok := c.r.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// StreamEndpoint is a worker Endpoint over a stream pair, typically the pipes a
// supervisor hands to a child process
type StreamEndpoint struct {
	conn *streamConn
	fan  *fanout[Message]
}

// NewStreamEndpoint starts reading r; messages are written to w
func NewStreamEndpoint(r io.Reader, w io.Writer, opts ...StreamOption) *StreamEndpoint {
	cfg := newStreamConfig(opts)
	e := &StreamEndpoint{conn: newStreamConn(r, w, cfg.logger), fan: newFanout[Message](false)}
	go e.conn.readLoop(e.fan.publish)
	return e
}

// Send implements Endpoint
func (e *StreamEndpoint) Send(_ context.Context, msg Message) error {
	return e.conn.send(msg)
}

// Subscribe implements Endpoint
func (e *StreamEndpoint) Subscribe(fn func(msg Message)) func() {
	return e.fan.subscribe(fn)
}

// Done is closed when the primary side of the stream goes away
func (e *StreamEndpoint) Done() <-chan struct{} {
	return e.conn.done
}

// Close closes both directions
func (e *StreamEndpoint) Close() error {
	return e.conn.close()
}

// StreamHub is a primary Hub over one stream pair per worker.
// Worker messages that arrive before the first subscription are queued.
type StreamHub struct {
	fan    *fanout[delivery]
	logger *logger.CtxZapLogger
	mu     sync.RWMutex
	peers  map[string]*streamPeer
}

// NewStreamHub creates a hub with no workers
func NewStreamHub(opts ...StreamOption) *StreamHub {
	cfg := newStreamConfig(opts)
	return &StreamHub{fan: newFanout[delivery](true), logger: cfg.logger, peers: make(map[string]*streamPeer)}
}

// Subscribe implements Hub
func (h *StreamHub) Subscribe(fn func(from Peer, msg Message)) func() {
	return h.fan.subscribe(func(d delivery) { fn(d.from, d.msg) })
}

// Attach registers worker id reading from r and writing to w
func (h *StreamHub) Attach(id string, r io.Reader, w io.Writer) Peer {
	p := &streamPeer{id: id, conn: newStreamConn(r, w, h.logger.With(zap.String("worker_id", id)))}

	h.mu.Lock()
	h.peers[id] = p
	h.mu.Unlock()

	go p.conn.readLoop(func(msg Message) {
		msg.WorkerID = id
		h.fan.publish(delivery{from: p, msg: msg})
	})
	return p
}

// Detach closes and forgets worker id
func (h *StreamHub) Detach(id string) error {
	h.mu.Lock()
	p, ok := h.peers[id]
	delete(h.peers, id)
	h.mu.Unlock()

	if !ok {
		return nil
	}
	return p.conn.close()
}

// Peers lists the attached worker ids
func (h *StreamHub) Peers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.peers))
	for id := range h.peers {
		ids = append(ids, id)
	}
	return ids
}

type streamPeer struct {
	id   string
	conn *streamConn
}

func (p *streamPeer) ID() string { return p.id }

func (p *streamPeer) Connected() bool { return !p.conn.closed.Load() }

func (p *streamPeer) Send(_ context.Context, msg Message) error {
	return p.conn.send(msg)
}
