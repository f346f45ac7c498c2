package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-settings/ipc"
	"github.com/KOMKZ/go-yogan-settings/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	primary  bool
	hub      ipc.Hub
	endpoint ipc.Endpoint
}

func (c *fakeCluster) IsPrimary() bool        { return c.primary }
func (c *fakeCluster) Hub() ipc.Hub           { return c.hub }
func (c *fakeCluster) Endpoint() ipc.Endpoint { return c.endpoint }

// recordingHub lets a test deliver requests from hand-made peers
type recordingHub struct {
	mu   sync.Mutex
	subs map[int]func(ipc.Peer, ipc.Message)
	next int
}

func newRecordingHub() *recordingHub {
	return &recordingHub{subs: make(map[int]func(ipc.Peer, ipc.Message))}
}

func (h *recordingHub) Subscribe(fn func(ipc.Peer, ipc.Message)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *recordingHub) active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *recordingHub) deliver(from ipc.Peer, msg ipc.Message) {
	h.mu.Lock()
	fns := make([]func(ipc.Peer, ipc.Message), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(from, msg)
	}
}

type fakePeer struct {
	id        string
	connected bool
	sendErr   error
	sent      []ipc.Message
}

func (p *fakePeer) ID() string      { return p.id }
func (p *fakePeer) Connected() bool { return p.connected }
func (p *fakePeer) Send(_ context.Context, msg ipc.Message) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, msg)
	return nil
}

// silentEndpoint accepts requests and never answers
type silentEndpoint struct{}

func (silentEndpoint) Send(context.Context, ipc.Message) error { return nil }
func (silentEndpoint) Subscribe(func(ipc.Message)) func()     { return func() {} }

func primaryOptions(hub ipc.Hub) Options {
	return Options{
		Source:       "testdata/settings_good.json",
		Schema:       "testdata/settings.schema.json",
		MultiProcess: true,
		Cluster:      &fakeCluster{primary: true, hub: hub},
		Args:         []string{},
	}
}

func TestCoordinator_PrimaryRepliesFromStore(t *testing.T) {
	hub := newRecordingHub()
	m := NewManager(WithLogger(logger.NewNop()))

	_, err := m.Initialize(context.Background(), primaryOptions(hub))
	require.NoError(t, err)

	peer := &fakePeer{id: "w1", connected: true}
	hub.deliver(peer, ipc.Message{Type: ipc.TypeGetSettingsRequest, RequestID: "r1"})
	hub.deliver(peer, ipc.Message{Type: "somethingElse"})

	require.Len(t, peer.sent, 1)
	resp := peer.sent[0]
	assert.Equal(t, ipc.TypeGetSettingsResponse, resp.Type)
	assert.Equal(t, "r1", resp.RequestID)
	assert.JSONEq(t, `{"port":8080}`, string(resp.Settings))
	assert.Equal(t, m.GetSource(), resp.SettingsSource)
}

func TestCoordinator_ReplyDropped(t *testing.T) {
	hub := newRecordingHub()
	log, logs := logger.NewTestLogger("settings")
	m := NewManager(WithLogger(log))

	var drops []ReplyDrop
	opts := primaryOptions(hub)
	opts.OnReplyDropped = func(d ReplyDrop) { drops = append(drops, d) }
	_, err := m.Initialize(context.Background(), opts)
	require.NoError(t, err)

	gone := &fakePeer{id: "gone", connected: false}
	hub.deliver(gone, ipc.Message{Type: ipc.TypeGetSettingsRequest, RequestID: "r1"})

	broken := &fakePeer{id: "broken", connected: true, sendErr: errors.New("broken pipe")}
	hub.deliver(broken, ipc.Message{Type: ipc.TypeGetSettingsRequest, RequestID: "r2"})

	require.Len(t, drops, 2)
	assert.Equal(t, "gone", drops[0].WorkerID)
	assert.ErrorIs(t, drops[0].Reason, ipc.ErrClosed)
	assert.Equal(t, "r2", drops[1].RequestID)
	assert.ErrorIs(t, drops[1].Reason, ErrTransport)

	assert.Empty(t, gone.sent)
	assert.Equal(t, 2, logs.CountLogs("WARN"))
	assert.True(t, logs.HasLogWithField("WARN", "settings reply dropped", "reason", "disconnected"))
}

func TestCoordinator_ReinitializeReplacesResponder(t *testing.T) {
	hub := newRecordingHub()
	m := NewManager(WithLogger(logger.NewNop()))

	for i := 0; i < 3; i++ {
		_, err := m.Initialize(context.Background(), primaryOptions(hub))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, hub.active())

	m.Close()
	assert.Equal(t, 0, hub.active())
}

func TestCoordinator_NoResponderOnFailure(t *testing.T) {
	hub := newRecordingHub()
	m := NewManager(WithLogger(logger.NewNop()))

	opts := primaryOptions(hub)
	opts.Source = "testdata/settings_bad.json"
	_, err := m.Initialize(context.Background(), opts)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, hub.active())
	assert.False(t, m.Store().Loaded())
}

func TestCoordinator_WorkerHandshake(t *testing.T) {
	hub := ipc.NewMemoryHub()
	primary := NewManager(WithLogger(logger.NewNop()))
	_, err := primary.Initialize(context.Background(), primaryOptions(hub))
	require.NoError(t, err)

	log, logs := logger.NewTestLogger("settings")
	worker := NewManager(WithLogger(log))
	value, err := worker.Initialize(context.Background(), Options{
		MultiProcess: true,
		Cluster:      &fakeCluster{endpoint: hub.Connect("w1")},
		// a worker never resolves or loads; this source would fail
		Source: "testdata/missing.json",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"port": float64(8080)}, value)
	assert.Equal(t, primary.Get(), worker.Get())
	assert.Equal(t, primary.GetSource(), worker.GetSource())
	assert.True(t, logs.HasLogWithField("DEBUG", "settings source resolved", "origin", string(OriginPrimary)))
}

func TestCoordinator_WorkerBeforePrimary(t *testing.T) {
	// the memory hub queues the early request until the primary subscribes
	hub := ipc.NewMemoryHub()
	worker := NewManager(WithLogger(logger.NewNop()))

	done := make(chan error, 1)
	go func() {
		_, err := worker.Initialize(context.Background(), Options{
			MultiProcess:   true,
			Cluster:        &fakeCluster{endpoint: hub.Connect("w1")},
			RequestTimeout: 5 * time.Second,
		})
		done <- err
	}()

	ep := hub.Connect("w1")
	require.Eventually(t, func() bool { return ep.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	primary := NewManager(WithLogger(logger.NewNop()))
	_, err := primary.Initialize(context.Background(), primaryOptions(hub))
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"port": float64(8080)}, worker.Get())
	case <-time.After(5 * time.Second):
		t.Fatal("worker never finished")
	}
}

func TestCoordinator_WorkerTimeout(t *testing.T) {
	ep := ipc.NewMemoryHub().Connect("w1")
	log, logs := logger.NewTestLogger("settings")
	m := NewManager(WithLogger(log))

	start := time.Now()
	_, err := m.Initialize(context.Background(), Options{
		MultiProcess:   true,
		Cluster:        &fakeCluster{endpoint: ep},
		RequestTimeout: 50 * time.Millisecond,
	})
	assert.ErrorIs(t, err, ErrSettingsRequestTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.False(t, m.Store().Loaded())
	assert.Equal(t, 0, ep.Subscribers())
	assert.True(t, logs.HasLogWithField("DEBUG", "settings handshake finished", "state", "timed_out"))
}

func TestCoordinator_WorkerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(WithLogger(logger.NewNop()))
	_, err := m.Initialize(ctx, Options{
		MultiProcess: true,
		Cluster:      &fakeCluster{endpoint: silentEndpoint{}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCoordinator_IgnoresForeignResponses(t *testing.T) {
	m := NewManager(WithLogger(logger.NewNop()))
	ep := &scriptedEndpoint{reply: func(req ipc.Message) []ipc.Message {
		return []ipc.Message{
			{Type: ipc.TypeGetSettingsResponse, RequestID: "someone-else", Settings: []byte(`{"port":1}`)},
			{Type: ipc.TypeGetSettingsRequest, RequestID: req.RequestID},
			{Type: ipc.TypeGetSettingsResponse, RequestID: req.RequestID, Settings: []byte(`{"port":2}`), SettingsSource: "s"},
		}
	}}

	value, source, err := m.requestSettings(context.Background(), ep, time.Second)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"port": float64(2)}, value)
	assert.Equal(t, "s", source)
}

func TestCoordinator_MalformedResponse(t *testing.T) {
	m := NewManager(WithLogger(logger.NewNop()))
	ep := &scriptedEndpoint{reply: func(req ipc.Message) []ipc.Message {
		return []ipc.Message{{Type: ipc.TypeGetSettingsResponse, RequestID: req.RequestID}}
	}}

	_, _, err := m.requestSettings(context.Background(), ep, time.Second)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestCoordinator_MissingChannels(t *testing.T) {
	m := NewManager(WithLogger(logger.NewNop()))

	_, err := m.Initialize(context.Background(), Options{MultiProcess: true, Cluster: &fakeCluster{}})
	assert.ErrorIs(t, err, ErrTransport)

	_, err = m.Initialize(context.Background(), Options{MultiProcess: true, Cluster: &fakeCluster{primary: true}, Source: "testdata/settings_good.json"})
	assert.ErrorIs(t, err, ErrTransport)
	assert.False(t, m.Store().Loaded())
}

// scriptedEndpoint answers every request synchronously with the scripted messages
type scriptedEndpoint struct {
	mu    sync.Mutex
	subs  []func(ipc.Message)
	reply func(req ipc.Message) []ipc.Message
}

func (e *scriptedEndpoint) Subscribe(fn func(ipc.Message)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
	return func() {}
}

func (e *scriptedEndpoint) Send(_ context.Context, msg ipc.Message) error {
	e.mu.Lock()
	subs := append([]func(ipc.Message){}, e.subs...)
	e.mu.Unlock()
	for _, out := range e.reply(msg) {
		for _, fn := range subs {
			fn(out)
		}
	}
	return nil
}

func TestHandshakeState_String(t *testing.T) {
	assert.Equal(t, "idle", HandshakeIdle.String())
	assert.Equal(t, "awaiting_response", HandshakeAwaitingResponse.String())
	assert.Equal(t, "fulfilled", HandshakeFulfilled.String())
	assert.Equal(t, "timed_out", HandshakeTimedOut.String())
	assert.Equal(t, "canceled", HandshakeCanceled.String())
	assert.Equal(t, "primary", RolePrimary.String())
	assert.Equal(t, "worker", RoleWorker.String())
	assert.Equal(t, "standalone", RoleStandalone.String())
}
