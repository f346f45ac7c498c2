package ipc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-settings/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisPrefix namespaces the pub/sub channels
const DefaultRedisPrefix = "yogan:settings"

// peerCheckTimeout bounds the PUBSUB NUMSUB round trip behind Peer.Connected
const peerCheckTimeout = 500 * time.Millisecond

func primaryChannel(prefix string) string {
	return prefix + ":primary"
}

func workerChannel(prefix, workerID string) string {
	return prefix + ":worker:" + workerID
}

// RedisHub is a primary Hub over Redis pub/sub. Requests published before the
// hub subscribes are lost, so workers started too early time out.
type RedisHub struct {
	client redis.UniversalClient
	prefix string
	pubsub *redis.PubSub
	fan    *fanout[delivery]
	logger *logger.CtxZapLogger
	wg     sync.WaitGroup
}

// NewRedisHub subscribes to the primary channel under prefix
func NewRedisHub(ctx context.Context, client redis.UniversalClient, prefix string, log *logger.CtxZapLogger) (*RedisHub, error) {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if log == nil {
		log = logger.GetLogger("ipc")
	}

	ps := client.Subscribe(ctx, primaryChannel(prefix))
	// wait for the subscription confirmation so no request is missed after return
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, ErrPublish.Wrapf(err, "subscribe %s failed", primaryChannel(prefix))
	}

	h := &RedisHub{
		client: client,
		prefix: prefix,
		pubsub: ps,
		fan:    newFanout[delivery](true),
		logger: log,
	}
	h.wg.Add(1)
	go h.loop(ps.Channel())
	return h, nil
}

func (h *RedisHub) loop(ch <-chan *redis.Message) {
	defer h.wg.Done()
	for m := range ch {
		var msg Message
		if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
			h.logger.Warn("discarding malformed ipc message", zap.String("channel", m.Channel), zap.Error(err))
			continue
		}
		if msg.WorkerID == "" {
			h.logger.Warn("discarding ipc message without worker id", zap.String("type", msg.Type))
			continue
		}
		peer := &redisPeer{
			client:  h.client,
			id:      msg.WorkerID,
			channel: workerChannel(h.prefix, msg.WorkerID),
			timeout: peerCheckTimeout,
		}
		h.fan.publish(delivery{from: peer, msg: msg})
	}
}

// Subscribe implements Hub
func (h *RedisHub) Subscribe(fn func(from Peer, msg Message)) func() {
	return h.fan.subscribe(func(d delivery) { fn(d.from, d.msg) })
}

// Close stops listening
func (h *RedisHub) Close() error {
	err := h.pubsub.Close()
	h.wg.Wait()
	return err
}

type redisPeer struct {
	client  redis.UniversalClient
	id      string
	channel string
	timeout time.Duration
}

func (p *redisPeer) ID() string { return p.id }

// Connected asks Redis whether anyone still listens on the worker channel.
// No answer within the timeout counts as disconnected.
func (p *redisPeer) Connected() bool {
	timeout := p.timeout
	if timeout <= 0 {
		timeout = peerCheckTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// the client honors its own read timeout, not ctx, while waiting on a reply
	answer := make(chan bool, 1)
	go func() {
		counts, err := p.client.PubSubNumSub(ctx, p.channel).Result()
		answer <- err == nil && counts[p.channel] > 0
	}()

	select {
	case ok := <-answer:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (p *redisPeer) Send(ctx context.Context, msg Message) error {
	return publish(ctx, p.client, p.channel, msg)
}

// RedisEndpoint is a worker Endpoint over Redis pub/sub
type RedisEndpoint struct {
	client   redis.UniversalClient
	prefix   string
	workerID string
	pubsub   *redis.PubSub
	fan      *fanout[Message]
	wg       sync.WaitGroup
}

// NewRedisEndpoint subscribes to the worker's reply channel
func NewRedisEndpoint(ctx context.Context, client redis.UniversalClient, prefix, workerID string) (*RedisEndpoint, error) {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	ps := client.Subscribe(ctx, workerChannel(prefix, workerID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, ErrPublish.Wrapf(err, "subscribe %s failed", workerChannel(prefix, workerID))
	}

	e := &RedisEndpoint{
		client:   client,
		prefix:   prefix,
		workerID: workerID,
		pubsub:   ps,
		fan:      newFanout[Message](false),
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for m := range ps.Channel() {
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				continue
			}
			e.fan.publish(msg)
		}
	}()
	return e, nil
}

// Send implements Endpoint
func (e *RedisEndpoint) Send(ctx context.Context, msg Message) error {
	msg.WorkerID = e.workerID
	return publish(ctx, e.client, primaryChannel(e.prefix), msg)
}

// Subscribe implements Endpoint
func (e *RedisEndpoint) Subscribe(fn func(msg Message)) func() {
	return e.fan.subscribe(fn)
}

// Close unsubscribes; the primary sees the worker as disconnected afterwards
func (e *RedisEndpoint) Close() error {
	err := e.pubsub.Close()
	e.wg.Wait()
	return err
}

func publish(ctx context.Context, client redis.UniversalClient, channel string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return ErrEncode.Wrap(err)
	}
	if err := client.Publish(ctx, channel, payload).Err(); err != nil {
		return ErrPublish.Wrap(err)
	}
	return nil
}
