package ipc

import "sync"

// fanout delivers values to the current subscribers. With buffer set, values
// published while nobody listens are queued and handed to the next subscriber.
type fanout[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]func(T)
	pending []T
	buffer  bool
}

func newFanout[T any](buffer bool) *fanout[T] {
	return &fanout[T]{subs: make(map[uint64]func(T)), buffer: buffer}
}

func (f *fanout[T]) subscribe(fn func(T)) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs[id] = fn
	backlog := f.pending
	f.pending = nil
	f.mu.Unlock()

	for _, v := range backlog {
		fn(v)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *fanout[T]) publish(v T) {
	f.mu.Lock()
	if len(f.subs) == 0 {
		if f.buffer {
			f.pending = append(f.pending, v)
		}
		f.mu.Unlock()
		return
	}
	fns := make([]func(T), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (f *fanout[T]) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type delivery struct {
	from Peer
	msg  Message
}
