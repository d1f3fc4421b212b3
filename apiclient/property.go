package apiclient

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by reads of a property cell whose client was closed.
var ErrClosed = errors.New("property closed")

// Lazy fetches a value on first use and keeps it. A failed fetch is not
// cached.
type Lazy[T any] struct {
	fetch func(ctx context.Context) (T, error)

	mu    sync.Mutex
	done  bool
	value T
}

func NewLazy[T any](fetch func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{fetch: fetch}
}

func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return l.value, nil
	}
	v, err := l.fetch(ctx)
	if err != nil {
		return v, err
	}
	l.value, l.done = v, true
	return v, nil
}

// ObservableProperty caches the latest value of an observable property.
// The first read starts one subscription; later reads return the cached
// value. Values arrive as V on the wire and are stored as T.
type ObservableProperty[V, T any] struct {
	transport Transport
	property  string
	decode    func(V) T

	started atomic.Bool
	lock    sync.Mutex
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	ready     chan struct{}
	readyOnce sync.Once

	value atomic.Pointer[T]
	err   atomic.Pointer[error]

	listenersMu sync.Mutex
	listeners   []func(T)

	closeOnce sync.Once
}

// NewObservableProperty creates a cell for property. No subscription is
// made until the first Get.
func NewObservableProperty[V, T any](t Transport, property string, decode func(V) T) *ObservableProperty[V, T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &ObservableProperty[V, T]{
		transport: t,
		property:  property,
		decode:    decode,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		ready:     make(chan struct{}),
	}
}

// Get returns the latest value, waiting for the first one if needed.
func (p *ObservableProperty[V, T]) Get(ctx context.Context) (T, error) {
	var zero T
	p.start()
	select {
	case <-p.ready:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	if v := p.value.Load(); v != nil {
		return *v, nil
	}
	if err := p.err.Load(); err != nil {
		return zero, *err
	}
	return zero, ErrClosed
}

// OnChange registers fn to be called with every new value. fn runs on the
// subscription goroutine and must not block.
func (p *ObservableProperty[V, T]) OnChange(fn func(T)) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *ObservableProperty[V, T]) start() {
	if p.started.Load() {
		return
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.started.Load() {
		return
	}
	if p.closed {
		p.markReady()
		return
	}
	p.started.Store(true)
	go p.run()
}

func (p *ObservableProperty[V, T]) run() {
	defer close(p.done)
	err := Subscribe(p.ctx, p.transport, p.property, func(v V) {
		var t T
		if p.decode != nil {
			t = p.decode(v)
		}
		p.update(t)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		p.err.Store(&err)
	}
	p.markReady()
}

func (p *ObservableProperty[V, T]) update(v T) {
	defer p.markReady()
	if old := p.value.Load(); old != nil && reflect.DeepEqual(*old, v) {
		return
	}
	p.value.Store(&v)
	p.listenersMu.Lock()
	listeners := append([]func(T){}, p.listeners...)
	p.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
}

func (p *ObservableProperty[V, T]) markReady() {
	p.readyOnce.Do(func() { close(p.ready) })
}

// Close cancels the subscription and waits for it to end. It is safe to
// call more than once and when no subscription was started.
func (p *ObservableProperty[V, T]) Close() error {
	p.closeOnce.Do(func() {
		p.lock.Lock()
		p.closed = true
		started := p.started.Load()
		p.lock.Unlock()
		p.cancel()
		if started {
			<-p.done
		}
		p.markReady()
	})
	return nil
}
