// Package eventbus is the in-process fan-out for trade/BBO/depth events.
// One publisher (the matching engine, serialized per symbol) and zero
// or more subscribers per Kind. Delivery is best-effort: a slow
// subscriber has its oldest undelivered event dropped rather than
// blocking the publisher or any other subscriber.
package eventbus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	defaultIngressSize    = 4096
	defaultSubscriberSize = 256
)

// Subscription is a handle returned by Subscribe. Reading from C
// delivers events of the subscribed Kind in publication order, subject
// to best-effort drop-oldest on overflow. Unsubscribe stops delivery.
type Subscription struct {
	id   uint64
	kind Kind
	ch   chan Envelope
	bus  *Bus
}

// C returns the channel this subscription is delivered on.
func (s *Subscription) C() <-chan Envelope { return s.ch }

// Bus is the concrete EventBus. Zero value is not usable; build one
// with New.
type Bus struct {
	mu      sync.Mutex
	subs    map[uint64]*Subscription
	nextID  uint64
	ingress chan Envelope

	subscriberBufSize int

	metrics *metrics
	t       tomb.Tomb
}

// Option configures a Bus at construction.
type Option func(*Bus)

// WithSubscriberBufferSize overrides the per-subscriber channel
// capacity (default 256).
func WithSubscriberBufferSize(n int) Option {
	return func(b *Bus) { b.subscriberBufSize = n }
}

// New builds a Bus and starts its dispatcher. reg may be nil to skip
// metrics registration (e.g. in unit tests that don't care about
// prometheus). Call Close to stop the dispatcher.
//
// Fan-out runs on a single goroutine: publication order must be
// preserved to every non-overflowing subscriber, and two dispatchers
// draining the same ingress queue could deliver out of order.
func New(reg prometheus.Registerer, opts ...Option) *Bus {
	b := &Bus{
		subs:              make(map[uint64]*Subscription),
		ingress:           make(chan Envelope, defaultIngressSize),
		subscriberBufSize: defaultSubscriberSize,
		metrics:           newMetrics(reg),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.t.Go(b.dispatchLoop)
	return b
}

// Subscribe registers a consumer for the given Kind. The returned
// Subscription's channel must be drained by the caller; a subscriber
// that never reads simply falls behind and loses its oldest events.
func (b *Bus) Subscribe(kind Kind) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:   b.nextID,
		kind: kind,
		ch:   make(chan Envelope, b.subscriberBufSize),
		bus:  b,
	}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe stops delivery to sub and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
}

// Publish enqueues env for asynchronous fan-out. Non-blocking: if the
// bus's ingress queue is itself saturated (only possible under
// sustained extreme load), the event is dropped and counted rather
// than stalling the caller, which is always the matching path holding
// a symbol lock.
func (b *Bus) Publish(env Envelope) {
	select {
	case b.ingress <- env:
	default:
		if b.metrics != nil {
			b.metrics.ingressDropped.Inc()
		}
		log.Warn().Str("kind", env.Kind.String()).Msg("eventbus: ingress saturated, dropping event")
	}
}

// PublishTrade is a typed convenience wrapper over Publish.
func (b *Bus) PublishTrade(e TradeEvent) { b.Publish(Envelope{Kind: KindTrade, Trade: e}) }

// PublishBBO is a typed convenience wrapper over Publish.
func (b *Bus) PublishBBO(e BboEvent) { b.Publish(Envelope{Kind: KindBBO, Bbo: e}) }

// PublishDepth is a typed convenience wrapper over Publish.
func (b *Bus) PublishDepth(e DepthEvent) { b.Publish(Envelope{Kind: KindDepth, Depth: e}) }

// dispatchLoop drains the ingress queue and fans each envelope out to
// every matching subscriber, off the matching path entirely.
func (b *Bus) dispatchLoop() error {
	for {
		select {
		case <-b.t.Dying():
			return nil
		case env := <-b.ingress:
			b.fanOut(env)
		}
	}
}

// fanOut delivers env to every subscriber of its Kind. A full
// subscriber channel has its oldest event dropped to make room; the
// subscriber is never disconnected and never blocks delivery to peers.
func (b *Bus) fanOut(env Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.kind != env.Kind {
			continue
		}
		select {
		case sub.ch <- env:
			continue
		default:
		}

		// Buffer full: drop the oldest queued event, then retry once.
		select {
		case <-sub.ch:
			if b.metrics != nil {
				b.metrics.dropped.WithLabelValues(env.Kind.String()).Inc()
			}
		default:
		}
		select {
		case sub.ch <- env:
		default:
			// Only the dispatcher writes to sub.ch, so the retry can
			// lose only to the subscriber draining in between, which
			// leaves room; if this is still reachable somehow, drop
			// env rather than block.
			if b.metrics != nil {
				b.metrics.dropped.WithLabelValues(env.Kind.String()).Inc()
			}
		}
	}
}

// Close stops the dispatcher and waits for it to exit.
func (b *Bus) Close() error {
	b.t.Kill(nil)
	return b.t.Wait()
}

// Done returns a channel closed when the dispatcher has stopped,
// mirroring context.Context's Done for callers that supervise the bus
// alongside other context-aware goroutines.
func (b *Bus) Done() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		<-b.t.Dead()
		close(ch)
	}()
	return ch
}
