package pubsub

import "sync"

// subscriberBuffer is the bounded channel capacity for every subscription
// (spec section 4.13: "allocate a bounded channel (capacity 100)").
const subscriberBuffer = 100

// Message is what a local subscriber receives: the topic it arrived on and
// its decoded payload.
type Message struct {
	Topic   string
	Payload []byte
}

// Registry maps topic names to the ordered set of channels currently
// subscribed to them (spec section 4.13: "registry[topic] -> ordered
// sequence of senders"). The zero value is not usable; use NewRegistry.
//
// The reference implementation's subscribe() moved the new sender into the
// registry twice via a double guard.take() (spec section 9, "Known bug").
// Subscribe here registers the channel exactly once, under a single write
// lock, and returns the Subscription holding that same channel as its
// receiver — there is no second registration path.
type Registry struct {
	mu      sync.RWMutex
	senders map[string][]chan Message
}

// NewRegistry constructs an empty topic registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[string][]chan Message)}
}

// Subscribe allocates a bounded channel, registers it under topic exactly
// once, and returns a Subscription bound to this registry.
func (r *Registry) Subscribe(topic string) *Subscription {
	ch := make(chan Message, subscriberBuffer)

	r.mu.Lock()
	r.senders[topic] = append(r.senders[topic], ch)
	r.mu.Unlock()

	return &Subscription{
		topic:    topic,
		receiver: ch,
		registry: r,
	}
}

// deliver attempts a non-blocking send of msg to every sender registered
// under topic. Full or closed channels are swallowed, not propagated (spec
// section 4.13 publish() step 1). The sender list is copied into a fresh
// slice under the read lock so the iteration below never touches the same
// backing array unregister may be rewriting concurrently.
func (r *Registry) deliver(topic string, msg Message) {
	r.mu.RLock()
	senders := append([]chan Message(nil), r.senders[topic]...)
	r.mu.RUnlock()

	for _, ch := range senders {
		select {
		case ch <- msg:
		default:
		}
	}
}

// unregister removes ch from topic's sender list, then drops the topic
// entry entirely if it is left empty. This is the cleanup the reference
// implementation spawns as a best-effort task on Subscription drop; Go has
// no destructors, so it runs synchronously from Subscription.Close instead.
// kept is allocated fresh rather than reusing senders[:0], since deliver
// may be iterating the old backing array under only a read lock.
func (r *Registry) unregister(topic string, ch chan Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	senders := r.senders[topic]
	kept := make([]chan Message, 0, len(senders))
	for _, s := range senders {
		if s != ch {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(r.senders, topic)
		return
	}
	r.senders[topic] = kept
}

// Subscription is a scoped handle bound to { topic, receiver channel,
// parent registry } (spec section 4.13). Closing it unregisters the
// receiver from the parent registry.
type Subscription struct {
	topic    string
	receiver chan Message
	registry *Registry

	closeOnce sync.Once
}

// Topic returns the topic this subscription was created for.
func (s *Subscription) Topic() string { return s.topic }

// Messages returns the channel new messages arrive on.
func (s *Subscription) Messages() <-chan Message { return s.receiver }

// Close unregisters this subscription's channel from the registry. It is
// safe to call more than once; only the first call has effect.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.registry.unregister(s.topic, s.receiver)
	})
}
