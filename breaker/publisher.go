package breaker

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/netguard/logger"
)

// Listener receives a snapshot after every observable breaker mutation.
// Listeners must not block and must not mutate the breaker.
type Listener func(Snapshot)

// publisher fans a snapshot out to registered listeners in registration order.
// Delivery is synchronous and best-effort: a panicking listener is recovered
// and logged, and never prevents the remaining listeners from running.
type publisher struct {
	mu        sync.Mutex
	order     []string
	listeners map[string]Listener
	log       *logger.Logger
}

func newPublisher(log *logger.Logger) *publisher {
	return &publisher{
		listeners: make(map[string]Listener),
		log:       log,
	}
}

// subscribe registers a listener and returns its unsubscribe function.
// Unsubscribing is idempotent.
func (p *publisher) subscribe(fn Listener) func() {
	id := uuid.NewString()

	p.mu.Lock()
	p.order = append(p.order, id)
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.listeners[id]; !ok {
			return
		}
		delete(p.listeners, id)
		for i, v := range p.order {
			if v == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

// notify delivers the snapshot to every listener in registration order.
func (p *publisher) notify(s Snapshot) {
	p.mu.Lock()
	fns := make([]Listener, 0, len(p.order))
	for _, id := range p.order {
		if fn, ok := p.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		p.invoke(fn, s)
	}
}

func (p *publisher) invoke(fn Listener, s Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("status listener panicked", logger.Fields("panic", r))
		}
	}()
	fn(s)
}

// clear removes all listeners.
func (p *publisher) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.order = nil
	p.listeners = make(map[string]Listener)
}

// count returns the number of registered listeners.
func (p *publisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}
