package manager

import "sync"

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Names returns the event names in publish order.
func (p *MemoryPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

// ChanPublisher fans events out to a buffered channel so UI layers can
// observe state changes. Events are dropped when the buffer is full.
type ChanPublisher struct {
	ch chan Event
}

// NewChanPublisher returns a publisher with a buffer of size n.
func NewChanPublisher(n int) *ChanPublisher {
	if n <= 0 {
		n = 16
	}
	return &ChanPublisher{ch: make(chan Event, n)}
}

func (p *ChanPublisher) Publish(e Event) {
	select {
	case p.ch <- e:
	default:
	}
}

// C returns the receive side of the event channel.
func (p *ChanPublisher) C() <-chan Event { return p.ch }

// multiPublisher publishes to every wrapped publisher in order.
type multiPublisher []EventPublisher

func (mp multiPublisher) Publish(e Event) {
	for _, p := range mp {
		p.Publish(e)
	}
}

// Tee combines publishers into one.
func Tee(pubs ...EventPublisher) EventPublisher { return multiPublisher(pubs) }
