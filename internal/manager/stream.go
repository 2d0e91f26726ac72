package manager

import (
	"context"
	"strings"
	"sync"

	"llmchatd/internal/prompt"
	"llmchatd/pkg/types"
)

// Delta is one item delivered by a Stream. Exactly one event of a stream has
// Done set or Err non-nil, and it is the last one, unless the consumer
// cancels first.
type Delta struct {
	// Text is the visible text of this delta, sentinels removed.
	Text string
	// Transitions are thinking-state changes with offsets into Text.
	Transitions []types.Transition
	Done        bool
	// Err is a *GenerationError.
	Err error
}

// Thinking returns the thinking state after this event, or nil if unchanged.
func (d Delta) Thinking() *bool {
	return prompt.Processed{Text: d.Text, Transitions: d.Transitions}.Thinking()
}

// Stream delivers the output of one generation in order.
//
// The engine callback never waits on the consumer: events go to an unbounded
// queue drained by a forwarding goroutine.
type Stream struct {
	ctx    context.Context
	cancel context.CancelFunc

	out  chan Delta
	wake chan struct{}
	// forwarded is closed when the forwarder exits; settled once the engine
	// call has returned and the session is released.
	forwarded chan struct{}
	settled   chan struct{}

	mu      sync.Mutex
	queue   []Delta
	scan    *prompt.Scanner
	visible strings.Builder
	err     error
	deltas  int
}

func newStream(parent context.Context, f prompt.Formatter) *Stream {
	ctx, cancel := context.WithCancel(parent)
	s := &Stream{
		ctx:       ctx,
		cancel:    cancel,
		scan:      f.NewScanner(),
		out:       make(chan Delta),
		wake:      make(chan struct{}, 1),
		forwarded: make(chan struct{}),
		settled:   make(chan struct{}),
	}
	go s.forward()
	return s
}

// Events returns the channel of stream events. It is closed after the
// terminal event, or after Cancel.
func (s *Stream) Events() <-chan Delta { return s.out }

// Cancel stops the generation. No events are delivered afterwards. Safe to
// call more than once and after completion.
func (s *Stream) Cancel() { s.cancel() }

// Wait blocks until the engine call has returned and the session is free
// again, then returns Err. Drain Events or Cancel first: an undrained stream
// never settles.
func (s *Stream) Wait() error {
	<-s.settled
	return s.Err()
}

// Err returns the terminal error: nil after a clean finish, a
// *GenerationError after a failure, or the context error after cancellation.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Text returns the visible text streamed so far.
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible.String()
}

// push is the engine token callback.
func (s *Stream) push(delta string) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	p := s.scan.Push(delta)
	s.visible.WriteString(p.Text)
	s.deltas++
	s.queue = append(s.queue, Delta{Text: p.Text, Transitions: p.Transitions})
	s.mu.Unlock()
	deltasTotal.Inc()
	s.notify()
	return nil
}

// finish queues the terminal event for the engine result genErr.
func (s *Stream) finish(genErr error) {
	s.mu.Lock()
	var ev Delta
	switch {
	case s.ctx.Err() != nil:
		// The consumer is gone; nothing more is delivered.
		s.err = s.ctx.Err()
	case genErr != nil:
		s.err = &GenerationError{Err: genErr, Partial: s.visible.String()}
		ev = Delta{Err: s.err}
	default:
		tail := s.scan.Flush()
		s.visible.WriteString(tail)
		ev = Delta{Text: tail, Done: true}
	}
	if ev.Done || ev.Err != nil {
		s.queue = append(s.queue, ev)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Stream) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Stream) forward() {
	defer close(s.out)
	defer close(s.forwarded)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()
		for _, ev := range batch {
			if s.ctx.Err() != nil {
				return
			}
			select {
			case s.out <- ev:
			case <-s.ctx.Done():
				return
			}
			if ev.Done || ev.Err != nil {
				return
			}
		}
		select {
		case <-s.wake:
		case <-s.ctx.Done():
			return
		}
	}
}

// Collect drains the stream and returns the visible text. It returns the
// stream's terminal error, if any.
func (s *Stream) Collect() (string, error) {
	for range s.out {
	}
	if err := s.Wait(); err != nil {
		return s.Text(), err
	}
	return s.Text(), nil
}

func (s *Stream) deltaCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deltas
}
