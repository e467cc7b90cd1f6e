package pool

import (
	"sync"

	"github.com/cosmicpool/cosmicpool/types"
)

type Subscription struct {
	// C receives deposit events in sequence order, it is closed when the
	// subscription is closed or dropped.
	C <-chan *types.DepositEvent

	ch    chan *types.DepositEvent
	owner *subscribers
}

// Close stops the subscription, it is safe to call more than once.
func (s *Subscription) Close() {
	s.owner.remove(s)
}

type subscribers struct {
	mu     sync.Mutex
	buffer int
	subs   map[*Subscription]struct{}
}

func newSubscribers(buffer int) *subscribers {
	return &subscribers{
		buffer: buffer,
		subs:   make(map[*Subscription]struct{}),
	}
}

func (s *subscribers) add() *Subscription {
	ch := make(chan *types.DepositEvent, s.buffer)
	sub := &Subscription{C: ch, ch: ch, owner: s}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub] = struct{}{}
	return sub
}

func (s *subscribers) remove(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
		close(sub.ch)
	}
}

func (s *subscribers) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// publish never blocks, subscribers which can't keep up are dropped.
func (s *subscribers) publish(ev *types.DepositEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
			delete(s.subs, sub)
			close(sub.ch)
		}
	}
}
