package notify

import (
	"sync"

	"github.com/aditya-xq/PicToWebP/pkg/convert"
)

// subscriberBuffer bounds each subscriber's event queue. On overflow the
// oldest buffered event is dropped: every event carries the full aggregate
// snapshot, so the newest one supersedes anything older, and the terminal
// event is therefore never lost.
const subscriberBuffer = 16

// Hub is the server-side fanout for progress events. Each run has its own
// stream; any number of long-lived subscribers can attach, and the last
// event of a run is retained after completion so late joiners immediately
// see the final state.
type Hub struct {
	mu   sync.RWMutex
	runs map[string]*runStream
}

type runStream struct {
	mu   sync.Mutex
	last *convert.ProgressEvent
	subs map[chan convert.ProgressEvent]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{runs: make(map[string]*runStream)}
}

// Run returns the Notifier bound to runID, creating the stream if needed.
func (h *Hub) Run(runID string) Notifier {
	return convert.ProgressFunc(func(e convert.ProgressEvent) {
		h.stream(runID, true).publish(e)
	})
}

// Subscribe attaches to runID's stream. The returned channel first replays
// the retained last event (if any) and then receives live events. The
// cancel function detaches and closes the channel; callers must invoke it.
// Subscribing to an unknown run returns a live channel that fills once the
// run starts publishing.
func (h *Hub) Subscribe(runID string) (<-chan convert.ProgressEvent, func()) {
	s := h.stream(runID, true)

	ch := make(chan convert.ProgressEvent, subscriberBuffer)

	s.mu.Lock()
	if s.last != nil {
		ch <- *s.last
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Last returns the retained last event for a run, if there is one.
func (h *Hub) Last(runID string) (convert.ProgressEvent, bool) {
	s := h.stream(runID, false)
	if s == nil {
		return convert.ProgressEvent{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return convert.ProgressEvent{}, false
	}
	return *s.last, true
}

// Forget drops a run's stream and detaches its subscribers.
func (h *Hub) Forget(runID string) {
	h.mu.Lock()
	s := h.runs[runID]
	delete(h.runs, runID)
	h.mu.Unlock()

	if s == nil {
		return
	}
	s.mu.Lock()
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (h *Hub) stream(runID string, create bool) *runStream {
	h.mu.RLock()
	s := h.runs[runID]
	h.mu.RUnlock()
	if s != nil || !create {
		return s
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if s = h.runs[runID]; s == nil {
		s = &runStream{subs: make(map[chan convert.ProgressEvent]struct{})}
		h.runs[runID] = s
	}
	return s
}

// publish retains the event and offers it to every subscriber without ever
// blocking the publishing worker.
func (s *runStream) publish(e convert.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = &e
	for ch := range s.subs {
		for {
			select {
			case ch <- e:
			default:
				// Full: drop the oldest and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
