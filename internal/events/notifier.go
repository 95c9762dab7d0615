package events

import (
	"log/slog"
	"sync"
)

// Subscriber bundles the handler functions a consumer of pipeline events may
// register. Any field may be nil; nil handlers are skipped.
type Subscriber struct {
	// OnProgress receives progress updates, forwarded verbatim from the worker.
	OnProgress func(Progress)

	// OnResult receives raw text, corrected text, and explanation results.
	OnResult func(Result)

	// OnError receives worker failure reports.
	OnError func(Error)

	// OnFinished is called exactly once per task attempt, after all other
	// events of that attempt.
	OnFinished func()

	// OnReviewRequested is called when an attempt reaches the review
	// checkpoint. The decision is submitted separately through the
	// orchestrator; this callback must not block on it.
	OnReviewRequested func(ReviewRequest)

	// OnStateChange reports orchestrator state transitions. The value is the
	// orchestrator's state string (e.g. "running", "awaiting_review").
	OnStateChange func(state string)
}

// Notifier dispatches pipeline events to registered subscribers in
// registration order. Dispatch is synchronous: the orchestrator's consumer
// loop calls into every handler before processing the next event, which is
// what preserves the per-attempt FIFO ordering guarantee for subscribers.
type Notifier struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	logger      *slog.Logger
}

// NewNotifier creates a Notifier with no subscribers.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		subscribers: make([]Subscriber, 0),
		logger:      logger.With("component", "notifier"),
	}
}

// Register adds a subscriber. Subscribers cannot be removed; they live as
// long as the orchestrator they observe.
func (n *Notifier) Register(s Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, s)
	n.logger.Debug("registered subscriber", "subscriber_count", len(n.subscribers))
}

func (n *Notifier) snapshot() []Subscriber {
	n.mu.RLock()
	defer n.mu.RUnlock()
	subs := make([]Subscriber, len(n.subscribers))
	copy(subs, n.subscribers)
	return subs
}

// PublishProgress forwards a progress event to all subscribers.
func (n *Notifier) PublishProgress(ev Progress) {
	for _, s := range n.snapshot() {
		if s.OnProgress != nil {
			s.OnProgress(ev)
		}
	}
}

// PublishResult forwards a result event to all subscribers.
func (n *Notifier) PublishResult(ev Result) {
	for _, s := range n.snapshot() {
		if s.OnResult != nil {
			s.OnResult(ev)
		}
	}
}

// PublishError forwards an error event to all subscribers.
func (n *Notifier) PublishError(ev Error) {
	for _, s := range n.snapshot() {
		if s.OnError != nil {
			s.OnError(ev)
		}
	}
}

// PublishFinished tells all subscribers the current attempt is over.
func (n *Notifier) PublishFinished() {
	for _, s := range n.snapshot() {
		if s.OnFinished != nil {
			s.OnFinished()
		}
	}
}

// PublishReviewRequested announces that the pipeline is waiting on a human
// decision for the given results.
func (n *Notifier) PublishReviewRequested(req ReviewRequest) {
	for _, s := range n.snapshot() {
		if s.OnReviewRequested != nil {
			s.OnReviewRequested(req)
		}
	}
}

// PublishStateChange reports an orchestrator state transition.
func (n *Notifier) PublishStateChange(state string) {
	for _, s := range n.snapshot() {
		if s.OnStateChange != nil {
			s.OnStateChange(state)
		}
	}
}
