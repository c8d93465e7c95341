package services

import "sync"

// Record is one raw document from the remote posts collection. It is kept
// schemaless on purpose; PostMapper owns every fallback.
type Record = map[string]any

// Snapshot is the complete currently-matching record set at one point in
// time, already ordered by the source. It is a full replacement, not a diff.
type Snapshot struct {
	Records []Record
}

type FeedFilter struct {
	PublicOnly bool
	OrderBy    string
}

// FeedSource is the server-push channel against the remote posts collection.
// A source never retries on its own; after a terminal error the caller
// decides whether to subscribe again.
type FeedSource interface {
	Subscribe(filter FeedFilter) (*FeedSubscription, error)
}

// FeedSubscription is one open push channel. The snapshot channel closes on
// Unsubscribe or on a terminal transport error, which is then available via
// Err.
type FeedSubscription struct {
	snapshots chan Snapshot
	cancel    func()
	once      sync.Once

	mu     sync.Mutex
	err    error
	closed bool
}

// NewFeedSubscription wires a subscription handle; cancel is invoked exactly
// once on Unsubscribe so the source can release the underlying channel.
func NewFeedSubscription(buffer int, cancel func()) *FeedSubscription {
	if buffer <= 0 {
		buffer = 1
	}
	return &FeedSubscription{
		snapshots: make(chan Snapshot, buffer),
		cancel:    cancel,
	}
}

func (s *FeedSubscription) Snapshots() <-chan Snapshot {
	return s.snapshots
}

// Push delivers a snapshot to the consumer. When the consumer lags, the
// oldest pending snapshot is dropped: each snapshot is a full replacement,
// so only the latest one matters.
func (s *FeedSubscription) Push(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for {
		select {
		case s.snapshots <- snap:
			return true
		default:
			select {
			case <-s.snapshots:
			default:
			}
		}
	}
}

// Fail records the terminal transport error and closes the stream.
func (s *FeedSubscription) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.err = err
	s.closed = true
	close(s.snapshots)
}

func (s *FeedSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *FeedSubscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.closed {
			s.closed = true
			close(s.snapshots)
		}
	})
}
