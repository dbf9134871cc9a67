package store

import "sync"

// feed is an in-process pub/sub for change notifications, keyed by
// collection and room code. Delivery is best-effort: a slow subscriber
// drops changes rather than blocking writers, which is safe because the
// synchronizer re-reads authoritative state on every notification.
type feed struct {
	mu   sync.RWMutex
	subs map[feedKey]map[*Subscription]struct{}
}

type feedKey struct {
	collection Collection
	roomCode   string
}

func newFeed() *feed {
	return &feed{
		subs: make(map[feedKey]map[*Subscription]struct{}),
	}
}

func (f *feed) subscribe(collection Collection, roomCode string) *Subscription {
	sub := &Subscription{
		feed: f,
		key:  feedKey{collection: collection, roomCode: roomCode},
		ch:   make(chan Change, 16),
	}
	f.mu.Lock()
	group := f.subs[sub.key]
	if group == nil {
		group = make(map[*Subscription]struct{})
		f.subs[sub.key] = group
	}
	group[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

func (f *feed) unsubscribe(sub *Subscription) {
	f.mu.Lock()
	group := f.subs[sub.key]
	delete(group, sub)
	if len(group) == 0 {
		delete(f.subs, sub.key)
	}
	f.mu.Unlock()
}

func (f *feed) publish(change Change) {
	key := feedKey{collection: change.Collection, roomCode: change.RoomCode}
	f.mu.RLock()
	for sub := range f.subs[key] {
		select {
		case sub.ch <- change:
		default:
			// Drop if the subscriber is slow.
		}
	}
	f.mu.RUnlock()
}

// Subscription is a standing change feed for one collection in one room.
type Subscription struct {
	feed *feed
	key  feedKey
	ch   chan Change
	once sync.Once
}

// Changes returns the notification channel. It is closed by Close.
func (s *Subscription) Changes() <-chan Change {
	return s.ch
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.unsubscribe(s)
		close(s.ch)
	})
}
