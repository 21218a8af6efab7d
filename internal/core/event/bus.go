package event

import "sync"

// Handler receives one event synchronously.
type Handler func(Event)

// SubID identifies a single subscription.
type SubID uint64

type subscription struct {
	id      SubID
	channel Channel
	name    Name
	owner   any
	fn      Handler
	active  bool
	running bool
}

// Bus is a synchronous, channel-keyed publish/subscribe dispatcher.
//
// Publish delivers in the caller's stack, in subscription order, over a
// snapshot of the channel's subscriber list. A subscription never receives an
// event while its own handler is still running, so a reaction that publishes
// the event it reacts to cannot recurse into itself.
//
// Owners must be comparable (pointers or ids). Dispatch is single-goroutine;
// the mutex only protects the subscription tables.
type Bus struct {
	mu      sync.Mutex
	nextID  SubID
	byChan  map[Channel][]*subscription
	byOwner map[any][]*subscription
	byID    map[SubID]*subscription
}

func NewBus() *Bus {
	return &Bus{
		byChan:  make(map[Channel][]*subscription),
		byOwner: make(map[any][]*subscription),
		byID:    make(map[SubID]*subscription),
	}
}

// Subscribe registers fn for events called name on ch. Use Any for every name.
func (b *Bus) Subscribe(ch Channel, name Name, owner any, fn Handler) SubID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &subscription{
		id:      b.nextID,
		channel: ch,
		name:    name,
		owner:   owner,
		fn:      fn,
		active:  true,
	}
	b.byChan[ch] = append(b.byChan[ch], s)
	if owner != nil {
		b.byOwner[owner] = append(b.byOwner[owner], s)
	}
	b.byID[s.id] = s
	return s.id
}

// Unsubscribe removes every subscription held by owner. Returns how many
// were removed.
func (b *Bus) Unsubscribe(owner any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.byOwner[owner]
	delete(b.byOwner, owner)
	for _, s := range subs {
		b.detachLocked(s)
	}
	return len(subs)
}

// Cancel removes a single subscription.
func (b *Bus) Cancel(id SubID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.byID[id]
	if !ok {
		return false
	}
	b.detachLocked(s)
	if s.owner != nil {
		b.byOwner[s.owner] = removeSub(b.byOwner[s.owner], s)
		if len(b.byOwner[s.owner]) == 0 {
			delete(b.byOwner, s.owner)
		}
	}
	return true
}

// DropChannel removes every subscription on ch. Used when the entity behind
// a per-entity channel is destroyed.
func (b *Bus) DropChannel(ch Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.byChan[ch] {
		s.active = false
		delete(b.byID, s.id)
		if s.owner != nil {
			b.byOwner[s.owner] = removeSub(b.byOwner[s.owner], s)
			if len(b.byOwner[s.owner]) == 0 {
				delete(b.byOwner, s.owner)
			}
		}
	}
	delete(b.byChan, ch)
}

// Subscribers returns the number of live subscriptions on ch.
func (b *Bus) Subscribers(ch Channel) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byChan[ch])
}

// Owned returns the number of live subscriptions held by owner.
func (b *Bus) Owned(owner any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byOwner[owner])
}

// Publish delivers an event to every matching subscription on ch.
func (b *Bus) Publish(ch Channel, name Name, p Payload) {
	b.mu.Lock()
	subs := b.byChan[ch]
	if len(subs) == 0 {
		b.mu.Unlock()
		return
	}
	snapshot := make([]*subscription, len(subs))
	copy(snapshot, subs)
	b.mu.Unlock()

	ev := Event{Name: name, Channel: ch, Payload: p}
	for _, s := range snapshot {
		if !s.active || s.running {
			continue
		}
		if s.name != Any && s.name != name {
			continue
		}
		s.running = true
		s.fn(ev)
		s.running = false
	}
}

func (b *Bus) detachLocked(s *subscription) {
	s.active = false
	delete(b.byID, s.id)
	list := removeSub(b.byChan[s.channel], s)
	if len(list) == 0 {
		delete(b.byChan, s.channel)
	} else {
		b.byChan[s.channel] = list
	}
}

// removeSub returns a new slice without s; the old backing array may still be
// referenced by an in-flight snapshot.
func removeSub(list []*subscription, s *subscription) []*subscription {
	out := make([]*subscription, 0, len(list))
	for _, x := range list {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}
