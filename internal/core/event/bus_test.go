package event

import (
	"testing"

	"github.com/l1jgo/encounter/internal/core/ecs"
)

type owner struct{ name string }

func TestPublishDeliversOnlyMatchingNameAndChannel(t *testing.T) {
	b := NewBus()
	o := &owner{"a"}
	ch := EntityChannel(ecs.EntityID(7))

	var got []Name
	b.Subscribe(ch, Damaged, o, func(ev Event) { got = append(got, ev.Name) })

	b.Publish(ch, Damaged, Payload{Damage: 3})
	b.Publish(ch, Healed, Payload{})
	b.Publish(EntityChannel(8), Damaged, Payload{})
	b.Publish(Location, Damaged, Payload{})

	if len(got) != 1 || got[0] != Damaged {
		t.Errorf("got %v, want [damaged]", got)
	}
}

func TestAnySubscriptionSeesEveryName(t *testing.T) {
	b := NewBus()
	n := 0
	b.Subscribe(Location, Any, nil, func(Event) { n++ })
	b.Publish(Location, EntityMoved, Payload{})
	b.Publish(Location, EntityDied, Payload{})
	if n != 2 {
		t.Errorf("got %d deliveries, want 2", n)
	}
}

func TestUnsubscribeRemovesEveryChannel(t *testing.T) {
	b := NewBus()
	o := &owner{"a"}
	calls := 0
	b.Subscribe(EntityChannel(1), Damaged, o, func(Event) { calls++ })
	b.Subscribe(Location, EntityMoved, o, func(Event) { calls++ })

	if removed := b.Unsubscribe(o); removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}
	b.Publish(EntityChannel(1), Damaged, Payload{})
	b.Publish(Location, EntityMoved, Payload{})
	if calls != 0 {
		t.Errorf("handler ran %d times after unsubscribe", calls)
	}
	if b.Subscribers(Location) != 0 || b.Owned(o) != 0 {
		t.Error("residual subscription after unsubscribe")
	}
}

func TestSnapshotIgnoresSubscribersAddedDuringDispatch(t *testing.T) {
	b := NewBus()
	late := 0
	b.Subscribe(Location, EntityMoved, nil, func(Event) {
		b.Subscribe(Location, EntityMoved, nil, func(Event) { late++ })
	})
	b.Publish(Location, EntityMoved, Payload{})
	if late != 0 {
		t.Errorf("subscriber added mid-dispatch received the in-flight event")
	}
	b.Publish(Location, EntityMoved, Payload{})
	if late != 1 {
		t.Errorf("late subscriber got %d events on second publish, want 1", late)
	}
}

func TestUnsubscribeDuringDispatchSkipsRemainingHandler(t *testing.T) {
	b := NewBus()
	victim := &owner{"victim"}
	ran := false
	b.Subscribe(Location, EntityDied, nil, func(Event) { b.Unsubscribe(victim) })
	b.Subscribe(Location, EntityDied, victim, func(Event) { ran = true })
	b.Publish(Location, EntityDied, Payload{})
	if ran {
		t.Error("handler of an owner unsubscribed mid-dispatch still ran")
	}
}

func TestHandlerDoesNotReenterItself(t *testing.T) {
	b := NewBus()
	ch := EntityChannel(3)
	depth := 0
	other := 0
	b.Subscribe(ch, Damaged, nil, func(ev Event) {
		depth++
		b.Publish(ch, Damaged, Payload{Damage: ev.Payload.Damage + 1})
	})
	b.Subscribe(ch, Damaged, nil, func(Event) { other++ })

	b.Publish(ch, Damaged, Payload{Damage: 1})

	if depth != 1 {
		t.Errorf("self-publishing handler ran %d times, want 1", depth)
	}
	if other != 2 {
		t.Errorf("sibling handler ran %d times, want 2 (outer + nested)", other)
	}
}

func TestDropChannel(t *testing.T) {
	b := NewBus()
	o := &owner{"o"}
	ch := EntityChannel(4)
	b.Subscribe(ch, Damaged, o, func(Event) { t.Error("dropped channel delivered") })
	b.Subscribe(Location, EntityMoved, o, func(Event) {})
	b.DropChannel(ch)
	b.Publish(ch, Damaged, Payload{})
	if b.Owned(o) != 1 {
		t.Errorf("owner keeps %d subscriptions, want 1 (location only)", b.Owned(o))
	}
}

func TestCancel(t *testing.T) {
	b := NewBus()
	n := 0
	id := b.Subscribe(Time, TicksPassed, nil, func(Event) { n++ })
	if !b.Cancel(id) {
		t.Fatal("cancel of live subscription failed")
	}
	if b.Cancel(id) {
		t.Error("second cancel should fail")
	}
	b.Publish(Time, TicksPassed, Payload{Ticks: 1})
	if n != 0 {
		t.Error("cancelled subscription delivered")
	}
}

func TestPayloadActor(t *testing.T) {
	if got := (Payload{Entity: 2}).Actor(); got != 2 {
		t.Errorf("Actor() = %d, want 2", got)
	}
	if got := (Payload{Entity: 2, Attacker: 5}).Actor(); got != 5 {
		t.Errorf("Actor() = %d, want 5", got)
	}
}
