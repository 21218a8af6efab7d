package event

import "github.com/l1jgo/encounter/internal/core/ecs"

// Name identifies an event kind. Payload shape per name is a stable contract.
type Name string

// Any subscribes to every event published on a channel.
const Any Name = "*"

const (
	TicksPassed     Name = "ticks_passed"     // {ticks}
	EntityMoved     Name = "entity_moved"     // {entity, x, y}
	BeforeStrike    Name = "before_strike"    // {attacker, target, strike}
	Damaged         Name = "damaged"          // entity channel: {attacker, target, damage, dmg_type}
	EntityDamaged   Name = "entity_damaged"   // location channel: {attacker, target, damage, dmg_type}
	Healed          Name = "healed"           // {entity, damage=amount}
	Dying           Name = "dying"            // entity channel, hp crossed zero: {entity, attacker}
	Died            Name = "died"             // entity channel at reap: {entity}
	EntityDied      Name = "entity_died"      // location channel at reap: {entity}
	EntityDestroyed Name = "entity_destroyed" // {entity}
	AbilityFired    Name = "ability_fired"    // {ability, entity=owner, target}
	ProjectileHit   Name = "projectile_hit"   // {attacker, target, strike, item}
	ShotHit         Name = "shot_hit"         // {attacker, target, strike}
	ItemEquipped    Name = "item_equipped"    // {entity, item}
	ItemUnequipped  Name = "item_unequipped"  // {entity, item}
	ItemPickedUp    Name = "item_picked_up"   // {entity, item}
	ItemDropped     Name = "item_dropped"     // {entity, item}
	EffectApplied   Name = "effect_applied"   // {entity, effect}
	EffectExpired   Name = "effect_expired"   // {entity, effect}
	Attacked        Name = "attacked"         // attacker channel after a strike lands: {attacker, target, damage}
	DoorChanged     Name = "door_changed"     // {entity, x, y}
)

// Payload carries event data. Unused fields stay zero.
type Payload struct {
	Entity     ecs.EntityID
	Attacker   ecs.EntityID
	Target     ecs.EntityID
	Item       ecs.EntityID
	Damage     int
	DamageType string
	Ticks      int
	Ability    string
	Effect     string
	X, Y       int
	// Strike points at the in-flight strike (*combat.Strike) for before_strike
	// and hit events so reactive abilities may adjust it.
	Strike any
}

// Actor returns the entity that caused the event: the attacker when set,
// otherwise the subject entity.
func (p Payload) Actor() ecs.EntityID {
	if !p.Attacker.IsZero() {
		return p.Attacker
	}
	return p.Entity
}

// Event is an immutable (name, payload) pair delivered on one channel.
type Event struct {
	Name    Name
	Channel Channel
	Payload Payload
}

// Channel is a logical subscription key: one entity's stream or a
// well-known global stream.
type Channel struct {
	Scope  string
	Entity ecs.EntityID
}

var (
	// Location is the global channel consumed by AI, UI and journal.
	Location = Channel{Scope: "location"}
	// Time carries ticks_passed.
	Time = Channel{Scope: "time"}
)

// EntityChannel returns the per-entity channel for id.
func EntityChannel(id ecs.EntityID) Channel {
	return Channel{Scope: "entity", Entity: id}
}

// IsEntity reports whether ch is a per-entity channel.
func (c Channel) IsEntity() bool { return c.Scope == "entity" }
