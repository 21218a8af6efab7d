package sched

import "fmt"

// Clock is the global simulation time. It advances every registered manager
// in registration order.
type Clock struct {
	now      int64
	managers []*Manager
}

func NewClock() *Clock {
	return &Clock{}
}

// Now returns the number of ticks elapsed since the clock was created.
func (c *Clock) Now() int64 { return c.now }

// Register adds m to the advance list. Registering twice is a no-op.
func (c *Clock) Register(m *Manager) {
	for _, x := range c.managers {
		if x == m {
			return
		}
	}
	c.managers = append(c.managers, m)
}

// Unregister removes m from the advance list.
func (c *Clock) Unregister(m *Manager) {
	for i, x := range c.managers {
		if x == m {
			c.managers = append(c.managers[:i:i], c.managers[i+1:]...)
			return
		}
	}
}

// Managers returns the number of active managers.
func (c *Clock) Managers() int { return len(c.managers) }

// PassTime advances the clock by n ticks.
func (c *Clock) PassTime(n int) {
	if n < 1 {
		panic(fmt.Sprintf("sched: PassTime(%d): tick count must be positive", n))
	}
	c.now += int64(n)
	active := make([]*Manager, len(c.managers))
	copy(active, c.managers)
	for _, m := range active {
		m.PassTicks(n)
	}
}

// NextReady returns the fewest ticks until any active manager has a ready
// action, or 0 when none has pending work.
func (c *Clock) NextReady() int {
	best := 0
	for _, m := range c.managers {
		if r := m.NextReady(); r > 0 && (best == 0 || r < best) {
			best = r
		}
	}
	return best
}
