package gamelog

import "sync"

// Message is one stored log line.
type Message struct {
	Text  string
	Level Level
	Color Color
}

// Buffer keeps the most recent messages in memory. Writes come from the
// simulation goroutine; reads may come from any goroutine.
type Buffer struct {
	mu   sync.RWMutex
	max  int
	msgs []Message
}

// NewBuffer creates a buffer holding at most max messages (0 = unbounded).
func NewBuffer(max int) *Buffer {
	return &Buffer{max: max, msgs: make([]Message, 0, 64)}
}

func (b *Buffer) AddMessage(text string, level Level, color Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, Message{Text: text, Level: level, Color: color})
	if b.max > 0 && len(b.msgs) > b.max {
		drop := len(b.msgs) - b.max
		b.msgs = append(b.msgs[:0:0], b.msgs[drop:]...)
	}
}

// Messages returns a copy of the stored messages, oldest first.
func (b *Buffer) Messages() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

// Player returns only player-level message texts.
func (b *Buffer) Player() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for _, m := range b.msgs {
		if m.Level == LevelPlayer {
			out = append(out, m.Text)
		}
	}
	return out
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.msgs)
}
