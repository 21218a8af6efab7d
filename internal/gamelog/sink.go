// Package gamelog carries narrative messages from the simulation to whoever
// displays or stores them.
package gamelog

//go:generate go tool mockgen -destination=./mocks/sink_mock.go -package=mocks . Sink

// Level separates player-facing narration from debug chatter.
type Level int

const (
	LevelPlayer Level = iota
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelPlayer:
		return "player"
	case LevelDebug:
		return "debug"
	}
	return "unknown"
}

// Color is a display hint; sinks are free to ignore it.
type Color string

const (
	ColorDefault Color = ""
	ColorInfo    Color = "white"
	ColorDanger  Color = "red"
	ColorGood    Color = "green"
	ColorWarn    Color = "yellow"
	ColorMagic   Color = "magenta"
)

// Sink receives narrative text.
type Sink interface {
	AddMessage(text string, level Level, color Color)
}

// Discard drops every message.
type Discard struct{}

func (Discard) AddMessage(string, Level, Color) {}

// Multi fans a message out to several sinks in order.
type Multi []Sink

func (m Multi) AddMessage(text string, level Level, color Color) {
	for _, s := range m {
		s.AddMessage(text, level, color)
	}
}

// Hub is a Multi that can gain sinks after it was handed out.
// Accessed only from the simulation goroutine.
type Hub struct {
	sinks []Sink
}

// Add appends s to the fan-out list.
func (h *Hub) Add(s Sink) {
	if s != nil {
		h.sinks = append(h.sinks, s)
	}
}

func (h *Hub) AddMessage(text string, level Level, color Color) {
	for _, s := range h.sinks {
		s.AddMessage(text, level, color)
	}
}
