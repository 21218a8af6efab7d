package gamelog

import (
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Narrator formats narrative text and hands it to a sink. One per running
// simulation.
type Narrator struct {
	sink Sink
	p    *message.Printer
}

// NewNarrator creates a narrator that formats numbers for tag.
func NewNarrator(sink Sink, tag language.Tag) *Narrator {
	if sink == nil {
		sink = Discard{}
	}
	return &Narrator{sink: sink, p: message.NewPrinter(tag)}
}

// Sink returns the underlying sink.
func (n *Narrator) Sink() Sink { return n.sink }

// Say emits a player-level message.
func (n *Narrator) Say(color Color, format string, args ...any) {
	n.sink.AddMessage(n.p.Sprintf(format, args...), LevelPlayer, color)
}

// Debug emits a debug-level message.
func (n *Narrator) Debug(format string, args ...any) {
	n.sink.AddMessage(n.p.Sprintf(format, args...), LevelDebug, ColorDefault)
}

// ZapSink writes messages to a zap logger at debug level.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log.Named("narration")}
}

func (z *ZapSink) AddMessage(text string, level Level, color Color) {
	z.log.Debug(text, zap.Stringer("level", level), zap.String("color", string(color)))
}
