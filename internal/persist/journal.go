package persist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/gamelog"
	"go.uber.org/zap"
)

// Journal records narrative messages and location-channel events of one run.
// Recording and Flush happen on the simulation goroutine and never block:
// batches go to the writer goroutine through a bounded queue, and a batch
// that finds the queue full is dropped and counted.
type Journal struct {
	runID     string
	w         BatchWriter
	now       func() int64
	log       *zap.Logger
	batchSize int

	// Simulation goroutine only.
	buf    []JournalEntry
	seq    int64
	closed bool

	queue     chan []JournalEntry
	closeOnce sync.Once
	dropped   atomic.Int64
	written   atomic.Int64
}

// NewJournal creates a journal for runID. now reports the current tick.
func NewJournal(runID string, w BatchWriter, now func() int64, queueSize, batchSize int, log *zap.Logger) *Journal {
	if queueSize <= 0 {
		queueSize = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Journal{
		runID:     runID,
		w:         w,
		now:       now,
		log:       log.Named("journal"),
		batchSize: batchSize,
		queue:     make(chan []JournalEntry, queueSize),
	}
}

// Attach records every event published on the location channel.
func (j *Journal) Attach(bus *event.Bus) {
	bus.Subscribe(event.Location, event.Any, j, j.Record)
}

// Detach stops recording events.
func (j *Journal) Detach(bus *event.Bus) {
	bus.Unsubscribe(j)
}

// AddMessage implements gamelog.Sink.
func (j *Journal) AddMessage(text string, level gamelog.Level, _ gamelog.Color) {
	j.append(JournalEntry{Kind: KindMessage, Name: level.String(), Detail: text})
}

// Record journals one domain event.
func (j *Journal) Record(ev event.Event) {
	p := ev.Payload
	e := JournalEntry{
		Kind:   KindEvent,
		Name:   string(ev.Name),
		Entity: uint64(p.Actor()),
		Target: uint64(p.Target),
		Amount: p.Damage,
	}
	switch {
	case p.DamageType != "":
		e.Detail = p.DamageType
	case p.Ability != "":
		e.Detail = p.Ability
	case p.Effect != "":
		e.Detail = p.Effect
	}
	if ev.Name == event.TicksPassed {
		e.Amount = p.Ticks
	}
	j.append(e)
}

func (j *Journal) append(e JournalEntry) {
	if j.closed {
		return
	}
	j.seq++
	e.RunID = j.runID
	e.Seq = j.seq
	e.Tick = j.now()
	j.buf = append(j.buf, e)
	if len(j.buf) >= j.batchSize {
		j.Flush()
	}
}

// Flush hands the buffered entries to the writer goroutine.
func (j *Journal) Flush() {
	if j.closed || len(j.buf) == 0 {
		return
	}
	batch := j.buf
	j.buf = make([]JournalEntry, 0, j.batchSize)
	select {
	case j.queue <- batch:
	default:
		j.dropped.Add(int64(len(batch)))
		j.log.Warn("journal queue full, batch dropped", zap.Int("entries", len(batch)))
	}
}

// Close flushes what is buffered and lets Run drain and return. Call from
// the simulation goroutine after the last record.
func (j *Journal) Close() {
	j.closeOnce.Do(func() {
		j.Flush()
		j.closed = true
		close(j.queue)
	})
}

// Run writes queued batches until the queue is closed and drained, or ctx
// is cancelled. Write failures are logged and counted as dropped.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case batch, ok := <-j.queue:
			if !ok {
				return nil
			}
			j.write(ctx, batch)
		case <-ctx.Done():
			j.drain()
			return nil
		}
	}
}

// drain writes whatever is already queued with a short deadline.
func (j *Journal) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case batch, ok := <-j.queue:
			if !ok {
				return
			}
			j.write(ctx, batch)
		default:
			return
		}
	}
}

func (j *Journal) write(ctx context.Context, batch []JournalEntry) {
	if err := j.w.WriteBatch(ctx, batch); err != nil {
		j.dropped.Add(int64(len(batch)))
		j.log.Error("journal write failed", zap.Int("entries", len(batch)), zap.Error(err))
		return
	}
	j.written.Add(int64(len(batch)))
}

// Dropped returns how many entries never reached the writer.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Written returns how many entries were persisted.
func (j *Journal) Written() int64 { return j.written.Load() }

// Pending returns the entries buffered but not yet flushed.
func (j *Journal) Pending() int { return len(j.buf) }
