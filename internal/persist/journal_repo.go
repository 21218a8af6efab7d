package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Entry kinds.
const (
	KindMessage = "message"
	KindEvent   = "event"
)

// JournalEntry is one journaled message or domain event.
type JournalEntry struct {
	RunID  string
	Seq    int64
	Tick   int64
	Kind   string // "message", "event"
	Name   string // event name, or message level
	Entity uint64
	Target uint64
	Amount int
	Detail string // message text, damage type, ability or effect name
}

// BatchWriter persists journal batches.
type BatchWriter interface {
	WriteBatch(ctx context.Context, entries []JournalEntry) error
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// StartRun registers a simulation run.
func (r *JournalRepo) StartRun(ctx context.Context, runID string, seed int64, arena string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO journal_runs (run_id, seed, arena) VALUES ($1, $2, $3)`,
		runID, seed, arena,
	)
	if err != nil {
		return fmt.Errorf("journal start run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end.
func (r *JournalRepo) FinishRun(ctx context.Context, runID string, finalTick int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE journal_runs SET finished_at = now(), final_tick = $2 WHERE run_id = $1`,
		runID, finalTick,
	)
	if err != nil {
		return fmt.Errorf("journal finish run: %w", err)
	}
	return nil
}

// WriteBatch bulk-inserts entries with COPY.
func (r *JournalRepo) WriteBatch(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"journal_entries"},
		[]string{"run_id", "seq", "tick", "kind", "name", "entity", "target", "amount", "detail"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := &entries[i]
			return []any{e.RunID, e.Seq, e.Tick, e.Kind, e.Name, int64(e.Entity), int64(e.Target), int32(e.Amount), e.Detail}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("journal copy: %w", err)
	}
	return nil
}

// CountRun returns how many entries a run has.
func (r *JournalRepo) CountRun(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM journal_entries WHERE run_id = $1`, runID,
	).Scan(&n)
	return n, err
}
