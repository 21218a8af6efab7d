package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l1jgo/encounter/internal/config"
	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/game"
	"github.com/l1jgo/encounter/internal/gamelog"
	"github.com/l1jgo/encounter/internal/persist"
	"github.com/l1jgo/encounter/internal/scripting"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load catalog and scripts
	cat, err := data.LoadCatalog(cfg.Catalog, log)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	var scripts *scripting.Engine
	if cfg.Catalog.Scripts != "" {
		scripts, err = scripting.NewEngine(cfg.Catalog.Scripts, log)
		if err != nil {
			return fmt.Errorf("load scripts: %w", err)
		}
		defer scripts.Close()
	}

	// 4. Build the encounter
	sim, err := game.New(*cfg, cat, scripts, log, gamelog.NewZapSink(log), consoleSink{})
	if err != nil {
		return fmt.Errorf("build encounter: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Optional journal
	var repo *persist.JournalRepo
	var journal *persist.Journal
	if cfg.Journal.Enabled {
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(dbCtx, cfg.Journal, log)
		if err != nil {
			return fmt.Errorf("connect journal: %w", err)
		}
		defer db.Close()
		if _, err := persist.RunMigrations(dbCtx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		repo = persist.NewJournalRepo(db)
		if err := repo.StartRun(dbCtx, sim.ID.String(), cfg.Simulation.Seed, cat.Arena.Name); err != nil {
			return fmt.Errorf("start run: %w", err)
		}
		journal = sim.EnableJournal(repo, cfg.Journal.QueueSize, cfg.Journal.BatchSize)
	}

	// 6. Simulation goroutine plus background workers
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	if journal != nil {
		g.Go(func() error {
			return journal.Run(gctx)
		})
	}

	g.Go(func() error {
		last := time.Now()
		for {
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return nil
			case tick := <-sim.TickDone():
				if time.Since(last) >= time.Second {
					log.Debug("clock", zap.Int64("tick", tick), zap.Bool("busy", sim.Busy()))
					last = time.Now()
				}
			}
		}
	})

	var outcome game.Outcome
	g.Go(func() error {
		defer close(done)
		defer sim.Close()
		var err error
		outcome, err = play(gctx, sim, cfg.Simulation, log)
		return err
	})

	err = g.Wait()
	if repo != nil {
		finCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ferr := repo.FinishRun(finCtx, sim.ID.String(), sim.Now()); ferr != nil {
			log.Error("finish run", zap.Error(ferr))
		}
		log.Info("journal closed",
			zap.Int64("written", journal.Written()),
			zap.Int64("dropped", journal.Dropped()),
		)
	}
	if errors.Is(err, context.Canceled) {
		log.Info("interrupted", zap.Int64("tick", sim.Now()))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("\n%s after %d turns, tick %d, %d dead\n", outcome, sim.PlayerTurns(), sim.Now(), sim.Reaped())
	return nil
}

// play drives the encounter from the simulation goroutine. Without
// autopilot the player only waits.
func play(ctx context.Context, sim *game.Simulation, cfg config.SimulationConfig, log *zap.Logger) (game.Outcome, error) {
	for turn := 0; cfg.MaxTurns <= 0 || turn < cfg.MaxTurns; turn++ {
		o, err := sim.AdvanceUntilInput(ctx)
		if err != nil {
			return o, err
		}
		if o != game.OutcomeInput {
			return o, nil
		}
		player := sim.Player()
		if cfg.Autopilot && sim.AutoTurn() {
			continue
		}
		sim.Perform(player, sim.Actions().Wait(player))
	}
	log.Info("turn limit reached", zap.Int("turns", cfg.MaxTurns))
	return game.OutcomeInput, nil
}

// consoleSink prints player-facing narration.
type consoleSink struct{}

func (consoleSink) AddMessage(text string, level gamelog.Level, _ gamelog.Color) {
	if level == gamelog.LevelPlayer {
		fmt.Println("  " + text)
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
