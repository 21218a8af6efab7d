package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for AI brain scripts.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log.Named("scripting")}
	e.registerHelpers()

	// Load core helpers first, then brains
	for _, sub := range []string{"core", "ai"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source in the engine's VM.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

// registerHelpers exposes Go-side geometry to scripts.
func (e *Engine) registerHelpers() {
	e.vm.SetGlobal("chebyshev", e.vm.NewFunction(func(L *lua.LState) int {
		dx := L.CheckInt(1) - L.CheckInt(3)
		dy := L.CheckInt(2) - L.CheckInt(4)
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		L.Push(lua.LNumber(max(dx, dy)))
		return 1
	}))
	e.vm.SetGlobal("sign", e.vm.NewFunction(func(L *lua.LState) int {
		v := L.CheckInt(1)
		switch {
		case v > 0:
			L.Push(lua.LNumber(1))
		case v < 0:
			L.Push(lua.LNumber(-1))
		default:
			L.Push(lua.LNumber(0))
		}
		return 1
	}))
}

// --- AI brain bridge ---

// CommandKind is what a brain asks its creature to do.
type CommandKind string

const (
	CmdAttack  CommandKind = "attack"  // melee the target
	CmdMove    CommandKind = "move"    // step by (dx, dy)
	CmdAbility CommandKind = "ability" // use the named ability on the target
	CmdWait    CommandKind = "wait"
	CmdFlee    CommandKind = "flee"    // step away from the target
	CmdDefault CommandKind = "default" // fall back to the built-in decision
)

// AbilityEntry is one ability the creature could activate now or later.
type AbilityEntry struct {
	Name     string
	Ready    bool // enabled, off cooldown, in range, condition met
	Range    int
	Priority int
}

// BrainContext holds pre-packed data for one AI decision.
type BrainContext struct {
	ID        uint64
	Name      string
	X, Y      int
	HP, MaxHP int
	Speed     int
	Turn      int

	// Target (0 = none tracked)
	TargetID      uint64
	TargetName    string
	TargetX       int
	TargetY       int
	TargetDist    int // Chebyshev distance
	TargetHP      int
	TargetMaxHP   int
	TargetVisible bool

	// Last known target position while it is out of sight
	HasLastSeen bool
	LastSeenX   int
	LastSeenY   int

	Abilities []AbilityEntry
}

// Command is a single decision returned by a brain.
type Command struct {
	Kind    CommandKind
	Ability string
	DX, DY  int
}

func brainFunc(name string) string { return "brain_" + name }

// HasBrain reports whether brain_<name> is defined.
func (e *Engine) HasBrain(name string) bool {
	if name == "" {
		return false
	}
	_, ok := e.vm.GetGlobal(brainFunc(name)).(*lua.LFunction)
	return ok
}

// RunBrain calls Lua brain_<name>(ctx). ok is false when the brain is
// missing, fails, or returns something that is not a known command.
func (e *Engine) RunBrain(name string, ctx BrainContext) (Command, bool) {
	fn, isFn := e.vm.GetGlobal(brainFunc(name)).(*lua.LFunction)
	if !isFn {
		return Command{}, false
	}

	// Build context table
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(ctx.ID))
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("hp", lua.LNumber(ctx.HP))
	t.RawSetString("max_hp", lua.LNumber(ctx.MaxHP))
	t.RawSetString("speed", lua.LNumber(ctx.Speed))
	t.RawSetString("turn", lua.LNumber(ctx.Turn))

	t.RawSetString("target_id", lua.LNumber(ctx.TargetID))
	t.RawSetString("target_name", lua.LString(ctx.TargetName))
	t.RawSetString("target_x", lua.LNumber(ctx.TargetX))
	t.RawSetString("target_y", lua.LNumber(ctx.TargetY))
	t.RawSetString("target_dist", lua.LNumber(ctx.TargetDist))
	t.RawSetString("target_hp", lua.LNumber(ctx.TargetHP))
	t.RawSetString("target_max_hp", lua.LNumber(ctx.TargetMaxHP))
	t.RawSetString("target_visible", lua.LBool(ctx.TargetVisible))

	t.RawSetString("has_last_seen", lua.LBool(ctx.HasLastSeen))
	t.RawSetString("last_seen_x", lua.LNumber(ctx.LastSeenX))
	t.RawSetString("last_seen_y", lua.LNumber(ctx.LastSeenY))

	// Build abilities array
	abTbl := e.vm.NewTable()
	for i, ab := range ctx.Abilities {
		row := e.vm.NewTable()
		row.RawSetString("name", lua.LString(ab.Name))
		row.RawSetString("ready", lua.LBool(ab.Ready))
		row.RawSetString("range", lua.LNumber(ab.Range))
		row.RawSetString("priority", lua.LNumber(ab.Priority))
		abTbl.RawSetInt(i+1, row)
	}
	t.RawSetString("abilities", abTbl)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua brain error", zap.Error(err), zap.String("brain", name), zap.Uint64("entity", ctx.ID))
		return Command{}, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	var cmd Command
	switch v := result.(type) {
	case lua.LString:
		cmd.Kind = CommandKind(v)
	case *lua.LTable:
		cmd = Command{
			Kind:    CommandKind(lStr(v, "type")),
			Ability: lStr(v, "ability"),
			DX:      lInt(v, "dx"),
			DY:      lInt(v, "dy"),
		}
	default:
		return Command{}, false
	}
	if !cmd.valid() {
		e.log.Warn("lua brain returned unknown command",
			zap.String("brain", name),
			zap.String("type", string(cmd.Kind)),
		)
		return Command{}, false
	}
	return cmd, true
}

func (c Command) valid() bool {
	switch c.Kind {
	case CmdAttack, CmdWait, CmdFlee, CmdDefault:
		return true
	case CmdMove:
		return (c.DX != 0 || c.DY != 0) && c.DX >= -1 && c.DX <= 1 && c.DY >= -1 && c.DY <= 1
	case CmdAbility:
		return c.Ability != ""
	}
	return false
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
