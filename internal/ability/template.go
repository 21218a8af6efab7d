package ability

import (
	"errors"
	"fmt"
	"os"

	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/world"
	"gopkg.in/yaml.v3"
)

// TriggerUse marks an ability activated by its owner (AI or player) rather
// than by an event.
const TriggerUse event.Name = "use"

// ReactionSpec is the catalog form of one reaction.
type ReactionSpec struct {
	Type       string            `yaml:"type"`
	Target     string            `yaml:"target"`
	Damage     world.DamageRange `yaml:"damage"`
	DamageType string            `yaml:"damage_type"`
	Mods       []string          `yaml:"mods"`
	Effect     string            `yaml:"effect"`
	Magnitude  int               `yaml:"magnitude"`
	Duration   int               `yaml:"duration"` // ticks, 0 = permanent
	Interval   int               `yaml:"interval"` // ticks between periodic hits
	Repeats    int               `yaml:"repeats"`
	Amount     int               `yaml:"amount"`
	Range      int               `yaml:"range"`
}

// Template is a validated ability definition shared by every instance.
type Template struct {
	Name      string         `yaml:"name"`
	Trigger   event.Name     `yaml:"trigger"`
	Condition string         `yaml:"condition"`
	Reactions []ReactionSpec `yaml:"reactions"`
	Cooldown  int            `yaml:"cooldown"` // ticks
	AIUsable  bool           `yaml:"ai_usable"`
	Priority  int            `yaml:"priority"` // lower is tried first
	Disabled  bool           `yaml:"disabled"`
	Range     int            `yaml:"range"` // activation range, 0 = unlimited
	Message   string         `yaml:"message"`

	cond      Node
	reactions []Reaction
}

// Compile parses the condition and reactions. Every problem found is
// returned, joined.
func (t *Template) Compile() error {
	var errs []error
	if t.Name == "" {
		errs = append(errs, errors.New("ability without name"))
	}
	if t.Trigger == "" {
		errs = append(errs, fmt.Errorf("ability %s: missing trigger", t.Name))
	}
	cond, err := ParseCondition(t.Condition)
	if err != nil {
		errs = append(errs, fmt.Errorf("ability %s: %w", t.Name, err))
	}
	t.cond = cond
	t.reactions = t.reactions[:0]
	for i, spec := range t.Reactions {
		r, err := compileReaction(spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("ability %s: reaction %d: %w", t.Name, i, err))
			continue
		}
		t.reactions = append(t.reactions, r)
	}
	return errors.Join(errs...)
}

// Cond returns the parsed condition.
func (t *Template) Cond() Node { return t.cond }

type abilityFile struct {
	Abilities []*Template `yaml:"abilities"`
}

// ParseTemplates decodes and validates ability templates from YAML.
func ParseTemplates(raw []byte) (map[string]*Template, error) {
	var f abilityFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	out := make(map[string]*Template, len(f.Abilities))
	var errs []error
	for _, t := range f.Abilities {
		if err := t.Compile(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := out[t.Name]; dup {
			errs = append(errs, fmt.Errorf("ability %s: defined twice", t.Name))
			continue
		}
		out[t.Name] = t
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadTemplates loads ability templates from a YAML file.
func LoadTemplates(path string) (map[string]*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abilities: %w", err)
	}
	t, err := ParseTemplates(raw)
	if err != nil {
		return nil, fmt.Errorf("parse abilities: %w", err)
	}
	return t, nil
}
