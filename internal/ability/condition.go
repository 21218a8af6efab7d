package ability

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/world"
)

// SyntaxError reports a malformed condition expression.
type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("condition %q: at %d: %s", e.Expr, e.Pos, e.Msg)
}

// Node is a parsed condition. Evaluation visits every atom.
type Node interface {
	Eval(env *Env) bool
	String() string
}

// Binary joins two conditions with "and" or "or".
type Binary struct {
	Op          string
	Left, Right Node
}

func (b *Binary) Eval(env *Env) bool {
	l := b.Left.Eval(env)
	r := b.Right.Eval(env)
	if b.Op == "and" {
		return l && r
	}
	return l || r
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op + " " + b.Right.String() + ")"
}

// Atom is one predicate with an optional argument.
type Atom struct {
	Name string
	Arg  string
	N    int
	fn   func(a *Atom, env *Env) bool
}

func (a *Atom) Eval(env *Env) bool { return a.fn(a, env) }

func (a *Atom) String() string {
	if a.Arg == "" {
		return a.Name
	}
	return a.Name + "(" + a.Arg + ")"
}

type argKind int

const (
	argNone argKind = iota
	argInt
	argWord
)

type atomDef struct {
	arg argKind
	fn  func(a *Atom, env *Env) bool
}

var atoms = map[string]atomDef{
	"always": {argNone, func(*Atom, *Env) bool { return true }},
	"never":  {argNone, func(*Atom, *Env) bool { return false }},
	"hp_below": {argInt, func(a *Atom, env *Env) bool {
		c := env.sys.st.Combat.Get(env.Owner)
		return c != nil && c.HPPercent() < a.N
	}},
	"hp_above": {argInt, func(a *Atom, env *Env) bool {
		c := env.sys.st.Combat.Get(env.Owner)
		return c != nil && c.HPPercent() > a.N
	}},
	"target_hp_below": {argInt, func(a *Atom, env *Env) bool {
		c := env.sys.st.Combat.Get(env.Target)
		return c != nil && c.HPPercent() < a.N
	}},
	"actor_is": {argWord, func(a *Atom, env *Env) bool {
		e := env.sys.st.Entities.Get(env.Event.Payload.Actor())
		return e != nil && e.Category == a.Arg
	}},
	"target_is": {argWord, func(a *Atom, env *Env) bool {
		e := env.sys.st.Entities.Get(env.Target)
		return e != nil && e.Category == a.Arg
	}},
	"dealt_damage": {argNone, func(_ *Atom, env *Env) bool {
		return env.Event.Payload.Damage > 0
	}},
	"damage_type": {argWord, func(a *Atom, env *Env) bool {
		return env.Event.Payload.DamageType == a.Arg
	}},
	"on_cooldown": {argNone, func(_ *Atom, env *Env) bool {
		return env.sys.OnCooldown(env.Ability)
	}},
	"ready": {argNone, func(_ *Atom, env *Env) bool {
		return !env.sys.OnCooldown(env.Ability)
	}},
	"has_effect": {argWord, func(a *Atom, env *Env) bool {
		fx := env.sys.st.Effects.Get(env.Owner)
		return fx != nil && fx.Has(a.Arg)
	}},
	"target_within": {argInt, func(a *Atom, env *Env) bool {
		return within(env.sys.st, env.Owner, env.Target, a.N)
	}},
	// On damaged and attacked events the target is the owner itself, so
	// reach checks against the striker need the attacker.
	"attacker_within": {argInt, func(a *Atom, env *Env) bool {
		attacker := env.Event.Payload.Attacker
		return !attacker.IsZero() && within(env.sys.st, env.Owner, attacker, a.N)
	}},
	"chance": {argInt, func(a *Atom, env *Env) bool {
		return env.sys.rng.Intn(100) < a.N
	}},
}

func within(st *world.State, a, b ecs.EntityID, n int) bool {
	ap := st.Positions.Get(a)
	bp := st.Positions.Get(b)
	if ap == nil || bp == nil || ap.Loc != bp.Loc {
		return false
	}
	return world.Chebyshev(ap.Point(), bp.Point()) <= n
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := rune(expr[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case unicode.IsDigit(c) || c == '-':
			start := i
			i++
			for i < len(expr) && unicode.IsDigit(rune(expr[i])) {
				i++
			}
			toks = append(toks, token{tokNumber, expr[start:i], start})
		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(expr) && (unicode.IsLetter(rune(expr[i])) || unicode.IsDigit(rune(expr[i])) || expr[i] == '_') {
				i++
			}
			toks = append(toks, token{tokIdent, expr[start:i], start})
		default:
			return nil, &SyntaxError{Expr: expr, Pos: i, Msg: fmt.Sprintf("unexpected %q", c)}
		}
	}
	toks = append(toks, token{tokEOF, "", len(expr)})
	return toks, nil
}

type parser struct {
	expr string
	toks []token
	pos  int
}

// ParseCondition parses expr into a condition tree. "and" and "or" share
// one precedence level and associate left; parentheses group. An empty
// expression means always.
func ParseCondition(expr string) (Node, error) {
	if strings.TrimSpace(expr) == "" {
		return newAtom("always", "", 0), nil
	}
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{expr: expr, toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Expr: p.expr, Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokIdent || (t.text != "and" && t.text != "or") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: t.text, Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, p.errorf(c, "expected ')'")
		}
		return n, nil
	case tokIdent:
		return p.parseAtom(t)
	case tokEOF:
		return nil, p.errorf(t, "unexpected end of condition")
	}
	return nil, p.errorf(t, "unexpected %q", t.text)
}

func (p *parser) parseAtom(name token) (Node, error) {
	def, ok := atoms[name.text]
	if !ok {
		return nil, p.errorf(name, "unknown condition %q", name.text)
	}
	if def.arg == argNone {
		if p.peek().kind == tokLParen {
			return nil, p.errorf(p.peek(), "%s takes no argument", name.text)
		}
		return newAtom(name.text, "", 0), nil
	}
	if t := p.next(); t.kind != tokLParen {
		return nil, p.errorf(t, "%s needs an argument", name.text)
	}
	arg := p.next()
	var n int
	switch def.arg {
	case argInt:
		if arg.kind != tokNumber {
			return nil, p.errorf(arg, "%s needs a number", name.text)
		}
		v, err := strconv.Atoi(arg.text)
		if err != nil {
			return nil, p.errorf(arg, "bad number %q", arg.text)
		}
		n = v
	case argWord:
		if arg.kind != tokIdent {
			return nil, p.errorf(arg, "%s needs a name", name.text)
		}
	}
	if t := p.next(); t.kind != tokRParen {
		return nil, p.errorf(t, "expected ')'")
	}
	return newAtom(name.text, arg.text, n), nil
}

func newAtom(name, arg string, n int) *Atom {
	return &Atom{Name: name, Arg: arg, N: n, fn: atoms[name].fn}
}
