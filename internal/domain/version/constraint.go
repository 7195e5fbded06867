package version

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Op is a constraint comparator.
type Op int

// Supported comparators.
const (
	OpEq Op = iota
	OpGt
	OpGte
	OpLt
	OpLte
	OpCaret
	OpTilde
)

// String returns the comparator as written in constraint expressions.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpCaret:
		return "^"
	case OpTilde:
		return "~"
	default:
		return "?"
	}
}

func opFromToken(tok string) (Op, bool) {
	switch tok {
	case "", "=", "==":
		return OpEq, true
	case ">":
		return OpGt, true
	case ">=":
		return OpGte, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLte, true
	case "^":
		return OpCaret, true
	case "~":
		return OpTilde, true
	}
	return 0, false
}

// ErrConstraintSyntax is matched by every ConstraintSyntaxError.
var ErrConstraintSyntax = errors.New("invalid constraint")

// ConstraintSyntaxError reports a dependency expression that does not parse.
type ConstraintSyntaxError struct {
	Expr   string
	Reason string
}

func (e *ConstraintSyntaxError) Error() string {
	return fmt.Sprintf("invalid constraint %q: %s", e.Expr, e.Reason)
}

// Is lets errors.Is match ErrConstraintSyntax.
func (e *ConstraintSyntaxError) Is(target error) bool {
	return target == ErrConstraintSyntax
}

// IsConstraintSyntaxError returns true if err is a constraint syntax error.
func IsConstraintSyntaxError(err error) bool {
	var syntaxErr *ConstraintSyntaxError
	return errors.As(err, &syntaxErr)
}

// constraintLexer tokenizes expressions like ">=1.0.0, <2.0.0" or "^0.2.0".
// Multi-character comparators come first so ">=" is not split.
var constraintLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Op", Pattern: `==|>=|<=|=|>|<|\^|~`},
	{Name: "Any", Pattern: `any|\*`},
	{Name: "Version", Pattern: `v?\d+(\.\d+)*(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?`},
	{Name: "Comma", Pattern: `,`},
	{Name: "whitespace", Pattern: `\s+`},
})

// constraintExpr is the grammar root.
//
// Grammar: "any" | "*" | clause ( ","? clause )*
type constraintExpr struct {
	Any     bool          `parser:"  @Any"`
	Clauses []*clauseExpr `parser:"| @@ ( ','? @@ )*"`
}

// clauseExpr matches: [ comparator ] version
type clauseExpr struct {
	Op      string `parser:"@Op?"`
	Version string `parser:"@Version"`
}

var constraintParser = participle.MustBuild[constraintExpr](
	participle.Lexer(constraintLexer),
)

// Clause is one comparator applied to one version.
type Clause struct {
	Op      Op
	Version Version
}

// String returns the clause in canonical form.
func (c Clause) String() string {
	return c.Op.String() + c.Version.String()
}

// Allows reports whether v satisfies the clause.
func (c Clause) Allows(v Version) bool {
	cmp := v.Compare(c.Version)
	switch c.Op {
	case OpEq:
		return cmp == 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpCaret:
		return cmp >= 0 && v.Compare(caretCeiling(c.Version)) < 0
	case OpTilde:
		return cmp >= 0 && v.Compare(tildeCeiling(c.Version)) < 0
	default:
		return false
	}
}

// caretCeiling returns the exclusive upper bound for ^v: the next version
// that changes the left-most non-zero field.
func caretCeiling(v Version) Version {
	switch {
	case v.Major() > 0:
		return Version{raw: fmt.Sprintf("%d.0.0-0", v.Major()+1)}
	case v.Minor() > 0:
		return Version{raw: fmt.Sprintf("0.%d.0-0", v.Minor()+1)}
	default:
		return Version{raw: fmt.Sprintf("0.0.%d-0", v.Patch()+1)}
	}
}

// tildeCeiling returns the exclusive upper bound for ~v: the next minor.
func tildeCeiling(v Version) Version {
	return Version{raw: fmt.Sprintf("%d.%d.0-0", v.Major(), v.Minor()+1)}
}

// Constraint is a parsed dependency expression: a conjunction of clauses.
// A constraint without clauses matches any version.
type Constraint struct {
	clauses []Clause
}

// Any returns the constraint that matches every version.
func Any() Constraint {
	return Constraint{}
}

// Exact returns a constraint pinning exactly v.
func Exact(v Version) Constraint {
	return Constraint{clauses: []Clause{{Op: OpEq, Version: v}}}
}

// ParseConstraint parses a dependency expression. The empty string, "any"
// and "*" all match every version; a bare version is an exact pin.
func ParseConstraint(expr string) (Constraint, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return Any(), nil
	}

	ast, err := constraintParser.ParseString("", trimmed)
	if err != nil {
		return Constraint{}, &ConstraintSyntaxError{Expr: expr, Reason: err.Error()}
	}
	if ast.Any {
		return Any(), nil
	}

	clauses := make([]Clause, 0, len(ast.Clauses))
	for _, c := range ast.Clauses {
		op, ok := opFromToken(c.Op)
		if !ok {
			return Constraint{}, &ConstraintSyntaxError{Expr: expr, Reason: fmt.Sprintf("unknown comparator %q", c.Op)}
		}
		v, err := Parse(strings.TrimPrefix(c.Version, "v"))
		if err != nil {
			return Constraint{}, &ConstraintSyntaxError{Expr: expr, Reason: err.Error()}
		}
		clauses = append(clauses, Clause{Op: op, Version: v})
	}
	return Constraint{clauses: clauses}, nil
}

// MustParseConstraint parses a constraint, panicking on error.
func MustParseConstraint(expr string) Constraint {
	c, err := ParseConstraint(expr)
	if err != nil {
		panic(err)
	}
	return c
}

// Allows reports whether v satisfies every clause.
func (c Constraint) Allows(v Version) bool {
	for _, clause := range c.clauses {
		if !clause.Allows(v) {
			return false
		}
	}
	return true
}

// Filter returns the versions that satisfy the constraint, preserving order.
func (c Constraint) Filter(versions []Version) []Version {
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		if c.Allows(v) {
			out = append(out, v)
		}
	}
	return out
}

// IsAny reports whether the constraint matches every version.
func (c Constraint) IsAny() bool {
	return len(c.clauses) == 0
}

// ExactVersion returns the pinned version for single "=" constraints.
func (c Constraint) ExactVersion() (Version, bool) {
	if len(c.clauses) == 1 && c.clauses[0].Op == OpEq {
		return c.clauses[0].Version, true
	}
	return Version{}, false
}

// Pins reports whether the constraint contains an exact clause for v.
func (c Constraint) Pins(v Version) bool {
	for _, clause := range c.clauses {
		if clause.Op == OpEq && clause.Version.Equal(v) {
			return true
		}
	}
	return false
}

// Clauses returns a copy of the clauses.
func (c Constraint) Clauses() []Clause {
	out := make([]Clause, len(c.clauses))
	copy(out, c.clauses)
	return out
}

// And returns the conjunction of two constraints.
func (c Constraint) And(other Constraint) Constraint {
	clauses := make([]Clause, 0, len(c.clauses)+len(other.clauses))
	clauses = append(clauses, c.clauses...)
	clauses = append(clauses, other.clauses...)
	return Constraint{clauses: clauses}
}

// String returns the canonical expression ("any" for the empty constraint).
func (c Constraint) String() string {
	if c.IsAny() {
		return "any"
	}
	parts := make([]string, len(c.clauses))
	for i, clause := range c.clauses {
		parts[i] = clause.String()
	}
	return strings.Join(parts, ", ")
}

// MarshalText implements encoding.TextMarshaler.
func (c Constraint) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Constraint) UnmarshalText(data []byte) error {
	parsed, err := ParseConstraint(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
