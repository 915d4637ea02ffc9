// Package filter compiles the declaration query language: a whitespace
// separated list of tokens, all of which a declaration has to satisfy.
//
//	is:<kind|visibility|role>   structure, visibility and parameter roles
//	name:<text>                 case-insensitive substring of the name
//	annotation:any              any live annotation
//	annotation:@<kind>          a live annotation of one kind
//	usages:<op><n>              usage count comparison
//	usefulness:<op><n>          usefulness comparison
//
// Any token may be negated with a leading "!". Comparison operators are
// <, <=, >=, > and =; a missing operator means =.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/apicurate/internal/annotation"
	"github.com/phobologic/apicurate/internal/model"
	"github.com/phobologic/apicurate/internal/usage"
)

// Env is what a filter is evaluated against besides the declaration itself.
// Both fields may be nil.
type Env struct {
	Annotations *annotation.Store
	Usages      *usage.Table
}

type predicate func(d *model.Declaration, env Env) bool

type token struct {
	raw    string
	negate bool
	match  predicate // nil when the token is malformed
}

func (t token) eval(d *model.Declaration, env Env) bool {
	if t.match == nil {
		return false
	}
	return t.match(d, env) != t.negate
}

// Filter is a compiled filter string. Two filters are equal when their
// sources are.
type Filter struct {
	source string
	tokens []token
}

// InvalidTokenError lists the tokens Compile rejected.
type InvalidTokenError struct {
	Tokens []string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid filter tokens: %s", strings.Join(e.Tokens, " "))
}

var comparisonRe = regexp.MustCompile(`^(usages|usefulness):(<=|>=|<|>|=)?(\d+)$`)

var isPredicates = map[string]predicate{
	"module":    kindIs(model.Module),
	"class":     kindIs(model.Class),
	"function":  kindIs(model.Function),
	"parameter": kindIs(model.Parameter),
	"public":    func(d *model.Declaration, _ Env) bool { return d.IsPublic },
	"internal":  func(d *model.Declaration, _ Env) bool { return !d.IsPublic },
	"required":  func(d *model.Declaration, _ Env) bool { return d.IsRequired() },
	"optional":  func(d *model.Declaration, _ Env) bool { return d.IsOptional() },

	"implicit":       assignedBy(model.Implicit),
	"positionOnly":   assignedBy(model.PositionOnly),
	"positionOrName": assignedBy(model.PositionOrName),
	"nameOnly":       assignedBy(model.NameOnly),
}

func kindIs(k model.Kind) predicate {
	return func(d *model.Declaration, _ Env) bool { return d.Kind == k }
}

func assignedBy(a model.Assignment) predicate {
	return func(d *model.Declaration, _ Env) bool {
		return d.Kind == model.Parameter && d.Assignment == a
	}
}

// valueVariants maps the value-flavoured annotation names onto the variant
// of a value annotation they stand for.
var valueVariants = map[string]annotation.ValueVariant{
	"attribute": annotation.Constant,
	"constant":  annotation.Constant,
	"optional":  annotation.Optional,
	"required":  annotation.Required,
}

func annotationPredicate(name string) predicate {
	if name == "any" {
		return func(d *model.Declaration, env Env) bool {
			return env.Annotations != nil && env.Annotations.HasAny(d.ID())
		}
	}
	name = strings.TrimPrefix(name, "@")
	if variant, ok := valueVariants[name]; ok {
		return func(d *model.Declaration, env Env) bool {
			return env.Annotations != nil && env.Annotations.HasValue(d.ID(), variant)
		}
	}
	kind, err := annotation.ParseKind(name)
	if err != nil {
		return nil
	}
	return func(d *model.Declaration, env Env) bool {
		return env.Annotations != nil && env.Annotations.Has(kind, d.ID())
	}
}

func comparison(raw string) predicate {
	m := comparisonRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return nil
	}
	measure := (*usage.Table).Usages
	if m[1] == "usefulness" {
		measure = (*usage.Table).Usefulness
	}
	var cmp func(v int) bool
	switch m[2] {
	case "<":
		cmp = func(v int) bool { return v < n }
	case "<=":
		cmp = func(v int) bool { return v <= n }
	case ">=":
		cmp = func(v int) bool { return v >= n }
	case ">":
		cmp = func(v int) bool { return v > n }
	default:
		cmp = func(v int) bool { return v == n }
	}
	return func(d *model.Declaration, env Env) bool {
		return cmp(measure(env.Usages, d))
	}
}

func compileToken(raw string) token {
	t := token{raw: raw}
	body := raw
	if strings.HasPrefix(body, "!") {
		t.negate = true
		body = body[1:]
	}
	key, value, ok := strings.Cut(body, ":")
	if !ok {
		return t
	}
	switch key {
	case "is":
		if p, ok := isPredicates[value]; ok {
			t.match = p
		}
	case "name":
		if value != "" {
			needle := strings.ToLower(value)
			t.match = func(d *model.Declaration, _ Env) bool {
				return strings.Contains(strings.ToLower(d.Name), needle)
			}
		}
	case "annotation":
		t.match = annotationPredicate(value)
	case "usages", "usefulness":
		t.match = comparison(body)
	}
	return t
}

// IsValidToken reports whether a single token, optionally negated, belongs
// to the grammar.
func IsValidToken(tok string) bool {
	return compileToken(tok).match != nil
}

// InvalidTokens returns the tokens of s that IsValidToken rejects, in order.
func InvalidTokens(s string) []string {
	var out []string
	for _, tok := range strings.Fields(s) {
		if !IsValidToken(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// Parse compiles s without rejecting anything. Malformed tokens never match,
// negated or not, so a filter with one matches nothing.
func Parse(s string) *Filter {
	f := &Filter{source: strings.Join(strings.Fields(s), " ")}
	for _, tok := range strings.Fields(s) {
		f.tokens = append(f.tokens, compileToken(tok))
	}
	return f
}

// Compile is Parse for input that must be well formed.
func Compile(s string) (*Filter, error) {
	if bad := InvalidTokens(s); len(bad) > 0 {
		return nil, &InvalidTokenError{Tokens: bad}
	}
	return Parse(s), nil
}

// String returns the normalized source of f.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Equal reports whether f and other were compiled from the same source.
func (f *Filter) Equal(other *Filter) bool {
	return f.String() == other.String()
}

// IsEmpty reports whether f has no tokens and so matches everything.
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.tokens) == 0
}

// Matches reports whether d satisfies every token of f.
func (f *Filter) Matches(d *model.Declaration, env Env) bool {
	if f == nil {
		return true
	}
	for _, t := range f.tokens {
		if !t.eval(d, env) {
			return false
		}
	}
	return true
}

// Apply returns the subtree of root made of the declarations matching f and
// their ancestors. root itself is left untouched.
func (f *Filter) Apply(root *model.Declaration, env Env) *model.Declaration {
	return root.Filter(func(d *model.Declaration) bool {
		return f.Matches(d, env)
	})
}
