// Package filter implements the glob include/exclude predicate described by
// the --filter CLI flag.
package filter

import (
	"regexp"
	"strings"

	"github.com/syncpair/syncpair/internal/syncstate"
)

// atom is one compiled glob expression, optionally negated.
type atom struct {
	re      *regexp.Regexp
	negated bool
}

// Filter is a compiled, ordered list of glob atoms.
type Filter struct {
	atoms       []atom
	defaultVerd bool // true = include by default
}

// Compile parses a comma/semicolon-separated list of glob expressions, each
// optionally prefixed with "!" for negation, into a Filter. An empty
// expression compiles to a Filter that includes everything.
func Compile(expr string) (*Filter, error) {
	raw := strings.FieldsFunc(expr, func(r rune) bool { return r == ',' || r == ';' })
	if len(raw) == 0 {
		return &Filter{defaultVerd: true}, nil
	}

	atoms := make([]atom, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		negated := strings.HasPrefix(r, "!")
		pattern := strings.TrimPrefix(r, "!")
		pattern = strings.ToLower(pattern)
		re, err := regexp.Compile(translate(pattern))
		if err != nil {
			return nil, &invalidPatternError{pattern: r}
		}
		atoms = append(atoms, atom{re: re, negated: negated})
	}

	// Default verdict: include when the first atom is negative, exclude when
	// the first atom is positive.
	defaultVerd := true
	if len(atoms) > 0 {
		defaultVerd = atoms[0].negated
	}

	return &Filter{atoms: atoms, defaultVerd: defaultVerd}, nil
}

// translate turns a glob pattern into an anchored regular expression,
// the way Python's fnmatch.translate does: "*" becomes ".*" and is free to
// cross "/", "?" becomes any single character, and everything else is taken
// literally. This is deliberately looser than a conventional shell glob
// (where "*" stops at a path separator) because a bare "*" in the middle of
// a pattern is expected to match across path segments, e.g. "*foo*" matches
// "spam/foo/file".
func translate(pattern string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

type invalidPatternError struct{ pattern string }

func (e *invalidPatternError) Error() string {
	return "filter: invalid glob pattern: " + e.pattern
}

// Match reports whether path should be included, scanning atoms in order: a
// positive match sets the verdict to include and continues scanning; a
// negative match returns exclude immediately.
func (f *Filter) Match(path string) bool {
	verdict := f.defaultVerd
	lower := strings.ToLower(path)
	for _, a := range f.atoms {
		if !a.re.MatchString(lower) {
			continue
		}
		if a.negated {
			return false
		}
		verdict = true
	}
	return verdict
}

// Apply returns a new StorageState containing only the entries whose path
// matches f. Applying the same filter twice to the result is idempotent,
// since Match is a pure function of the path.
func Apply(f *Filter, state *syncstate.StorageState) *syncstate.StorageState {
	out := syncstate.NewStorageState()
	for p, fs := range state.Files {
		if f.Match(p) {
			out.Files[p] = fs
		}
	}
	return out
}
