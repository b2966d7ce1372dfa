package sql

import (
	"regexp"
	"strings"
)

var (
	// aliasAsRe matches "expr AS alias".
	aliasAsRe = regexp.MustCompile(`(?i)^(.+?)\s+AS\s+(\S+)$`)
	// numericRe matches integer and decimal literals.
	numericRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// Escaper quotes and prefixes table and column identifiers for a grammar.
// It is a pure function of the grammar, the table prefix and the set of
// aliases declared in FROM and JOIN.
type Escaper struct {
	grammar Grammar
	prefix  string
	aliases map[string]struct{}
}

// NewEscaper returns an Escaper. Aliases are never prefixed.
func NewEscaper(g Grammar, prefix string, aliases ...string) *Escaper {
	e := &Escaper{grammar: g, prefix: prefix, aliases: make(map[string]struct{}, len(aliases))}
	for _, a := range aliases {
		e.aliases[a] = struct{}{}
	}
	return e
}

// Identifier quotes raw without applying the table prefix.
func (e *Escaper) Identifier(raw string) string {
	return e.protect(raw, false, false)
}

// Table quotes a table reference ("table", "schema.table", "table alias",
// "table AS alias"), prefixing the table segment.
func (e *Escaper) Table(raw string) string {
	return e.protect(raw, true, true)
}

// Column quotes a column reference ("col", "t.col", "t.*", "col AS a"),
// prefixing the table segment of qualified names.
func (e *Escaper) Column(raw string) string {
	return e.protect(raw, false, true)
}

func (e *Escaper) protect(raw string, table, prefixed bool) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return raw
	}
	item, sep, alias := splitAlias(raw)
	if isExpression(item) {
		if alias != "" {
			return item + sep + e.grammar.Quote(alias)
		}
		return item
	}
	segments := strings.Split(item, ".")
	if prefixed && e.prefix != "" {
		// The table is the last segment of a table reference and the one
		// before the column of a column reference.
		i := len(segments) - 2
		if table {
			i = len(segments) - 1
		}
		if i >= 0 && e.needsPrefix(segments[i]) {
			segments[i] = e.prefix + segments[i]
		}
	}
	for i, s := range segments {
		if s != "*" {
			segments[i] = e.grammar.Quote(s)
		}
	}
	out := strings.Join(segments, ".")
	if alias != "" {
		out += sep + e.grammar.Quote(alias)
	}
	return out
}

func (e *Escaper) needsPrefix(segment string) bool {
	if isQuoted(segment) || strings.HasPrefix(segment, e.prefix) {
		return false
	}
	_, ok := e.aliases[segment]
	return !ok
}

// splitAlias splits "item AS alias" or "item alias". The separator is
// returned so the original form is preserved.
func splitAlias(raw string) (item, sep, alias string) {
	if m := aliasAsRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), " AS ", m[2]
	}
	if strings.ContainsAny(raw, "()'") {
		return raw, "", ""
	}
	if i := strings.LastIndexAny(raw, " \t"); i > 0 {
		return strings.TrimSpace(raw[:i]), " ", strings.TrimSpace(raw[i+1:])
	}
	return raw, "", ""
}

// isExpression reports whether s is a function call, literal or operator
// expression that must be emitted verbatim.
func isExpression(s string) bool {
	return strings.ContainsAny(s, "()'+-*/ ") && s != "*" && !strings.HasSuffix(s, ".*") ||
		numericRe.MatchString(s)
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	switch s[0] {
	case '"', '`', '[':
		return true
	}
	return false
}

// aliasOf returns the alias declared by a FROM/JOIN table reference.
func aliasOf(raw string) string {
	_, _, alias := splitAlias(strings.TrimSpace(raw))
	return alias
}
