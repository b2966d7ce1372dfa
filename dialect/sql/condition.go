package sql

import (
	"regexp"
	"strings"
)

// Connectors.
const (
	connAnd = "AND"
	connOr  = "OR"
)

var (
	// wordOpRe matches keys ending in a keyword operator ("deleted_at IS NOT").
	wordOpRe = regexp.MustCompile(`(?i)^(.+?)\s+(IS\s+NOT|IS|NOT\s+LIKE|LIKE)$`)
	// symOpRe matches keys ending in a comparison operator ("age >=").
	symOpRe = regexp.MustCompile(`^(.+?)\s*(!=|<>|<=|>=|=|<|>)$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// parseKey splits a "column operator" key. The operator defaults to "=".
func parseKey(key string) (column, op string) {
	key = strings.TrimSpace(key)
	if m := wordOpRe.FindStringSubmatch(key); m != nil {
		return strings.TrimSpace(m[1]), strings.ToUpper(spaceRe.ReplaceAllString(m[2], " "))
	}
	if m := symOpRe.FindStringSubmatch(key); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	return key, "="
}

// attach describes how a node attaches to its parent group.
type attach struct {
	conn string
	not  bool
}

func (a attach) attachment() attach { return a }

// condNode is a node of a WHERE or HAVING tree. Leaves are immutable once
// added, so clones share them.
type condNode interface {
	attachment() attach
	render(*compiler) string
}

type (
	condGroup struct {
		attach
		children []condNode
	}
	// compareCond is "<col> <op> <value>".
	compareCond struct {
		attach
		col    string
		op     string
		value  any
		escape bool
	}
	// rawCond is an opaque condition.
	rawCond struct {
		attach
		sql string
	}
	inCond struct {
		attach
		col    string
		negate bool
		values []any
		sub    SubqueryFunc
	}
	likeCond struct {
		attach
		col         string
		match       string
		side        Side
		negate      bool
		insensitive bool
	}
	betweenCond struct {
		attach
		col    string
		negate bool
		lo, hi any
	}
)

func (g *condGroup) render(c *compiler) string {
	inner := renderChildren(c, g.children)
	if inner == "" {
		return ""
	}
	return "(" + inner + ")"
}

// renderChildren joins the rendered children with their connectors. The
// first rendered child omits its connector.
func renderChildren(c *compiler, children []condNode) string {
	var sb strings.Builder
	for _, n := range children {
		s := n.render(c)
		if s == "" {
			continue
		}
		a := n.attachment()
		if sb.Len() > 0 {
			sb.WriteString(" " + a.conn + " ")
		}
		if a.not {
			sb.WriteString("NOT ")
		}
		sb.WriteString(s)
	}
	return sb.String()
}

func (n *compareCond) render(c *compiler) string {
	col := n.col
	if n.escape {
		col = c.esc.Column(col)
	}
	switch v := n.value.(type) {
	case nil:
		switch n.op {
		case "=", "IS":
			return col + " IS NULL"
		case "!=", "<>", "IS NOT":
			return col + " IS NOT NULL"
		}
		return col + " " + n.op + " NULL"
	case Expr:
		return col + " " + n.op + " " + string(v)
	case SubqueryFunc:
		return col + " " + n.op + " " + c.subquery("where", v)
	case *Builder:
		return col + " " + n.op + " " + c.subqueryOf(v)
	case Unescaped:
		return col + " " + n.op + " :" + c.binds.Bind(n.col, v.Value, false) + ":"
	default:
		return col + " " + n.op + " :" + c.binds.Bind(n.col, v, true) + ":"
	}
}

func (n *rawCond) render(*compiler) string { return n.sql }

func (n *inCond) render(c *compiler) string {
	op := " IN "
	if n.negate {
		op = " NOT IN "
	}
	col := c.esc.Column(n.col)
	if n.sub != nil {
		return col + op + c.subquery("whereIn", n.sub)
	}
	return col + op + ":" + c.binds.Bind(n.col, append([]any(nil), n.values...), true) + ":"
}

func (n *likeCond) render(c *compiler) string {
	match := n.match
	if n.side != SideNone {
		match = escapeLike(match)
	}
	switch n.side {
	case SideBefore:
		match = "%" + match
	case SideAfter:
		match += "%"
	case SideBoth:
		match = "%" + match + "%"
	}
	col, ph := c.esc.Column(n.col), ":"+c.binds.Bind(n.col, match, true)+":"
	if n.insensitive {
		col, ph = "LOWER("+col+")", "LOWER("+ph+")"
	}
	op := " LIKE "
	if n.negate {
		op = " NOT LIKE "
	}
	s := col + op + ph
	if n.side != SideNone {
		s += " ESCAPE '" + string(likeEscapeChar) + "'"
	}
	return s
}

// escapeLike escapes the LIKE wildcards and the escape character itself.
func escapeLike(s string) string {
	e := string(likeEscapeChar)
	return strings.NewReplacer(e, e+e, "%", e+"%", "_", e+"_").Replace(s)
}

func (n *betweenCond) render(c *compiler) string {
	op := " BETWEEN "
	if n.negate {
		op = " NOT BETWEEN "
	}
	lo := c.binds.Bind(n.col, n.lo, true)
	hi := c.binds.Bind(n.col, n.hi, true)
	return c.esc.Column(n.col) + op + ":" + lo + ": AND :" + hi + ":"
}

// condTree is a WHERE or HAVING tree under construction. The stack holds
// the groups opened by GroupStart and not yet closed.
type condTree struct {
	root  *condGroup
	stack []*condGroup
}

func newCondTree() *condTree {
	return &condTree{root: &condGroup{}}
}

func (t *condTree) top() *condGroup {
	if n := len(t.stack); n > 0 {
		return t.stack[n-1]
	}
	return t.root
}

func (t *condTree) add(n condNode) {
	g := t.top()
	g.children = append(g.children, n)
}

// open starts a group attached to the current group.
func (t *condTree) open(a attach) {
	g := &condGroup{attach: a}
	t.add(g)
	t.stack = append(t.stack, g)
}

// close ends the innermost group. It reports false if no group is open.
func (t *condTree) close() bool {
	if len(t.stack) == 0 {
		return false
	}
	t.stack = t.stack[:len(t.stack)-1]
	return true
}

// depth returns the number of open groups.
func (t *condTree) depth() int { return len(t.stack) }

func (t *condTree) empty() bool { return len(t.root.children) == 0 }

// clone copies the group structure. Open groups stay open in the copy.
func (t *condTree) clone() *condTree {
	groups := make(map[*condGroup]*condGroup)
	var cp func(*condGroup) *condGroup
	cp = func(g *condGroup) *condGroup {
		ng := &condGroup{attach: g.attach, children: make([]condNode, len(g.children))}
		groups[g] = ng
		for i, n := range g.children {
			if sg, ok := n.(*condGroup); ok {
				ng.children[i] = cp(sg)
			} else {
				ng.children[i] = n
			}
		}
		return ng
	}
	nt := &condTree{root: cp(t.root), stack: make([]*condGroup, len(t.stack))}
	for i, g := range t.stack {
		nt.stack[i] = groups[g]
	}
	return nt
}

func (t *condTree) render(c *compiler) string {
	return renderChildren(c, t.root.children)
}
