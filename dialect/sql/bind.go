package sql

import (
	"strconv"
	"strings"
)

// Binding is a named placeholder paired with its value.
type Binding struct {
	Name  string
	Value any
	// Escape is false for values that are inlined verbatim instead of being
	// passed as arguments.
	Escape bool
}

// Bindings is the ordered registry of placeholder names of one statement.
// Names are unique: binding the same key again yields key0, key1, ...
type Bindings struct {
	entries []Binding
	index   map[string]int
}

// NewBindings returns an empty registry.
func NewBindings() *Bindings {
	return &Bindings{index: make(map[string]int)}
}

// Bind stores value under a placeholder name derived from key and returns
// the name. The first use of a key returns the key itself; later uses append
// the smallest unused integer suffix.
func (b *Bindings) Bind(key string, value any, escape bool) string {
	key = bindKey(key)
	name := key
	for n := 0; b.has(name); n++ {
		name = key + strconv.Itoa(n)
	}
	b.index[name] = len(b.entries)
	b.entries = append(b.entries, Binding{Name: name, Value: value, Escape: escape})
	return name
}

func (b *Bindings) has(name string) bool {
	_, ok := b.index[name]
	return ok
}

// Get returns the binding registered under name.
func (b *Bindings) Get(name string) (Binding, bool) {
	if b == nil {
		return Binding{}, false
	}
	i, ok := b.index[name]
	if !ok {
		return Binding{}, false
	}
	return b.entries[i], true
}

// Len returns the number of bindings.
func (b *Bindings) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// All returns the bindings in assignment order.
func (b *Bindings) All() []Binding {
	if b == nil {
		return nil
	}
	return append([]Binding(nil), b.entries...)
}

// Names returns the placeholder names in assignment order.
func (b *Bindings) Names() []string {
	names := make([]string, 0, b.Len())
	for _, e := range b.All() {
		names = append(names, e.Name)
	}
	return names
}

// Map returns the name to value mapping.
func (b *Bindings) Map() map[string]any {
	m := make(map[string]any, b.Len())
	for _, e := range b.All() {
		m[e.Name] = e.Value
	}
	return m
}

// bindKey turns a column expression into a placeholder-safe key.
func bindKey(key string) string {
	key = strings.TrimSpace(key)
	var sb strings.Builder
	sb.Grow(len(key))
	for _, r := range key {
		switch {
		case r == '"' || r == '`' || r == '[' || r == ']':
		case r == '_' || r == '.' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	s := strings.Trim(sb.String(), "_.")
	if s == "" {
		return "bind"
	}
	return s
}

// restore appends a binding under its exact name.
func (b *Bindings) restore(bd Binding) {
	if b.has(bd.Name) {
		return
	}
	b.index[bd.Name] = len(b.entries)
	b.entries = append(b.entries, bd)
}
