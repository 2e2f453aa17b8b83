package registry

import (
	"sort"

	"github.com/GriffinCanCode/playground/internal/shared/utils"
)

// Table is the read-only registry built by the Bridge
type Table struct {
	families map[string]*Family
	keys     []string
	symbols  map[string]Component
	failures []string
	version  string
}

// NewTable builds a table from normalized families. Later families never
// shadow a symbol an earlier family already published.
func NewTable(families []Family) *Table {
	t := &Table{
		families: make(map[string]*Family, len(families)),
		symbols:  make(map[string]Component),
	}

	hasher := utils.DefaultHasher()
	fields := make([]string, 0, len(families)*4)

	for i := range families {
		f := families[i]
		if _, dup := t.families[f.Key]; dup {
			continue
		}
		t.families[f.Key] = &f
		t.keys = append(t.keys, f.Key)
		for _, c := range f.Components {
			if _, taken := t.symbols[c.Name]; taken {
				continue
			}
			t.symbols[c.Name] = c
			fields = append(fields, f.Key, c.Name, string(c.Kind), c.Tag, c.Class)
		}
	}
	sort.Strings(t.keys)
	t.version = utils.Short(hasher.HashFields(fields...))

	return t
}

// Family returns the family for an exact key
func (t *Table) Family(key string) (*Family, bool) {
	f, ok := t.families[key]
	return f, ok
}

// Symbols returns the symbol names of a family, nil if unknown
func (t *Table) Symbols(key string) []string {
	if f, ok := t.families[key]; ok {
		return f.Symbols()
	}
	return nil
}

// Lookup returns the component published under a symbol name
func (t *Table) Lookup(symbol string) (Component, bool) {
	c, ok := t.symbols[symbol]
	return c, ok
}

// Keys returns the family keys in sorted order
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Families returns the families in key order
func (t *Table) Families() []Family {
	out := make([]Family, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, *t.families[k])
	}
	return out
}

// Components returns every published component sorted by symbol name
func (t *Table) Components() []Component {
	out := make([]Component, 0, len(t.symbols))
	for _, c := range t.symbols {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of published symbols
func (t *Table) Len() int {
	return len(t.symbols)
}

// Failures lists catalog entries that failed to load
func (t *Table) Failures() []string {
	return t.failures
}

// Version identifies the table contents; it changes whenever a symbol does
func (t *Table) Version() string {
	return t.version
}
