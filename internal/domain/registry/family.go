package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrInvalidFamily is returned for catalog entries that break the table
// invariants.
var ErrInvalidFamily = errors.New("invalid family")

// ComponentKind selects how the sandbox renders a symbol
type ComponentKind string

const (
	// KindElement renders a single host element around its children
	KindElement ComponentKind = "element"
	// KindProvider renders only its children (roots, portals, contexts)
	KindProvider ComponentKind = "provider"
	// KindFunction is a plain callable, e.g. the toast trigger
	KindFunction ComponentKind = "function"
)

var (
	keyPattern    = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	symbolPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// reserved names cannot be bound by an export in strict module code
var reserved = map[string]bool{
	"await": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true,
	"delete": true, "do": true, "else": true, "enum": true, "export": true,
	"extends": true, "false": true, "finally": true, "for": true,
	"function": true, "if": true, "implements": true, "import": true,
	"in": true, "instanceof": true, "interface": true, "let": true,
	"new": true, "null": true, "package": true, "private": true,
	"protected": true, "public": true, "return": true, "static": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "yield": true, "arguments": true, "eval": true,
}

// StateSpec mirrors a boolean prop into a data-state attribute
type StateSpec struct {
	Prop string `yaml:"prop" json:"prop"`
	On   string `yaml:"on" json:"on"`
	Off  string `yaml:"off" json:"off"`
}

// Component describes one exported symbol of a family
type Component struct {
	Name  string            `yaml:"name" json:"name"`
	Kind  ComponentKind     `yaml:"kind" json:"kind"`
	Tag   string            `yaml:"tag" json:"tag,omitempty"`
	Slot  string            `yaml:"slot" json:"slot,omitempty"`
	Class string            `yaml:"class" json:"class,omitempty"`
	Attrs map[string]string `yaml:"attrs" json:"attrs,omitempty"`
	State *StateSpec        `yaml:"state" json:"state,omitempty"`

	// Family is filled in by the loader
	Family string `yaml:"-" json:"family"`
}

// Family is a named group of components sharing one module
type Family struct {
	Key        string      `yaml:"key" json:"key"`
	Components []Component `yaml:"components" json:"components"`
}

// Symbols returns the exported symbol names in declaration order
func (f *Family) Symbols() []string {
	names := make([]string, len(f.Components))
	for i, c := range f.Components {
		names[i] = c.Name
	}
	return names
}

// Default returns the family's default export: its first symbol
func (f *Family) Default() string {
	if len(f.Components) == 0 {
		return ""
	}
	return f.Components[0].Name
}

// normalize validates the family and fills in defaults
func (f *Family) normalize() error {
	if !keyPattern.MatchString(f.Key) {
		return fmt.Errorf("%w: key %q", ErrInvalidFamily, f.Key)
	}
	if len(f.Components) == 0 {
		return fmt.Errorf("%w: %s has no components", ErrInvalidFamily, f.Key)
	}

	seen := make(map[string]bool, len(f.Components))
	for i := range f.Components {
		c := &f.Components[i]
		if !symbolPattern.MatchString(c.Name) || reserved[c.Name] {
			return fmt.Errorf("%w: %s has invalid symbol %q", ErrInvalidFamily, f.Key, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: %s declares %s twice", ErrInvalidFamily, f.Key, c.Name)
		}
		seen[c.Name] = true

		switch c.Kind {
		case "":
			c.Kind = KindElement
		case KindElement, KindProvider, KindFunction:
		default:
			return fmt.Errorf("%w: %s.%s has unknown kind %q", ErrInvalidFamily, f.Key, c.Name, c.Kind)
		}
		if c.Kind == KindElement && c.Tag == "" {
			c.Tag = "div"
		}
		if c.Slot == "" {
			c.Slot = kebab(c.Name)
		}
		if c.State != nil && c.State.Prop == "" {
			return fmt.Errorf("%w: %s.%s state has no prop", ErrInvalidFamily, f.Key, c.Name)
		}
		c.Family = f.Key
	}
	return nil
}

// kebab converts CardHeader to card-header
func kebab(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
