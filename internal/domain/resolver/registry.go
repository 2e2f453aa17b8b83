package resolver

import (
	"fmt"
	"strings"
	"unicode"
)

// placeholderModule defines the fallback component factory. It renders a
// dashed box naming the missing symbol.
const placeholderModule = `import React from "react";
const registry = window[%q] || {};
const Placeholder = (name) => (props) => {
  console.warn("Shadcn component not found:", name);
  return React.createElement("div", Object.assign({}, props, {
    "data-placeholder": name,
    style: {
      padding: "0.75rem",
      border: "1px dashed #6366f1",
      borderRadius: "0.375rem",
      color: "#6366f1",
      display: "flex",
      alignItems: "center",
      justifyContent: "center",
      fontSize: "0.875rem"
    }
  }), "Shadcn Component: " + name);
};
`

// FamilyKey extracts the candidate family key from a registry import path:
// the trailing segment with any script extension removed.
func FamilyKey(importPath string) string {
	p := strings.ReplaceAll(importPath, "\\", "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	for _, ext := range []string{".tsx", ".jsx", ".ts", ".js"} {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}

// DeriveSymbol turns an unknown family key into a component name.
// Words split on '-', '_', '.' and spaces are capitalized and joined;
// runes that cannot appear in an identifier are dropped. A result that is
// empty or starts with a digit gets a "Component" prefix.
func DeriveSymbol(key string) string {
	var b strings.Builder
	upper := true
	for _, r := range key {
		switch {
		case r == '-' || r == '_' || r == '.' || r == ' ':
			upper = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '$':
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		}
	}

	name := b.String()
	if name == "" || unicode.IsDigit([]rune(name)[0]) {
		name = "Component" + name
	}
	return name
}

// RegistryContents returns the module for a registry import. A known
// family re-exports each of its symbols plus its first symbol as default;
// an unknown key exports one derived symbol as both named and default.
// Exact family matches always win over the derived name.
func RegistryContents(importPath string, families Families) string {
	key := FamilyKey(importPath)
	if key == "" {
		return "export default {};\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, placeholderModule, RegistryGlobal)

	var symbols []string
	if families != nil {
		if f, ok := families.Family(key); ok {
			symbols = f.Symbols()
		}
	}
	if len(symbols) == 0 {
		symbols = []string{DeriveSymbol(key)}
	}

	for _, name := range symbols {
		fmt.Fprintf(&b, "export const %s = %s;\n", name, binding(name))
	}
	fmt.Fprintf(&b, "export default %s;\n", binding(symbols[0]))
	return b.String()
}

func binding(name string) string {
	return fmt.Sprintf("registry[%q] ?? Placeholder(%q)", name, name)
}
