package sandbox

import (
	"strings"
	"unicode"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// Props that never reach the DOM
var reservedProps = map[string]bool{
	"children":                       true,
	"key":                            true,
	"ref":                            true,
	"dangerouslySetInnerHTML":        true,
	"suppressHydrationWarning":       true,
	"suppressContentEditableWarning": true,
	"defaultValue":                   true,
	"defaultChecked":                 true,
}

var attrAliases = map[string]string{
	"className":     "class",
	"htmlFor":       "for",
	"httpEquiv":     "http-equiv",
	"acceptCharset": "accept-charset",
}

// SVG presentation attributes keep their dashed form
var dashedAttrs = map[string]bool{
	"strokeWidth": true, "strokeLinecap": true, "strokeLinejoin": true,
	"strokeDasharray": true, "strokeDashoffset": true, "strokeOpacity": true,
	"strokeMiterlimit": true, "fillRule": true, "fillOpacity": true,
	"clipRule": true, "clipPath": true, "stopColor": true, "stopOpacity": true,
	"fontSize": true, "fontFamily": true, "fontWeight": true,
	"textAnchor": true, "dominantBaseline": true,
}

// Attributes whose case matters inside SVG
var casedAttrs = map[string]bool{"viewBox": true, "preserveAspectRatio": true}

// Enumerated attributes rendered as "true"/"false"
var enumeratedAttrs = map[string]bool{"draggable": true, "spellcheck": true, "contenteditable": true}

// Style properties that take bare numbers
var unitless = map[string]bool{
	"opacity": true, "zIndex": true, "fontWeight": true, "lineHeight": true,
	"flex": true, "flexGrow": true, "flexShrink": true, "order": true,
	"zoom": true, "gridRow": true, "gridColumn": true, "columnCount": true,
	"aspectRatio": true, "tabSize": true, "orphans": true, "widows": true,
}

// isEventProp matches onClick style handler props
func isEventProp(key string) bool {
	return len(key) > 2 && strings.HasPrefix(key, "on") && unicode.IsUpper(rune(key[2]))
}

func attrName(key string) string {
	if alias, ok := attrAliases[key]; ok {
		return alias
	}
	if strings.HasPrefix(key, "aria-") || strings.HasPrefix(key, "data-") || casedAttrs[key] {
		return key
	}
	if dashedAttrs[key] {
		return kebab(key)
	}
	return strings.ToLower(key)
}

// kebab converts camelCase to dashed-case
func kebab(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// hostAttrs computes the DOM attributes of a host fiber from its props
func (u *UI) hostAttrs(f *fiber) []html.Attribute {
	attrs := make([]html.Attribute, 0, 8)
	add := func(k, v string) { attrs = append(attrs, html.Attribute{Key: k, Val: v}) }
	seen := make(map[string]bool)

	for _, key := range f.props.Keys() {
		if reservedProps[key] || isEventProp(key) {
			continue
		}
		v := f.props.Get(key)
		if key == "value" && f.tag == "textarea" {
			continue
		}
		if key == "style" {
			if obj, ok := v.(*goja.Object); ok {
				if css := styleString(obj); css != "" {
					add("style", css)
				}
			} else if !absent(v) {
				add("style", v.String())
			}
			continue
		}

		name := attrName(key)
		if val, ok := attrValue(name, v); ok {
			add(name, val)
			seen[name] = true
		}
	}

	// Uncontrolled form state
	if !seen["value"] && f.tag != "textarea" {
		if f.domValue != nil {
			add("value", *f.domValue)
		} else if v := get(f.props, "defaultValue"); !absent(v) {
			add("value", v.String())
		}
	}
	if absent(get(f.props, "checked")) {
		checked := get(f.props, "defaultChecked").ToBoolean()
		if f.checked != nil {
			checked = *f.checked
		}
		if checked {
			add("checked", "")
		}
	}

	add(NodeIDAttr, f.id)
	return attrs
}

func attrValue(name string, v goja.Value) (string, bool) {
	if absent(v) {
		return "", false
	}
	if _, isFn := goja.AssertFunction(v); isFn {
		return "", false
	}
	if b, ok := v.Export().(bool); ok {
		if strings.HasPrefix(name, "aria-") || strings.HasPrefix(name, "data-") || enumeratedAttrs[name] {
			if b {
				return "true", true
			}
			return "false", true
		}
		return "", b
	}
	if obj, ok := v.(*goja.Object); ok && obj.ClassName() != "String" && obj.ClassName() != "Number" {
		return "", false
	}
	return v.String(), true
}

// styleString serializes a style object the way server rendering does
func styleString(obj *goja.Object) string {
	var parts []string
	for _, key := range obj.Keys() {
		v := obj.Get(key)
		if absent(v) {
			continue
		}
		if _, isBool := v.Export().(bool); isBool {
			continue
		}
		val := v.String()
		if val == "" {
			continue
		}
		switch v.Export().(type) {
		case int64, float64:
			if !unitless[key] && !strings.HasPrefix(key, "--") && val != "0" {
				val += "px"
			}
		}
		parts = append(parts, cssName(key)+":"+val)
	}
	return strings.Join(parts, ";")
}

func cssName(key string) string {
	if strings.HasPrefix(key, "--") {
		return key
	}
	if strings.HasPrefix(key, "ms") && len(key) > 2 && unicode.IsUpper(rune(key[2])) {
		return "-" + kebab(key)
	}
	name := kebab(key)
	for _, vendor := range []string{"webkit-", "moz-", "o-"} {
		if strings.HasPrefix(name, vendor) && unicode.IsUpper(rune(key[0])) {
			return "-" + name
		}
	}
	return name
}
