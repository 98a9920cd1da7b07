package dom

import "strings"

// Classes splits the class attribute.
func Classes(n Node) []string {
	return strings.Fields(AttrValue(n, "class"))
}

func HasClass(n Node, class string) bool {
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

func AddClass(n Node, class string) {
	if HasClass(n, class) {
		return
	}
	classes := append(Classes(n), class)
	n.SetAttr("class", strings.Join(classes, " "))
}

// StyleProperty reads one declaration from the inline style attribute.
func StyleProperty(n Node, prop string) string {
	for _, decl := range splitStyle(AttrValue(n, "style")) {
		if decl.name == prop {
			return decl.value
		}
	}
	return ""
}

// SetStyleProperty sets or replaces one inline style declaration.
func SetStyleProperty(n Node, prop, value string) {
	decls := splitStyle(AttrValue(n, "style"))
	found := false
	for i := range decls {
		if decls[i].name == prop {
			decls[i].value = value
			found = true
		}
	}
	if !found {
		decls = append(decls, declaration{name: prop, value: value})
	}
	n.SetAttr("style", joinStyle(decls))
}

// RemoveStyleProperty drops one inline style declaration. The style
// attribute is removed once it is empty.
func RemoveStyleProperty(n Node, prop string) {
	decls := splitStyle(AttrValue(n, "style"))
	kept := decls[:0]
	for _, d := range decls {
		if d.name != prop {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		n.RemoveAttr("style")
		return
	}
	n.SetAttr("style", joinStyle(kept))
}

type declaration struct {
	name  string
	value string
}

func splitStyle(style string) []declaration {
	var out []declaration
	for _, part := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		out = append(out, declaration{name: name, value: strings.TrimSpace(value)})
	}
	return out
}

func joinStyle(decls []declaration) string {
	var b strings.Builder
	for i, d := range decls {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d.name)
		b.WriteString(": ")
		b.WriteString(d.value)
		b.WriteByte(';')
	}
	return b.String()
}
