package lib

import "strings"

// NamespaceSeparator joins the components of a nested C++ namespace
const NamespaceSeparator = "::"

// IdentifierOf maps an arbitrary string to a single identifier token.
// Every character that is not an ASCII letter or digit becomes an underscore
// and runs of underscores are collapsed into one.
func IdentifierOf(path string) string {
	var b strings.Builder
	b.Grow(len(path) + 1)

	underscore := false
	for _, r := range path {
		if isAlnum(r) {
			if b.Len() == 0 && isDigit(r) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			underscore = false
			continue
		}
		if underscore {
			continue
		}
		b.WriteByte('_')
		underscore = true
	}
	return b.String()
}

// NamespaceOf maps a path to a nested namespace such as "shaders::basic::vert".
// Every character that is neither an ASCII letter, a digit nor an underscore
// acts as a separator; a run of separators yields a single "::".
func NamespaceOf(path string) string {
	var parts []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		part := current.String()
		if isDigit(rune(part[0])) {
			part = "_" + part
		}
		parts = append(parts, part)
		current.Reset()
	}

	for _, r := range path {
		if isAlnum(r) || r == '_' {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return strings.Join(parts, NamespaceSeparator)
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || isDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
