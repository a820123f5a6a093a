package templates

import "strings"

// Render replaces every {key} token in template with placeholders[key].
// A token whose key is absent is left verbatim, so an operator sees the
// malformed token instead of a blank or an error. Substitution is a
// single left-to-right pass: a placeholder value that itself contains
// token syntax is never expanded again.
func Render(template string, placeholders map[string]string) string {
	if !strings.ContainsRune(template, '{') {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	for {
		open := strings.IndexByte(template, '{')
		if open < 0 {
			b.WriteString(template)
			return b.String()
		}

		close := strings.IndexByte(template[open:], '}')
		if close < 0 {
			b.WriteString(template)
			return b.String()
		}
		close += open

		key := template[open+1 : close]
		value, ok := placeholders[key]

		b.WriteString(template[:open])
		if ok {
			b.WriteString(value)
		} else {
			b.WriteString(template[open : close+1])
		}
		template = template[close+1:]
	}
}

// RenderPair renders a title/message template pair with the same bindings.
func RenderPair(title, message string, placeholders map[string]string) (string, string) {
	return Render(title, placeholders), Render(message, placeholders)
}
