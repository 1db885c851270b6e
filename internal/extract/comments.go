package extract

import "strings"

// RemoveComments deletes every HTML comment from a Markdown body along with
// the whitespace that follows it. An unterminated comment runs to the end of
// the text.
func RemoveComments(body string) string {
	var b strings.Builder
	rest := body
	for {
		start := strings.Index(rest, "<!--")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])
		end := strings.Index(rest[start+2:], "-->")
		if end < 0 {
			break
		}
		rest = strings.TrimLeft(rest[start+2+end+len("-->"):], " \t\n\f\r")
	}
	return b.String()
}
