// Package format turns untrusted backend data into display strings: markup
// escaping for text and short local-time labels for timestamps.
package format

import "strings"

// htmlEscaper replaces the five markup-significant characters with their
// named references. strings.Replacer performs a single left-to-right pass,
// so an "&" produced by one replacement is never escaped again.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes s for embedding in HTML text or a quoted attribute.
//
// It is NOT idempotent: EscapeHTML(EscapeHTML("&")) is "&amp;amp;". Apply it
// exactly once, at the point where the value is placed into markup.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
