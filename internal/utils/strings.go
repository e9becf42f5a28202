package utils

import (
	"fmt"
	"strings"
)

// Printable renders raw device bytes for log output. Whitespace control characters are written as Go escapes and
// other non-printable bytes as `\xNN`.
func Printable(s []byte) string {
	buf := strings.Builder{}
	for _, c := range s {
		switch {
		case c == '\t':
			buf.WriteString(`\t`)
		case c == '\n':
			buf.WriteString(`\n`)
		case c == '\r':
			buf.WriteString(`\r`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&buf, `\x%02x`, c)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.String()
}
