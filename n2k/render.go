package n2k

import (
	"fmt"
	"io"
	"strings"
)

// errorMarker prefixes rendered values when decoding reported any failure
const errorMarker = "[!] "

// FormatHeader renders frame timestamp, PGN and addressing information.
func FormatHeader(f Frame) string {
	ts := float32(float64(f.Timestamp) / 1000.0)
	if f.IsBroadcast() {
		return fmt.Sprintf("%.3f\tPGN %06d broadcast from %03d", ts, f.PGN, f.Source)
	}
	return fmt.Sprintf("%.3f\tPGN %06d sent from %03d to %03d", ts, f.PGN, f.Source, f.Destination)
}

// Format decodes frame and renders header and decoded values as single line. Frames with PGNs without decoder are
// rendered as `-- Not parsed --`.
func Format(f Frame) string {
	b := strings.Builder{}
	b.WriteString(FormatHeader(f))
	b.WriteByte('\t')

	vs, ok := NewValueSet(f.PGN)
	if !ok {
		b.WriteString("-- Not parsed --")
		return b.String()
	}
	if err := vs.Decode(f); err != nil {
		b.WriteString(errorMarker)
	}
	b.WriteString(vs.String())
	return b.String()
}

// Render writes formatted frame line to writer.
func Render(w io.Writer, f Frame) error {
	_, err := io.WriteString(w, Format(f)+"\n")
	return err
}
