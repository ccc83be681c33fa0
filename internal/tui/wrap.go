package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const segmentSeparator = " | "

// splitOverlay breaks overlay text into its "name: value" parts for either layout.
func splitOverlay(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' })
	var parts []string
	for _, field := range fields {
		for _, part := range strings.Split(field, segmentSeparator) {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
	}
	return parts
}

// wrapSegments joins segments with the separator, breaking lines at segment
// boundaries so no line exceeds width. A single segment wider than width
// is kept whole on its own line.
func wrapSegments(segments []string, width int) []string {
	if len(segments) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(segments, segmentSeparator)}
	}
	sepWidth := runewidth.StringWidth(segmentSeparator)
	var lines []string
	var line strings.Builder
	lineWidth := 0
	for _, seg := range segments {
		w := runewidth.StringWidth(seg)
		if lineWidth > 0 && lineWidth+sepWidth+w > width {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			line.WriteString(segmentSeparator)
			lineWidth += sepWidth
		}
		line.WriteString(seg)
		lineWidth += w
	}
	return append(lines, line.String())
}
