package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type align int

const (
	alignLeft align = iota
	alignRight
	// alignTime lines cells up on the decimal point. Cells without one, such as
	// the "-" placeholder, end where the whole seconds end.
	alignTime
)

type column struct {
	width int
	whole int
	frac  int
}

func formatTable(headers []string, rows [][]string, aligns map[int]align) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	cols := make([]column, colCount)
	for i, header := range headers {
		cols[i].width = displayWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := cellAt(row, i)
			if aligns[i] == alignTime {
				whole, frac := splitDecimal(cell)
				cols[i].whole = max(cols[i].whole, displayWidth(whole))
				cols[i].frac = max(cols[i].frac, displayWidth(frac))
				cols[i].width = max(cols[i].width, cols[i].whole+cols[i].frac)
				continue
			}
			cols[i].width = max(cols[i].width, displayWidth(cell))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, cols, aligns, true))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, cols, aligns, false))
	}
	return lines
}

func formatRow(row []string, cols []column, aligns map[int]align, header bool) string {
	var b strings.Builder
	for i, col := range cols {
		cell := cellAt(row, i)
		if i > 0 {
			b.WriteByte(' ')
		}
		switch aligns[i] {
		case alignTime:
			if !header {
				whole, frac := splitDecimal(cell)
				cell = padCell(whole, col.whole, true) + padCell(frac, col.frac, false)
			}
			b.WriteString(padCell(cell, col.width, true))
		case alignRight:
			b.WriteString(padCell(cell, col.width, true))
		default:
			b.WriteString(padCell(cell, col.width, false))
		}
	}
	return b.String()
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// splitDecimal splits "1:02.500" into "1:02" and ".500".
func splitDecimal(value string) (string, string) {
	idx := strings.LastIndexByte(value, '.')
	if idx < 0 {
		return value, ""
	}
	return value[:idx], value[idx:]
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
