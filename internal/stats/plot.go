package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/verte-zerg/roomtrack/internal/model"
)

// Series is a named sequence of tick values, one per run.
type Series struct {
	Name   string
	Values []float64
}

type dash struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisLabelWidth      = 9
	axisSeparator       = " │ "
	histogramBar        = "█"
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var dashes = []dash{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
}

var palette = []string{"\x1b[36m", "\x1b[35m", "\x1b[33m", "\x1b[32m"}

// canvas is a braille grid; each cell holds 2x4 dots.
type canvas struct {
	cells [][]uint8
}

func newCanvas(width, height int) *canvas {
	c := &canvas{cells: make([][]uint8, height)}
	for y := range c.cells {
		c.cells[y] = make([]uint8, width)
	}
	return c
}

func (c *canvas) dot(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	row, col := y/4, x/2
	if row >= len(c.cells) || col >= len(c.cells[row]) {
		return
	}
	c.cells[row][col] |= brailleBits[x%2][y%4]
}

func (c *canvas) line(x0, y0, x1, y1 int, style dash) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if style.period <= 1 || x0%style.period < style.on {
			c.dot(x0, y0)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// PlotSeries renders series on a shared time axis.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return PlotSeriesWithColor(w, title, series, width, height, false)
}

// PlotSeriesWithColor renders series on a shared time axis with optional forced color.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	series = nonEmpty(series)
	if len(series) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi-lo < 1 {
		lo--
		hi++
	}

	dotRows := height * 4
	canvases := make([]*canvas, len(series))
	for si, s := range series {
		cv := newCanvas(width, height)
		style := dashes[si%len(dashes)]
		points := resample(s.Values, width)
		prevX, prevY := -1, -1
		for i, v := range points {
			x := i * 2
			y := int(math.Round((hi - v) / (hi - lo) * float64(dotRows-1)))
			if prevX < 0 {
				cv.dot(x, y)
			} else {
				cv.line(prevX, prevY, x, y, style)
			}
			prevX, prevY = x, y
		}
		canvases[si] = cv
	}

	useColor := shouldUseColor(w, forceColor)
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(padCell(axisLabel(y, height, lo, hi), axisLabelWidth, true))
		row.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			var mask uint8
			owner := -1
			for si, cv := range canvases {
				if m := cv.cells[y][x]; m != 0 {
					mask |= m
					if owner < 0 {
						owner = si
					}
				}
			}
			ch := rune(0x2800 + int(mask))
			if useColor && owner >= 0 {
				row.WriteString(palette[owner%len(palette)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
				continue
			}
			row.WriteRune(ch)
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, legend(series, useColor)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// PlotHistogram renders a horizontal bar chart of values bucketed into bins.
func PlotHistogram(w io.Writer, title string, values []float64, bins, width int) error {
	if len(values) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = defaultPeakBins
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	counts, lo, binWidth := Histogram(values, bins)
	peak := 0
	for _, c := range counts {
		if c > peak {
			peak = c
		}
	}
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	barWidth := width - axisLabelWidth - runewidth.StringWidth(axisSeparator) - 6
	if barWidth < minPlotWidth {
		barWidth = minPlotWidth
	}
	for i, c := range counts {
		if binWidth == 0 && i > 0 {
			break
		}
		label := model.TicksFromFloat(lo + float64(i)*binWidth).String()
		bar := 0
		if peak > 0 {
			bar = int(math.Round(float64(c) / float64(peak) * float64(barWidth)))
		}
		line := padCell(label, axisLabelWidth, true) + axisSeparator + strings.Repeat(histogramBar, bar)
		if c > 0 {
			line += fmt.Sprintf(" %d", c)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - axisLabelWidth - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func axisLabel(row, height int, lo, hi float64) string {
	switch {
	case row == 0:
		return model.TicksFromFloat(hi).String()
	case row == height-1:
		return model.TicksFromFloat(lo).String()
	case height > 2 && row == height/2:
		return model.TicksFromFloat((lo + hi) / 2).String()
	}
	return ""
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := fmt.Sprintf("⠉ %s (%s)", s.Name, dashes[i%len(dashes)].name)
		if useColor {
			label = palette[i%len(palette)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func nonEmpty(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// resample stretches or averages values down to width points.
func resample(values []float64, width int) []float64 {
	n := len(values)
	out := make([]float64, width)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := (i + 1) * n / width
			if end <= start {
				end = start + 1
			}
			out[i] = Mean(values[start:end])
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(width-1)
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
