package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Curve is a per-session metric plotted oldest to newest.
type Curve struct {
	Title  string
	Values []float64
	// Guides are drawn as dotted rules, such as the score band thresholds.
	Guides []float64
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisLabelWidth      = 6
	axisSeparator       = " │ "
	guideDotPeriod      = 4
	curveColor          = "\x1b[36m"
	guideColor          = "\x1b[90m"
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

// brailleBits maps a dot inside a 2x4 braille cell to its bit, indexed by
// [row][column].
var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// canvas holds braille masks for the curve and the guides separately so they
// can be colored apart.
type canvas struct {
	width, height int
	curve, guide  [][]uint8
}

func newCanvas(width, height int) *canvas {
	c := &canvas{width: width, height: height}
	c.curve = make([][]uint8, height)
	c.guide = make([][]uint8, height)
	for y := range c.curve {
		c.curve[y] = make([]uint8, width)
		c.guide[y] = make([]uint8, width)
	}
	return c
}

func (c *canvas) dot(layer [][]uint8, x, y int) {
	if x < 0 || y < 0 || x >= c.width*2 || y >= c.height*4 {
		return
	}
	layer[y/4][x/2] |= brailleBits[y%4][x%2]
}

// dotRow converts v to a dot row on an axis running from 0 at the bottom to
// top at the top.
func (c *canvas) dotRow(v, top float64) int {
	rows := c.height * 4
	row := int(math.Round((1 - v/top) * float64(rows-1)))
	return min(max(row, 0), rows-1)
}

func (c *canvas) rule(y int) {
	for x := 0; x < c.width*2; x += guideDotPeriod {
		c.dot(c.guide, x, y)
	}
}

func (c *canvas) cell(x, y int, color bool) string {
	curve, guide := c.curve[y][x], c.guide[y][x]
	ch := string(rune(0x2800 + int(curve|guide)))
	switch {
	case !color || curve|guide == 0:
		return ch
	case curve != 0:
		return curveColor + ch + colorReset
	default:
		return guideColor + ch + colorReset
	}
}

// PlotCurve draws c as a braille line chart. The vertical axis starts at zero
// because every history metric is a count or a duration. A width of zero or
// less fits the terminal.
func PlotCurve(w io.Writer, c Curve, width, height int, forceColor bool) error {
	if len(c.Values) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)

	values := resample(c.Values, width)
	top := axisTop(values, c.Guides)
	cv := newCanvas(width, height)
	for _, g := range c.Guides {
		if g > 0 && g <= top {
			cv.rule(cv.dotRow(g, top))
		}
	}
	prevX, prevY := -1, -1
	for i, v := range values {
		x, y := i*2, cv.dotRow(v, top)
		if prevX < 0 {
			cv.dot(cv.curve, x, y)
		} else {
			drawLine(prevX, prevY, x, y, func(px, py int) { cv.dot(cv.curve, px, py) })
		}
		prevX, prevY = x, y
	}

	useColor := shouldUseColor(w, forceColor)
	labels := axisLabels(height, top)
	var b strings.Builder
	if c.Title != "" {
		b.WriteString(c.Title + "\n")
	}
	for y := 0; y < height; y++ {
		fmt.Fprintf(&b, "%*s%s", axisLabelWidth, labels[y], axisSeparator)
		for x := 0; x < width; x++ {
			b.WriteString(cv.cell(x, y, useColor))
		}
		b.WriteString("\n")
	}
	peak := c.Values[0]
	for _, v := range c.Values {
		peak = max(peak, v)
	}
	fmt.Fprintf(&b, "%*s   latest %s  peak %s  sessions %d\n\n", axisLabelWidth, "",
		formatAxisValue(c.Values[len(c.Values)-1]), formatAxisValue(peak), len(c.Values))
	_, err := io.WriteString(w, b.String())
	return err
}

// axisTop is the smallest whole number covering every value and guide.
func axisTop(values, guides []float64) float64 {
	top := 1.0
	for _, v := range values {
		top = max(top, v)
	}
	for _, g := range guides {
		top = max(top, g)
	}
	return math.Ceil(top)
}

func axisLabels(height int, top float64) []string {
	labels := make([]string, height)
	labels[0] = formatAxisValue(top)
	if height > 2 {
		labels[height/2] = formatAxisValue(top * float64(height-1-height/2) / float64(height-1))
	}
	if height > 1 {
		labels[height-1] = "0"
	}
	return labels
}

func formatAxisValue(v float64) string {
	label := fmt.Sprintf("%.1f", v)
	if math.Abs(v-math.Round(v)) < 1e-9 {
		label = fmt.Sprintf("%.0f", v)
	}
	if utf8.RuneCountInString(label) > axisLabelWidth {
		label = fmt.Sprintf("%.0e", v)
	}
	return label
}

// PlotWidthFor computes the number of plot cells that fit next to the axis
// within totalWidth.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-axisLabelWidth-utf8.RuneCountInString(axisSeparator), minPlotWidth)
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
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// resample stretches or averages values to exactly width points.
func resample(values []float64, width int) []float64 {
	n := len(values)
	out := make([]float64, width)
	for i := range out {
		switch {
		case n == 1:
			out[i] = values[0]
		case n > width:
			start, end := i*n/width, (i+1)*n/width
			end = max(end, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		default:
			pos := float64(i) * float64(n-1) / float64(max(width-1, 1))
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

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx, sx := abs(x1-x0), sign(x1-x0)
	dy, sy := -abs(y1-y0), sign(y1-y0)
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
