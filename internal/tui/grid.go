package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/scene"
)

type cellKind int

const (
	cellPlain cellKind = iota
	cellFound
	cellMiss
	cellCursor
)

type styledCell struct {
	ch    rune
	kind  cellKind
	width int
}

// panelState is what a panel needs to know about the running session.
type panelState struct {
	modified bool
	found    func(index int) bool
	misses   map[scene.Point]struct{}
	cursor   *scene.Point
}

func buildRow(s *scene.Scene, row int, st panelState) []styledCell {
	width := s.Width()
	out := make([]styledCell, 0, width)
	for col := 0; col < width; col++ {
		p := scene.Point{Row: row, Col: col}
		ch := s.Original(p)
		if st.modified {
			ch = s.Modified(p)
		}
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			ch = ' '
			w = 1
		}
		kind := cellPlain
		if idx := errorIndexAt(s, p); idx >= 0 && st.found != nil && st.found(idx) {
			kind = cellFound
		}
		if _, ok := st.misses[p]; ok && st.modified {
			kind = cellMiss
		}
		if st.cursor != nil && *st.cursor == p {
			kind = cellCursor
		}
		out = append(out, styledCell{ch: ch, kind: kind, width: w})
	}
	return out
}

func errorIndexAt(s *scene.Scene, p scene.Point) int {
	for i, e := range s.Errors {
		if e.At == p {
			return i
		}
	}
	return -1
}

func renderCells(cells []styledCell) string {
	var b strings.Builder
	for _, c := range cells {
		text := string(c.ch)
		switch c.kind {
		case cellFound:
			b.WriteString(foundStyle.Render(text))
		case cellMiss:
			b.WriteString(missStyle.Render(text))
		case cellCursor:
			b.WriteString(cursorStyle.Render(text))
		default:
			b.WriteString(pictureStyle.Render(text))
		}
	}
	return b.String()
}

func rowWidth(cells []styledCell) int {
	total := 0
	for _, c := range cells {
		total += c.width
	}
	return total
}

func renderPanel(s *scene.Scene, title string, st panelState) string {
	lines := make([]string, 0, s.Height()+1)
	width := 0
	rows := make([][]styledCell, s.Height())
	for r := range rows {
		rows[r] = buildRow(s, r, st)
		if w := rowWidth(rows[r]); w > width {
			width = w
		}
	}
	lines = append(lines, panelTitleStyle.Render(runewidth.FillRight(runewidth.Truncate(title, width, ""), width)))
	for _, cells := range rows {
		line := renderCells(cells)
		if pad := width - rowWidth(cells); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		lines = append(lines, line)
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// moveCursor clamps p moved by (dr, dc) to the picture bounds.
func moveCursor(s *scene.Scene, p scene.Point, dr, dc int) scene.Point {
	p.Row += dr
	p.Col += dc
	if p.Row < 0 {
		p.Row = 0
	}
	if p.Col < 0 {
		p.Col = 0
	}
	if h := s.Height(); p.Row >= h {
		p.Row = h - 1
	}
	if w := s.Width(); p.Col >= w {
		p.Col = w - 1
	}
	return p
}
