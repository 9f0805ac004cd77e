// Package scene loads the picture a session is played on and its catalog
// of hidden errors.
package scene

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

//go:embed default.scene
var defaultScene string

// DefaultRadius is how many cells around an error still count as a hit.
const DefaultRadius = 1

// Point is a zero-based cell position.
type Point struct {
	Row int
	Col int
}

// Error is one difference between the original and the modified picture.
type Error struct {
	At      Point
	Glyph   rune
	Title   string
	Message string
}

// Scene is a picture plus the errors drawn into its modified copy.
type Scene struct {
	Name    string
	Picture [][]rune
	Errors  []Error
	Radius  int
}

// Default returns the built-in scene.
func Default() *Scene {
	s, err := Parse(strings.NewReader(defaultScene))
	if err != nil {
		panic(fmt.Sprintf("built-in scene: %v", err))
	}
	return s
}

// Load reads a scene file from path.
func Load(path string) (*Scene, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only scene file.
			_ = cerr
		}
	}()
	s, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

type section int

const (
	sectionHeader section = iota
	sectionPicture
	sectionErrors
)

// Parse reads a scene in the text format used by scene files.
func Parse(r io.Reader) (*Scene, error) {
	s := &Scene{Radius: DefaultRadius}
	sec := sectionHeader
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(raw)
		switch trimmed {
		case "[picture]":
			sec = sectionPicture
			continue
		case "[errors]":
			sec = sectionErrors
			continue
		}
		switch sec {
		case sectionPicture:
			s.Picture = append(s.Picture, []rune(raw))
		case sectionHeader, sectionErrors:
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			var err error
			if sec == sectionHeader {
				err = s.parseHeader(trimmed)
			} else {
				err = s.parseError(trimmed)
			}
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for len(s.Picture) > 0 && strings.TrimSpace(string(s.Picture[len(s.Picture)-1])) == "" {
		s.Picture = s.Picture[:len(s.Picture)-1]
	}
	if len(s.Picture) == 0 {
		return nil, fmt.Errorf("scene has no picture")
	}
	if len(s.Errors) == 0 {
		return nil, fmt.Errorf("scene has no errors")
	}
	for i, e := range s.Errors {
		if e.At.Row >= len(s.Picture) || e.At.Col >= s.Width() {
			return nil, fmt.Errorf("error %d at %d,%d is outside the picture", i+1, e.At.Row, e.At.Col)
		}
		if s.Original(e.At) == e.Glyph {
			return nil, fmt.Errorf("error %d at %d,%d does not change the picture", i+1, e.At.Row, e.At.Col)
		}
		for j := 0; j < i; j++ {
			if s.Errors[j].At == e.At {
				return nil, fmt.Errorf("errors %d and %d share cell %d,%d", j+1, i+1, e.At.Row, e.At.Col)
			}
		}
	}
	return s, nil
}

func (s *Scene) parseHeader(line string) error {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("expected key = value, got %q", line)
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch key {
	case "name":
		s.Name = value
	case "radius":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid radius %q", value)
		}
		s.Radius = n
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func (s *Scene) parseError(line string) error {
	coords, rest, ok := strings.Cut(line, " ")
	if !ok {
		return fmt.Errorf("expected \"row,col glyph | title | message\", got %q", line)
	}
	rowText, colText, ok := strings.Cut(coords, ",")
	if !ok {
		return fmt.Errorf("invalid cell %q", coords)
	}
	row, err := strconv.Atoi(rowText)
	if err != nil || row < 0 {
		return fmt.Errorf("invalid row %q", rowText)
	}
	col, err := strconv.Atoi(colText)
	if err != nil || col < 0 {
		return fmt.Errorf("invalid column %q", colText)
	}
	rest = strings.TrimLeft(rest, " ")
	glyph, size := utf8.DecodeRuneInString(rest)
	if glyph == utf8.RuneError || glyph == ' ' {
		return fmt.Errorf("missing glyph in %q", line)
	}
	rest = strings.TrimSpace(rest[size:])
	if !strings.HasPrefix(rest, "|") {
		return fmt.Errorf("expected | after glyph in %q", line)
	}
	title, message, _ := strings.Cut(rest[1:], "|")
	s.Errors = append(s.Errors, Error{
		At:      Point{Row: row, Col: col},
		Glyph:   glyph,
		Title:   strings.TrimSpace(title),
		Message: strings.TrimSpace(message),
	})
	return nil
}

// Height returns the number of picture rows.
func (s *Scene) Height() int {
	return len(s.Picture)
}

// Width returns the length of the longest picture row.
func (s *Scene) Width() int {
	w := 0
	for _, row := range s.Picture {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Original returns the unmodified cell, a space past the end of a row.
func (s *Scene) Original(p Point) rune {
	if p.Row < 0 || p.Row >= len(s.Picture) || p.Col < 0 || p.Col >= len(s.Picture[p.Row]) {
		return ' '
	}
	return s.Picture[p.Row][p.Col]
}

// Modified returns the cell as drawn with the errors applied.
func (s *Scene) Modified(p Point) rune {
	for _, e := range s.Errors {
		if e.At == p {
			return e.Glyph
		}
	}
	return s.Original(p)
}

// ErrorAt returns the index of the error closest to p within the hit
// radius. Ties go to the lower index.
func (s *Scene) ErrorAt(p Point) (int, bool) {
	best := -1
	bestDist := s.Radius + 1
	for i, e := range s.Errors {
		d := chebyshev(p, e.At)
		if d <= s.Radius && d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, best >= 0
}

// Validate checks that the scene holds exactly total errors.
func (s *Scene) Validate(total int) error {
	if len(s.Errors) != total {
		return fmt.Errorf("scene %q has %d errors, game expects %d", s.Name, len(s.Errors), total)
	}
	return nil
}

func chebyshev(a, b Point) int {
	dr := a.Row - b.Row
	if dr < 0 {
		dr = -dr
	}
	dc := a.Col - b.Col
	if dc < 0 {
		dc = -dc
	}
	if dr > dc {
		return dr
	}
	return dc
}
