// Package generator builds random error layouts over a scene picture.
package generator

import (
	"fmt"
	"math/rand"
	"time"
	"unicode"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/scene"
)

// glyphs are the replacement characters a random error may draw.
var glyphs = []rune("#@*%&?!x+=o")

// Generator produces randomized error layouts.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Layout returns a copy of base with count errors placed on random drawn
// cells. Errors are kept far enough apart that their hit areas never
// overlap.
func (g *Generator) Layout(base *scene.Scene, count int) (*scene.Scene, error) {
	if count <= 0 {
		return nil, fmt.Errorf("error count must be > 0")
	}
	var candidates []scene.Point
	for r, row := range base.Picture {
		for c, ch := range row {
			if !unicode.IsSpace(ch) {
				candidates = append(candidates, scene.Point{Row: r, Col: c})
			}
		}
	}
	g.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	out := &scene.Scene{
		Name:    base.Name,
		Picture: base.Picture,
		Radius:  base.Radius,
	}
	minGap := 2*base.Radius + 1
	for _, p := range candidates {
		if len(out.Errors) == count {
			break
		}
		if tooClose(out.Errors, p, minGap) {
			continue
		}
		original := base.Original(p)
		glyph := g.pickGlyph(original)
		out.Errors = append(out.Errors, scene.Error{
			At:      p,
			Glyph:   glyph,
			Title:   fmt.Sprintf("Difference %d", len(out.Errors)+1),
			Message: fmt.Sprintf("A %q was drawn where the picture has %q.", glyph, original),
		})
	}
	if len(out.Errors) < count {
		return nil, fmt.Errorf("picture has room for only %d of %d errors", len(out.Errors), count)
	}
	return out, nil
}

func (g *Generator) pickGlyph(original rune) rune {
	for {
		glyph := glyphs[g.rnd.Intn(len(glyphs))]
		if glyph != original {
			return glyph
		}
	}
}

func tooClose(placed []scene.Error, p scene.Point, gap int) bool {
	for _, e := range placed {
		dr := abs(e.At.Row - p.Row)
		dc := abs(e.At.Col - p.Col)
		if dr < gap && dc < gap {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
