// Package render draws tiled rooms to PNG. Canvas implements world.Sink:
// Draw copies the geometry and colour of the latest grid, and the image is
// rasterised on demand from that copy. Rendering never reads live cells.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/fogleman/gg"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/talgya/hextile/internal/world"
)

// Fallback colours for patterns that are image paths rather than #rrggbb.
var defaultPalette = []string{"#2185C5", "#7ECEFD", "#FFF6E5", "#FF7F66", "#8BC34A", "#9575CD"}

// overflowColor marks cells that got no colour under the cluster limit.
var overflowColor = colorful.Color{R: 0.9, G: 0.1, B: 0.1}

// Canvas holds the latest grid handed to it and rasterises it to PNG.
type Canvas struct {
	Width, Height int
	Margin        float64

	palette []color.Color
	tiles   []tile
	borders []*world.Border
	frames  int
}

// tile is the drawable part of a cell, copied at Draw time.
type tile struct {
	corners [6]world.Point
	color   int
}

// NewCanvas creates a canvas for the given pattern sources. Sources that
// parse as hex colours are used as is; others fall back to a stock palette.
// A zero width or height is derived from the rooms at render time.
func NewCanvas(sources []string, width, height int) *Canvas {
	return &Canvas{
		Width:   width,
		Height:  height,
		Margin:  50,
		palette: Palette(sources),
	}
}

// Palette resolves pattern sources to colours.
func Palette(sources []string) []color.Color {
	out := make([]color.Color, len(sources))
	for i, src := range sources {
		if strings.HasPrefix(src, "#") {
			if c, err := colorful.Hex(src); err == nil {
				out[i] = c
				continue
			}
		}
		c, _ := colorful.Hex(defaultPalette[i%len(defaultPalette)])
		out[i] = c
	}
	return out
}

// Draw snapshots the grid. It implements world.Sink.
func (c *Canvas) Draw(cells []*world.Cell, borders []*world.Border) {
	tiles := make([]tile, len(cells))
	for i, cell := range cells {
		tiles[i] = tile{corners: cell.Corners(), color: cell.ColorIndex}
	}
	c.tiles = tiles
	c.borders = borders
	c.frames++
}

// Tiles returns how many cells the last Draw captured.
func (c *Canvas) Tiles() int {
	return len(c.tiles)
}

// Frames returns how many times Draw was called.
func (c *Canvas) Frames() int {
	return c.frames
}

// Size returns the image size: the configured one, or the first room's
// farthest corner plus the margin.
func (c *Canvas) Size() (int, int) {
	if c.Width > 0 && c.Height > 0 {
		return c.Width, c.Height
	}
	w, h := 1, 1
	if len(c.borders) > 0 {
		_, max := c.borders[0].Bounds()
		w = int(math.Ceil(max.X + c.Margin))
		h = int(math.Ceil(max.Y + c.Margin))
	}
	return w, h
}

// Color returns the fill colour of a colour index.
func (c *Canvas) Color(index int) color.Color {
	if index < 0 || index >= len(c.palette) {
		return overflowColor
	}
	return c.palette[index]
}

func (c *Canvas) render() *gg.Context {
	w, h := c.Size()
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()

	for _, t := range c.tiles {
		dc.MoveTo(t.corners[0].X, t.corners[0].Y)
		for _, p := range t.corners[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		dc.SetColor(c.Color(t.color))
		dc.Fill()
	}

	dc.SetLineWidth(1.5)
	dc.SetColor(color.Black)
	for _, b := range c.borders {
		if len(b.Path) == 0 {
			continue
		}
		dc.MoveTo(b.Path[0].X, b.Path[0].Y)
		for _, p := range b.Path[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		dc.Stroke()
	}
	return dc
}

// SavePNG writes the current grid to a PNG file.
func (c *Canvas) SavePNG(path string) error {
	if err := c.render().SavePNG(path); err != nil {
		return fmt.Errorf("save png: %w", err)
	}
	return nil
}

// EncodePNG writes the current grid as PNG to w.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return c.render().EncodePNG(w)
}
