package tui

import (
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Readm/backend_flow_sim/core"
	"github.com/Readm/backend_flow_sim/engine"
)

const packetRune = '●'

var (
	lineStyle   = tcell.StyleDefault.Foreground(tcell.ColorDimGray)
	nodeStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	flashColors = map[core.FlashKind]tcell.Color{
		core.FlashSuccess: tcell.ColorGreen,
		core.FlashError:   tcell.ColorRed,
		core.FlashProcess: tcell.ColorDodgerBlue,
	}
)

// glyph is one character cell of the node map.
type glyph struct {
	X, Y  int
	Ch    rune
	Style tcell.Style
}

// project maps a percentage position onto a w x h character grid.
func project(p core.Position, w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	x := int(math.Round(p.X / 100 * float64(w-1)))
	y := int(math.Round(p.Y / 100 * float64(h-1)))
	return clamp(x, 0, w-1), clamp(y, 0, h-1)
}

// line returns the cells between two points, endpoints included.
func line(x0, y0, x1, y1 int) [][2]int {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	var out [][2]int
	for {
		out = append(out, [2]int{x0, y0})
		if x0 == x1 && y0 == y1 {
			return out
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

func lineRune(x0, y0, x1, y1 int) rune {
	switch {
	case y0 == y1:
		return '─'
	case x0 == x1:
		return '│'
	default:
		return '·'
	}
}

// layoutMap draws connections, node badges and the packet of f on a w x h
// grid. Later glyphs cover earlier ones.
func layoutMap(f *engine.Frame, w, h int) []glyph {
	if f == nil || w <= 0 || h <= 0 {
		return nil
	}
	pos := make(map[core.NodeID]core.Position, len(f.Nodes))
	for _, n := range f.Nodes {
		pos[n.ID] = n.Position
	}

	var out []glyph
	for _, c := range f.Connections {
		x0, y0 := project(pos[c.From], w, h)
		x1, y1 := project(pos[c.To], w, h)
		ch := lineRune(x0, y0, x1, y1)
		for _, p := range line(x0, y0, x1, y1) {
			out = append(out, glyph{X: p[0], Y: p[1], Ch: ch, Style: lineStyle})
		}
	}

	for _, n := range f.Nodes {
		style := nodeStyle
		if c, ok := flashColors[n.Flash]; ok {
			style = style.Foreground(c).Bold(true)
		}
		x, y := project(n.Position, w, h)
		out = appendText(out, "["+n.Label+"]", x, y, w, style, true)
	}

	for _, p := range f.Packets {
		x, y := project(p.Position, w, h)
		style := tcell.StyleDefault.Foreground(tcell.GetColor(p.Color)).Bold(true)
		out = append(out, glyph{X: x, Y: y, Ch: packetRune, Style: style})
		if p.Label != "" {
			out = appendText(out, " "+p.Label, x+1, y, w, style, false)
		}
	}
	return out
}

// appendText lays text out on row y starting at x, or centred on x.
func appendText(out []glyph, text string, x, y, w int, style tcell.Style, centre bool) []glyph {
	runes := []rune(text)
	if centre {
		x -= len(runes) / 2
	}
	if x+len(runes) > w {
		x = w - len(runes)
	}
	if x < 0 {
		x = 0
	}
	for i, r := range runes {
		if x+i >= w {
			break
		}
		out = append(out, glyph{X: x + i, Y: y, Ch: r, Style: style})
	}
	return out
}

// mapView is a tview primitive rendering the latest frame's node map.
type mapView struct {
	*tview.Box
	mu    sync.Mutex
	frame *engine.Frame
}

func newMapView() *mapView {
	box := tview.NewBox().SetBorder(true).SetTitle(" System ").SetTitleAlign(tview.AlignLeft)
	box.SetBorderColor(uiBorderColor).SetTitleColor(uiTitleColor)
	return &mapView{Box: box}
}

func (m *mapView) SetFrame(f *engine.Frame) {
	m.mu.Lock()
	m.frame = f
	m.mu.Unlock()
}

func (m *mapView) Draw(screen tcell.Screen) {
	m.Box.DrawForSubclass(screen, m)
	x, y, w, h := m.GetInnerRect()
	m.mu.Lock()
	f := m.frame
	m.mu.Unlock()
	for _, g := range layoutMap(f, w, h) {
		screen.SetContent(x+g.X, y+g.Y, g.Ch, nil, g.Style)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
