package desktop

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"

	"github.com/Readm/backend_flow_sim/core"
	"github.com/Readm/backend_flow_sim/engine"
)

var (
	cardSize     = fyne.NewSize(120, 48)
	packetRadius = float32(8)

	idleFill   = hexColor("#1e293b")
	lineColour = hexColor("#475569")
	textColour = hexColor("#e2e8f0")
	subColour  = hexColor("#94a3b8")

	flashFills = map[core.FlashKind]color.NRGBA{
		core.FlashSuccess: hexColor("#166534"),
		core.FlashError:   hexColor("#991b1b"),
		core.FlashProcess: hexColor("#1d4ed8"),
	}
)

// hexColor parses #rrggbb. Malformed input yields opaque black.
func hexColor(s string) color.NRGBA {
	c := color.NRGBA{A: 0xff}
	if len(s) != 7 || s[0] != '#' {
		return c
	}
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return color.NRGBA{A: 0xff}
	}
	return c
}

func flashFill(kind core.FlashKind) color.NRGBA {
	if c, ok := flashFills[kind]; ok {
		return c
	}
	return idleFill
}

// toPixels maps a percentage position onto a canvas of the given size.
func toPixels(p core.Position, size fyne.Size) fyne.Position {
	return fyne.NewPos(float32(p.X)/100*size.Width, float32(p.Y)/100*size.Height)
}

type nodeCard struct {
	bg    *canvas.Rectangle
	title *canvas.Text
	sub   *canvas.Text
}

type connLine struct {
	conn core.Connection
	line *canvas.Line
}

// diagram draws node cards, connection lines and the packet. It is its own
// fyne.Layout so everything follows the window size.
type diagram struct {
	positions map[core.NodeID]core.Position
	cards     map[core.NodeID]*nodeCard
	order     []core.NodeID
	lines     []connLine

	packet      *canvas.Circle
	packetLabel *canvas.Text
	packetPos   core.Position
	packetShown bool

	content *fyne.Container
}

func newDiagram(reg *core.Registry) *diagram {
	d := &diagram{
		positions: make(map[core.NodeID]core.Position),
		cards:     make(map[core.NodeID]*nodeCard),
	}
	var objects []fyne.CanvasObject
	for _, c := range reg.Connections() {
		l := canvas.NewLine(lineColour)
		l.StrokeWidth = 2
		d.lines = append(d.lines, connLine{conn: c, line: l})
		objects = append(objects, l)
	}
	for _, n := range reg.Nodes() {
		card := &nodeCard{
			bg:    canvas.NewRectangle(idleFill),
			title: canvas.NewText(n.Label, textColour),
			sub:   canvas.NewText(n.Description, subColour),
		}
		card.bg.StrokeColor = lineColour
		card.bg.StrokeWidth = 1
		card.bg.CornerRadius = 6
		card.title.Alignment = fyne.TextAlignCenter
		card.title.TextStyle = fyne.TextStyle{Bold: true}
		card.sub.Alignment = fyne.TextAlignCenter
		card.sub.TextSize = 10
		d.positions[n.ID] = n.Position
		d.cards[n.ID] = card
		d.order = append(d.order, n.ID)
		objects = append(objects, card.bg, card.title, card.sub)
	}
	d.packet = canvas.NewCircle(hexColor(core.PacketRequest.Color()))
	d.packetLabel = canvas.NewText("", textColour)
	d.packetLabel.TextSize = 11
	d.packet.Hide()
	d.packetLabel.Hide()
	objects = append(objects, d.packet, d.packetLabel)

	d.content = container.New(d, objects...)
	return d
}

// apply copies flashes and the packet from f and refreshes the canvas.
func (d *diagram) apply(f *engine.Frame) {
	for _, n := range f.Nodes {
		if card, ok := d.cards[n.ID]; ok {
			card.bg.FillColor = flashFill(n.Flash)
		}
	}
	d.packetShown = len(f.Packets) > 0
	if d.packetShown {
		p := f.Packets[0]
		d.packetPos = p.Position
		d.packet.FillColor = hexColor(p.Color)
		d.packetLabel.Text = p.Label
		d.packetLabel.Color = hexColor(p.Color)
		d.packet.Show()
		d.packetLabel.Show()
	} else {
		d.packet.Hide()
		d.packetLabel.Hide()
	}
	d.Layout(nil, d.content.Size())
	canvas.Refresh(d.content)
}

func (d *diagram) Layout(_ []fyne.CanvasObject, size fyne.Size) {
	for _, cl := range d.lines {
		cl.line.Position1 = toPixels(d.positions[cl.conn.From], size)
		cl.line.Position2 = toPixels(d.positions[cl.conn.To], size)
		cl.line.Refresh()
	}
	for _, id := range d.order {
		card := d.cards[id]
		centre := toPixels(d.positions[id], size)
		topLeft := centre.Subtract(fyne.NewPos(cardSize.Width/2, cardSize.Height/2))
		card.bg.Move(topLeft)
		card.bg.Resize(cardSize)
		card.bg.Refresh()
		card.title.Move(topLeft.Add(fyne.NewPos(0, 4)))
		card.title.Resize(fyne.NewSize(cardSize.Width, 20))
		card.sub.Move(topLeft.Add(fyne.NewPos(0, 26)))
		card.sub.Resize(fyne.NewSize(cardSize.Width, 16))
	}
	if d.packetShown {
		centre := toPixels(d.packetPos, size)
		d.packet.Move(centre.Subtract(fyne.NewPos(packetRadius, packetRadius)))
		d.packet.Resize(fyne.NewSize(2*packetRadius, 2*packetRadius))
		d.packetLabel.Move(centre.Add(fyne.NewPos(packetRadius+4, -packetRadius)))
		d.packetLabel.Resize(d.packetLabel.MinSize())
		d.packet.Refresh()
		d.packetLabel.Refresh()
	}
}

func (d *diagram) MinSize(_ []fyne.CanvasObject) fyne.Size {
	return fyne.NewSize(640, 480)
}
