package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/swarm/config"
)

// Action is what the user asked for in one frame.
type Action struct {
	Patch      config.Patch
	Randomize  bool
	TogglePlay bool
}

// ControlsPanel renders the right-side parameter panel.
type ControlsPanel struct {
	renderer *Renderer
	sliders  []SliderDescriptor
	x, y     int32
	width    int32
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		sliders:  DefaultSliders(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition moves the panel, e.g. after a window resize.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x, c.y = x, y
}

// Draw renders the panel for params and returns the user's edits.
func (c *ControlsPanel) Draw(params config.Params, paused bool, overlays *OverlayRegistry) Action {
	r := c.renderer
	padding := r.Theme.Padding
	inner := c.width - padding*2
	height := c.height(overlays)

	r.DrawPanel(c.x, c.y, c.width, height)

	x := c.x + padding
	y := c.y + padding

	rl.DrawText("Swarm", x, y, 16, rl.White)
	y += r.Theme.LineHeight + 4
	y = r.DrawLabelValue(x, y, "Style", params.Name)
	y += 4

	var act Action
	for _, d := range c.sliders {
		old := d.Get(params)
		v, next := r.DrawSlider(x, y, inner, d, old)
		if v != old {
			d.Set(&act.Patch, v)
		}
		y = next
	}

	half := (inner - padding) / 2
	playLabel := "Pause"
	if paused {
		playLabel = "Play"
	}
	act.TogglePlay = r.DrawButton(x, y, half, playLabel)
	act.Randomize = r.DrawButton(x+half+padding, y, half, "Randomize")
	y += r.Theme.ButtonHeight + padding

	for _, cat := range overlays.Categories() {
		y = r.DrawSectionHeader(x, y, categoryLabel(cat))
		for _, desc := range overlays.ByCategory(cat) {
			y = r.DrawToggle(x, y, inner, desc.Name, desc.KeyLabel, overlays.IsEnabled(desc.ID))
		}
		y += 4
	}

	return act
}

func (c *ControlsPanel) height(overlays *OverlayRegistry) int32 {
	t := c.renderer.Theme
	h := t.Padding*3 + t.LineHeight*2 + 8
	h += int32(len(c.sliders)) * (t.LineHeight + t.SliderHeight + 6)
	h += t.ButtonHeight + t.Padding
	for _, cat := range overlays.Categories() {
		h += t.LineHeight*int32(len(overlays.ByCategory(cat))+1) + 4
	}
	return h
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	switch cat {
	case CategoryRender:
		return "Render"
	case CategoryPanels:
		return "Panels"
	default:
		return cat
	}
}
