package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Renderer handles all UI drawing with consistent styling.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel draws a panel background with border.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawSectionHeader draws a section header and returns the new Y position.
func (r *Renderer) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	return y + r.Theme.LineHeight
}

// DrawLabelValue draws a label and value on the same line.
func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawText(value, x+r.Theme.LabelWidth, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight
}

// DrawSlider draws a labelled slider for d and returns the quantized value
// and the new Y position.
func (r *Renderer) DrawSlider(x, y, width int32, d SliderDescriptor, value float64) (float64, int32) {
	rl.DrawText(d.Label, x, y, r.Theme.FontSize, r.Theme.LabelColor)

	text := fmt.Sprintf("%.*f", d.Precision, value)
	textW := rl.MeasureText(text, r.Theme.FontSize)
	rl.DrawText(text, x+width-textW, y, r.Theme.FontSize, r.Theme.ValueColor)
	y += r.Theme.LineHeight

	bounds := rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(width), Height: float32(r.Theme.SliderHeight)}
	got := gui.SliderBar(bounds, "", "", float32(value), float32(d.Min), float32(d.Max))

	// float32 round trip must not count as an edit
	if float64(got) != float64(float32(value)) {
		value = d.Quantize(float64(got))
	}
	return value, y + r.Theme.SliderHeight + 6
}

// DrawButton draws a button and reports whether it was clicked.
func (r *Renderer) DrawButton(x, y, width int32, text string) bool {
	bounds := rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(width), Height: float32(r.Theme.ButtonHeight)}
	return gui.Button(bounds, text)
}

// DrawToggle draws a status indicator, a name and a right-aligned key label.
func (r *Renderer) DrawToggle(x, y, width int32, name, key string, enabled bool) int32 {
	status := r.Theme.ToggleOff
	nameColor := r.Theme.LabelColor
	if enabled {
		status = r.Theme.ToggleOn
		nameColor = rl.White
	}
	rl.DrawRectangle(x, y+2, 8, 8, status)
	rl.DrawText(name, x+14, y, r.Theme.FontSize, nameColor)

	if key != "" {
		keyText := fmt.Sprintf("[%s]", key)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
	return y + r.Theme.LineHeight
}
