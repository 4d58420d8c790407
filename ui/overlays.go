package ui

import (
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID names a toggleable layer or panel.
type OverlayID string

const (
	OverlayConnections OverlayID = "connections"
	OverlayGlow        OverlayID = "glow"
	OverlayFlow        OverlayID = "flow"
	OverlayControls    OverlayID = "controls"
	OverlayHUD         OverlayID = "hud"
	OverlayPerf        OverlayID = "perf"
)

// Overlay categories, in panel order.
const (
	CategoryRender = "render"
	CategoryPanels = "panels"
)

// OverlayDescriptor describes one overlay and its toggle key.
type OverlayDescriptor struct {
	ID       OverlayID
	Name     string
	Key      int32 // 0 = no key
	KeyLabel string
	Category string
}

type overlayEntry struct {
	OverlayDescriptor
	on bool
}

// OverlayRegistry holds overlays in registration order with their state.
// The set is small, so lookups scan.
type OverlayRegistry struct {
	entries []overlayEntry
}

// NewOverlayRegistry returns the viewer's overlays, all disabled.
func NewOverlayRegistry() *OverlayRegistry {
	r := &OverlayRegistry{}
	for _, d := range []OverlayDescriptor{
		{OverlayConnections, "Connections", rl.KeyC, "C", CategoryRender},
		{OverlayGlow, "Glow", rl.KeyG, "G", CategoryRender},
		{OverlayFlow, "Flow Field", rl.KeyV, "V", CategoryRender},
		{OverlayControls, "Controls", rl.KeyTab, "Tab", CategoryPanels},
		{OverlayHUD, "HUD", rl.KeyH, "H", CategoryPanels},
		{OverlayPerf, "Performance", rl.KeyF, "F", CategoryPanels},
	} {
		r.Register(d)
	}
	return r
}

// Register adds a disabled overlay. Re-registering an ID replaces it.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	if e := r.find(desc.ID); e != nil {
		e.OverlayDescriptor = desc
		return
	}
	r.entries = append(r.entries, overlayEntry{OverlayDescriptor: desc})
}

func (r *OverlayRegistry) find(id OverlayID) *overlayEntry {
	for i := range r.entries {
		if r.entries[i].ID == id {
			return &r.entries[i]
		}
	}
	return nil
}

// Toggle flips id and returns its new state; unknown ids stay false.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	e := r.find(id)
	if e == nil {
		return false
	}
	e.on = !e.on
	return e.on
}

// SetEnabled sets id's state. Unknown ids are ignored.
func (r *OverlayRegistry) SetEnabled(id OverlayID, on bool) {
	if e := r.find(id); e != nil {
		e.on = on
	}
}

func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	e := r.find(id)
	return e != nil && e.on
}

// ByCategory returns the descriptors in category, in registration order.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var out []OverlayDescriptor
	for _, e := range r.entries {
		if e.Category == category {
			out = append(out, e.OverlayDescriptor)
		}
	}
	return out
}

// Categories returns each category once, in first-seen order.
func (r *OverlayRegistry) Categories() []string {
	var cats []string
	for _, e := range r.entries {
		if !slices.Contains(cats, e.Category) {
			cats = append(cats, e.Category)
		}
	}
	return cats
}

// HandleKeys toggles every overlay whose key went down this frame.
func (r *OverlayRegistry) HandleKeys() {
	for i := range r.entries {
		e := &r.entries[i]
		if e.Key != 0 && rl.IsKeyPressed(e.Key) {
			e.on = !e.on
		}
	}
}
