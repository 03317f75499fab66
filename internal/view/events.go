package view

import (
	"fmt"
	"image/color"

	"github.com/Garsondee/Siege-Sense/internal/sim"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	logPanelWidth = 340
	logMaxEntries = 60
	logLineHeight = 13
)

// Event is a single line in the event panel.
type Event struct {
	Tick     int
	Label    string // e.g. "T0", "--"
	Category string
	Message  string
}

// EventLog is a ring buffer of recent events rendered on-screen.
type EventLog struct {
	entries []Event
	head    int
	count   int
}

// NewEventLog creates an event log with a fixed capacity.
func NewEventLog() *EventLog {
	return &EventLog{
		entries: make([]Event, logMaxEntries),
	}
}

// Add appends an entry, overwriting the oldest once full.
func (el *EventLog) Add(tick int, label, category, msg string) {
	el.entries[el.head] = Event{
		Tick:     tick,
		Label:    label,
		Category: category,
		Message:  msg,
	}
	el.head = (el.head + 1) % logMaxEntries
	if el.count < logMaxEntries {
		el.count++
	}
}

// AddEntry copies a sim log entry into the panel.
func (el *EventLog) AddEntry(e sim.LogEntry) {
	el.Add(e.Tick, e.Troop, e.Category, fmt.Sprintf("%s: %s", e.Key, e.Value))
}

// Len returns the number of buffered entries.
func (el *EventLog) Len() int { return el.count }

// Recent returns entries in chronological order (oldest first).
func (el *EventLog) Recent() []Event {
	result := make([]Event, el.count)
	for i := 0; i < el.count; i++ {
		idx := (el.head - el.count + i + logMaxEntries) % logMaxEntries
		result[i] = el.entries[idx]
	}
	return result
}

func categoryColor(category string) color.RGBA {
	switch category {
	case "brain":
		return color.RGBA{R: 230, G: 180, B: 60, A: 255}
	case "state":
		return color.RGBA{R: 90, G: 200, B: 120, A: 255}
	case "world":
		return color.RGBA{R: 110, G: 150, B: 230, A: 255}
	default:
		return color.RGBA{R: 150, G: 150, B: 150, A: 255}
	}
}

// Draw renders the event panel on the right side of the screen.
func (el *EventLog) Draw(screen *ebiten.Image, panelX int, panelH int) {
	vector.FillRect(screen, float32(panelX), 0, float32(logPanelWidth), float32(panelH), color.RGBA{R: 10, G: 12, B: 14, A: 248}, false)
	vector.StrokeLine(screen, float32(panelX), 0, float32(panelX), float32(panelH), 1.0, color.RGBA{R: 50, G: 60, B: 80, A: 255}, false)

	vector.FillRect(screen, float32(panelX), 0, float32(logPanelWidth), 18, color.RGBA{R: 20, G: 26, B: 36, A: 255}, false)
	drawText(screen, "EVENTS", panelX+8, 3, color.White)
	vector.StrokeLine(screen, float32(panelX), 18, float32(panelX+logPanelWidth), 18, 1.0, color.RGBA{R: 50, G: 70, B: 90, A: 200}, false)

	entries := el.Recent()

	// Newest at the bottom.
	maxVisible := (panelH - 26) / logLineHeight
	startIdx := 0
	if len(entries) > maxVisible {
		startIdx = len(entries) - maxVisible
	}
	visible := entries[startIdx:]
	recent := 3

	y := 22
	for i, e := range visible {
		isRecent := i >= len(visible)-recent
		if isRecent {
			vector.FillRect(screen, float32(panelX+2), float32(y), float32(logPanelWidth-4), float32(logLineHeight), color.RGBA{R: 30, G: 36, B: 46, A: 160}, false)
		}
		vector.FillRect(screen, float32(panelX+5), float32(y+4), 3, 5, categoryColor(e.Category), false)

		textCol := color.RGBA{R: 150, G: 150, B: 150, A: 255}
		if isRecent {
			textCol = color.RGBA{R: 235, G: 235, B: 235, A: 255}
		}
		line := fmt.Sprintf("%4d [%s] %s", e.Tick, e.Label, e.Message)
		if len(line) > 46 {
			line = line[:45] + "~"
		}
		drawText(screen, line, panelX+12, y, textCol)
		y += logLineHeight
	}
}
