// Package agenda computes the visible date ranges and the vertical grid
// layout used by the console's calendar views. The grid visually compresses
// the hours outside the working day into fixed-height bands so a full day
// fits on screen, while keeping positions monotonic and continuous at the
// band boundaries.
package agenda

import (
	"time"
)

const (
	// MinBlockHeight is the minimum rendered height of an event block in
	// pixels, keeping very short events clickable.
	MinBlockHeight = 20.0
	// ModalZIndex is the stacking layer reserved for dialogs. Event blocks
	// always stack below it.
	ModalZIndex = 1000
)

// Grid describes the vertical time axis of the week and day views.
type Grid struct {
	// HourHeight is the pixel height of one hour inside the working band.
	HourHeight float64
	// CollapsedHeight is the fixed pixel height of each off-hours band,
	// independent of the band's real duration.
	CollapsedHeight float64
	// WorkStart and WorkEnd bound the working band in whole hours.
	WorkStart int
	WorkEnd   int
	// ShowAllHours disables band collapsing and renders the full 24 hours
	// linearly.
	ShowAllHours bool
}

// DefaultGrid mirrors the console's original hard-coded layout constants.
func DefaultGrid() Grid {
	return Grid{
		HourHeight:      60,
		CollapsedHeight: 30,
		WorkStart:       7,
		WorkEnd:         20,
	}
}

// Position returns the vertical pixel offset for a moment within the day.
// Hour 24 with minute 0 addresses the bottom edge of the grid.
func (g Grid) Position(hour, minute int) float64 {
	t := float64(hour) + float64(minute)/60

	if g.ShowAllHours {
		return t * g.HourHeight
	}

	workStart := float64(g.WorkStart)
	workEnd := float64(g.WorkEnd)

	switch {
	case t < workStart:
		// Before-work band, interpolated by fraction of the band elapsed.
		if workStart == 0 {
			return 0
		}
		return t / workStart * g.CollapsedHeight
	case t < workEnd:
		return g.CollapsedHeight + (t-workStart)*g.HourHeight
	default:
		base := g.CollapsedHeight + (workEnd-workStart)*g.HourHeight
		span := 24 - workEnd
		if span <= 0 {
			return base
		}
		return base + (t-workEnd)/span*g.CollapsedHeight
	}
}

// PositionAt resolves Position for a timestamp, using its own location.
func (g Grid) PositionAt(ts time.Time) float64 {
	return g.Position(ts.Hour(), ts.Minute())
}

// TotalHeight reports the pixel height of the full grid. With collapsing
// enabled this is bounded regardless of the toggle state of the bands.
func (g Grid) TotalHeight() float64 {
	if g.ShowAllHours {
		return 24 * g.HourHeight
	}
	return 2*g.CollapsedHeight + float64(g.WorkEnd-g.WorkStart)*g.HourHeight
}

// Block is a positioned event rectangle on a day column.
type Block struct {
	AppointmentID string  `json:"appointmentId"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	Top           float64 `json:"top"`
	Height        float64 `json:"height"`
	ZIndex        int     `json:"zIndex"`
}

// Event is the minimal appointment shape the layout needs.
type Event struct {
	ID    string
	Start time.Time
	End   time.Time
}

// LayoutDay positions the events that intersect the given day column.
// Multi-day events are clipped to the day's boundaries before placement.
// Shorter blocks receive a higher z-index so they stay clickable when a
// longer block overlaps them; all blocks stack below the modal layer.
func (g Grid) LayoutDay(day time.Time, events []Event) []Block {
	dayStart := StartOfDay(day)
	dayEnd := dayStart.AddDate(0, 0, 1)

	blocks := make([]Block, 0, len(events))
	for _, ev := range events {
		if !ev.End.After(dayStart) || !ev.Start.Before(dayEnd) {
			continue
		}

		segStart, segEnd := clip(ev.Start, ev.End, dayStart, dayEnd)

		top := g.PositionAt(segStart)
		var bottom float64
		if segEnd.Equal(dayEnd) {
			bottom = g.TotalHeight()
		} else {
			bottom = g.PositionAt(segEnd)
		}

		height := bottom - top
		if height < MinBlockHeight {
			height = MinBlockHeight
		}

		blocks = append(blocks, Block{
			AppointmentID: ev.ID,
			Start:         segStart.Format(time.RFC3339),
			End:           segEnd.Format(time.RFC3339),
			Top:           top,
			Height:        height,
			ZIndex:        zIndexFor(height),
		})
	}
	return blocks
}

// zIndexFor stacks short blocks above tall ones, below the modal layer.
func zIndexFor(height float64) int {
	z := ModalZIndex - 1 - int(height)
	if z < 1 {
		z = 1
	}
	return z
}

func clip(start, end, dayStart, dayEnd time.Time) (time.Time, time.Time) {
	if start.Before(dayStart) {
		start = dayStart
	}
	if end.After(dayEnd) {
		end = dayEnd
	}
	return start, end
}
