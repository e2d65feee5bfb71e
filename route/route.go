// Package route resolves free-text start and end locations into a route
// summary used to size and flavor a narrated story.
package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// MaxDuration is the ceiling above which routes are rejected. A story for a
// longer trip would outrun any reasonable generation budget.
const MaxDuration = 4 * time.Hour

var (
	// ErrNotFound indicates no route exists between the given locations.
	ErrNotFound = errors.New("no route found")

	// ErrTooLong indicates the route exceeds the supported duration ceiling.
	ErrTooLong = errors.New("route is too long to narrate")
)

// Mode is the travel mode used for routing and pacing the story.
type Mode string

const (
	ModeWalking Mode = "walking"
	ModeDriving Mode = "driving"
)

// Valid reports whether the mode is one of the supported travel modes.
func (m Mode) Valid() bool {
	return m == ModeWalking || m == ModeDriving
}

// Summary describes a resolved route. It is immutable once a story begins.
type Summary struct {
	StartLabel   string
	EndLabel     string
	Mode         Mode
	Duration     time.Duration
	DurationText string
	DistanceText string
}

// Request is a route lookup submitted by the presentation layer.
type Request struct {
	Start string
	End   string
	Mode  Mode
}

// Planner resolves a route request into a summary.
type Planner interface {
	Plan(ctx context.Context, req Request) (Summary, error)
}

// humanDuration renders a duration the way it is spoken, e.g.
// "1 hour 5 minutes".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h == 0 && m == 0:
		return "less than a minute"
	case h == 0:
		return fmt.Sprintf("%d %s", m, plural(m, "minute"))
	case m == 0:
		return fmt.Sprintf("%d %s", h, plural(h, "hour"))
	default:
		return fmt.Sprintf("%d %s %d %s", h, plural(h, "hour"), m, plural(m, "minute"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

// humanDistance renders meters as spoken distance text.
func humanDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f meters", meters)
	}
	return humanize.CommafWithDigits(meters/1000, 1) + " kilometers"
}
