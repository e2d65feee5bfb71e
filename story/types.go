// Package story implements the segmented streaming narration engine: an
// append-only segment store, a lookahead generation scheduler, a two-stage
// generation pipeline and a playback engine glued together by a session
// controller.
package story

import (
	"time"

	"github.com/dgnsrekt/waytales/route"
	"github.com/dgnsrekt/waytales/story/audio"
)

// RouteSummary is the resolved route a story narrates, plus the narrative
// style and voice chosen for it. Immutable once the story begins.
type RouteSummary struct {
	route.Summary
	Style string
	Voice string
}

// Outline is the precomputed story arc: one short beat per planned segment
// index. Produced once, read-only afterwards.
type Outline struct {
	Beats []string
}

// GenericBeat stands in for any beat the outline is missing.
const GenericBeat = "Continue the journey, weaving in the surroundings and keeping the story moving."

// Beat returns the beat for a 1-based segment index, falling back to the
// generic continuation beat when the outline is short.
func (o Outline) Beat(index int) string {
	if index < 1 || index > len(o.Beats) {
		return GenericBeat
	}
	if b := o.Beats[index-1]; b != "" {
		return b
	}
	return GenericBeat
}

// Segment is one unit of narrative plus its decoded audio. Segments only
// enter the store once both are present; text is immutable afterwards.
type Segment struct {
	Index int
	Text  string
	Audio audio.Clip
}

// Story is one session's narration in progress.
type Story struct {
	Route         RouteSummary
	TotalEstimate int
	Outline       Outline
	Segments      *Store
}

// EstimateSegments derives the planned segment count from the route duration
// and the target per-segment duration: ceiling division, minimum one.
func EstimateSegments(routeDuration, targetSegment time.Duration) int {
	if targetSegment <= 0 {
		return 1
	}
	n := int((routeDuration + targetSegment - 1) / targetSegment)
	if n < 1 {
		n = 1
	}
	return n
}
