package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/waytales/gen"
	"github.com/dgnsrekt/waytales/story/audio"
)

// Pipeline runs the two-stage synthesis for one segment: outline beat to
// narrative text, narrative text to decoded audio. Each stage carries its
// own deadline and a segment only exists once both stages succeed, so a
// failure at any point leaves the store untouched and the index free for
// retry.
type Pipeline struct {
	text gen.TextGenerator
	tts  gen.Synthesizer
	cfg  Config
}

// NewPipeline creates a pipeline from the generation collaborators.
func NewPipeline(text gen.TextGenerator, tts gen.Synthesizer, cfg Config) *Pipeline {
	return &Pipeline{text: text, tts: tts, cfg: cfg}
}

// Outline produces the one-time story outline: exactly total beats covering
// a complete arc. It never fails; on generation or parse trouble it falls
// back to generic beats so outline generation can never block story start.
func (p *Pipeline) Outline(ctx context.Context, route RouteSummary, total int) Outline {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.TextTimeout)
	defer cancel()

	raw, err := p.text.Generate(ctx, outlineSystemPrompt(p.cfg.Style), outlineUserPrompt(route, total))
	if err != nil {
		log.Warn("outline generation failed, using generic outline", "err", err)
		return genericOutline(total)
	}

	beats := parseBeats(raw)
	if len(beats) > total {
		beats = beats[:total]
	}
	for len(beats) < total {
		beats = append(beats, GenericBeat)
	}
	return Outline{Beats: beats}
}

// Segment runs both stages for the given index and returns the finished
// segment. The returned error wraps one of the engine's error kinds.
func (p *Pipeline) Segment(ctx context.Context, route RouteSummary, outline Outline, index, total int, tail string) (Segment, error) {
	text, err := p.generateText(ctx, route, outline.Beat(index), index, total, tail)
	if err != nil {
		return Segment{}, err
	}

	clip, err := p.synthesize(ctx, text, route.Voice)
	if err != nil {
		// The text is discarded along with the segment; a text-only
		// segment is never a stored state.
		return Segment{}, err
	}

	return Segment{Index: index, Text: text, Audio: clip}, nil
}

func (p *Pipeline) generateText(ctx context.Context, route RouteSummary, beat string, index, total int, tail string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.TextTimeout)
	defer cancel()

	start := time.Now()
	text, err := p.text.Generate(ctx, segmentSystemPrompt(p.cfg.Style), p.segmentUserPrompt(route, beat, index, total, tail))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("segment %d: %w", index, ErrTextTimeout)
		}
		return "", fmt.Errorf("segment %d: %w: %v", index, ErrTextGeneration, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("segment %d: %w: empty narrative", index, ErrTextGeneration)
	}

	log.Debug("text stage complete", "segment", index, "chars", len(text), "elapsed", time.Since(start))
	return text, nil
}

func (p *Pipeline) synthesize(ctx context.Context, text, voice string) (audio.Clip, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AudioTimeout)
	defer cancel()

	start := time.Now()
	raw, err := p.tts.Synthesize(ctx, text, voice)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return audio.Clip{}, ErrAudioTimeout
		}
		return audio.Clip{}, fmt.Errorf("speech synthesis: %w", err)
	}

	clip, err := audio.DecodePCM(raw.Data, raw.SampleRate)
	if err != nil {
		return audio.Clip{}, err
	}

	log.Debug("audio stage complete", "duration", clip.Duration, "elapsed", time.Since(start))
	return clip, nil
}

func outlineSystemPrompt(style string) string {
	return "You plan audio stories for travelers. Narrative style: " + style + "."
}

func outlineUserPrompt(route RouteSummary, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a story told during a %s trip from %s to %s, lasting about %s.\n",
		route.Mode, route.StartLabel, route.EndLabel, route.DurationText)
	fmt.Fprintf(&b, "Write exactly %d numbered beats, one line each, covering a complete arc: setup, rising action, climax, resolution.\n", total)
	b.WriteString("Respond with only the numbered list.")
	return b.String()
}

func segmentSystemPrompt(style string) string {
	return "You narrate an ongoing audio story for a traveler. Narrative style: " + style +
		". Write flowing prose meant to be read aloud, with no headings or stage directions."
}

func (p *Pipeline) segmentUserPrompt(route RouteSummary, beat string, index, total int, tail string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The listener is on a %s trip from %s to %s (%s, %s).\n",
		route.Mode, route.StartLabel, route.EndLabel, route.DurationText, route.DistanceText)
	fmt.Fprintf(&b, "This is part %d of %d.\n", index, total)
	fmt.Fprintf(&b, "Beat for this part: %s\n", beat)
	fmt.Fprintf(&b, "Write about %d words.\n", p.cfg.TargetWords())
	if tail != "" {
		b.WriteString("The story so far ends with:\n")
		b.WriteString(tail)
		b.WriteString("\nContinue seamlessly from there.")
	} else {
		b.WriteString("This is the opening. Draw the listener in.")
	}
	return b.String()
}

// parseBeats extracts one beat per line, stripping list numbering and
// bullets.
func parseBeats(raw string) []string {
	var beats []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789")
		line = strings.TrimLeft(line, ".)- \t")
		if line != "" {
			beats = append(beats, line)
		}
	}
	return beats
}

func genericOutline(total int) Outline {
	beats := make([]string, total)
	for i := range beats {
		beats[i] = GenericBeat
	}
	return Outline{Beats: beats}
}
