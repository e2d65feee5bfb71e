package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player is the audio output owned by the playback engine. One clip is
// active at a time; Pause, Resume and Stop are idempotent. The ended
// callback signals end-of-stream and may fire early or spuriously on some
// backends, so callers must reconfirm elapsed time before trusting it.
type Player interface {
	// PlayFrom starts the clip at the given offset, replacing any current
	// playback.
	PlayFrom(clip Clip, offset time.Duration) error

	// Pause suspends playback. Pausing a stopped or paused player is a
	// no-op.
	Pause() error

	// Resume continues paused playback. Resuming a player that is not
	// paused is a no-op.
	Resume() error

	// Stop halts playback and discards the current clip. Stopping an
	// already-stopped player is a no-op.
	Stop() error

	// Position returns the playback position within the current clip,
	// including the starting offset.
	Position() time.Duration

	// SetOnEnded registers the end-of-stream callback.
	SetOnEnded(fn func())

	// Close releases the audio device. The player is unusable afterwards.
	Close() error
}

const endedPollInterval = 50 * time.Millisecond

// OtoPlayer implements Player on top of an oto/v3 context.
// The context is created lazily from the first clip's sample rate; later
// clips must use the same rate.
type OtoPlayer struct {
	mu sync.Mutex

	context    *oto.Context
	sampleRate int

	player *oto.Player
	// Keeps clip data reachable while oto streams it.
	active Clip

	startOffset time.Duration
	startedAt   time.Time
	pausedAt    time.Duration
	paused      bool
	closed      bool

	onEnded func()
	watchCh chan struct{}
}

// NewOtoPlayer creates an audio player. The underlying device is opened on
// the first PlayFrom call.
func NewOtoPlayer() *OtoPlayer {
	return &OtoPlayer{}
}

// SetOnEnded implements Player.
func (p *OtoPlayer) SetOnEnded(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnded = fn
}

// PlayFrom implements Player.
func (p *OtoPlayer) PlayFrom(clip Clip, offset time.Duration) error {
	if clip.Empty() {
		return errors.New("clip is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("player is closed")
	}
	if err := p.ensureContext(clip.SampleRate); err != nil {
		return err
	}
	p.stopLocked()

	reader := bytes.NewReader(clip.Data[clip.byteOffset(offset):])
	player := p.context.NewPlayer(reader)
	player.Play()

	p.player = player
	p.active = clip
	p.startOffset = offset
	p.startedAt = time.Now()
	p.paused = false

	watch := make(chan struct{})
	p.watchCh = watch
	go p.watchEnd(player, watch)

	return nil
}

func (p *OtoPlayer) ensureContext(sampleRate int) error {
	if p.context != nil {
		if p.sampleRate != sampleRate {
			return fmt.Errorf("sample rate %d does not match device rate %d", sampleRate, p.sampleRate)
		}
		return nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	p.context = ctx
	p.sampleRate = sampleRate
	return nil
}

// watchEnd polls the oto player until its buffer drains, then fires the
// ended callback. oto reports IsPlaying false once the reader is consumed,
// which can be slightly ahead of the audible end.
func (p *OtoPlayer) watchEnd(player *oto.Player, cancel <-chan struct{}) {
	ticker := time.NewTicker(endedPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.player != player {
				p.mu.Unlock()
				return
			}
			if p.paused {
				p.mu.Unlock()
				continue
			}
			done := !player.IsPlaying()
			var fn func()
			if done {
				fn = p.onEnded
			}
			p.mu.Unlock()

			if done {
				if fn != nil {
					fn()
				}
				return
			}
		}
	}
}

// Pause implements Player.
func (p *OtoPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil || p.paused {
		return nil
	}
	p.player.Pause()
	p.pausedAt = p.positionLocked()
	p.paused = true
	return nil
}

// Resume implements Player.
func (p *OtoPlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil || !p.paused {
		return nil
	}
	p.player.Play()
	// Rebase the clock so position picks up where the pause left off.
	p.startedAt = time.Now()
	p.startOffset = p.pausedAt
	p.paused = false
	return nil
}

// Stop implements Player.
func (p *OtoPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *OtoPlayer) stopLocked() {
	if p.watchCh != nil {
		close(p.watchCh)
		p.watchCh = nil
	}
	if p.player != nil {
		p.player.Pause()
		_ = p.player.Close()
		p.player = nil
	}
	p.active = Clip{}
	p.startOffset = 0
	p.pausedAt = 0
	p.paused = false
}

// Position implements Player.
func (p *OtoPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *OtoPlayer) positionLocked() time.Duration {
	if p.player == nil {
		return 0
	}
	if p.paused {
		return p.pausedAt
	}
	pos := p.startOffset + time.Since(p.startedAt)
	if pos > p.active.Duration {
		pos = p.active.Duration
	}
	return pos
}

// Close implements Player.
func (p *OtoPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	// oto contexts have no Close in v3; dropping the reference is the
	// supported teardown.
	p.context = nil
	return nil
}
