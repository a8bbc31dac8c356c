// Package local plays preview clips through the system speaker. It is the
// fallback transport for sessions whose tier does not allow full remote
// playback.
package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/tessro/cadence/internal/core"
	cadenceerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/logger"
	"github.com/tessro/cadence/internal/store"
)

var speakerInitialized bool

// Player streams preview clips. Clips are short, so each one is fetched
// fully into memory before decoding; that also makes seeking reliable.
type Player struct {
	store        *store.Store
	log          *slog.Logger
	httpClient   *http.Client
	pollInterval time.Duration

	mu       sync.Mutex
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	streamer beep.StreamSeekCloser
	format   beep.Format
	percent  int

	tickCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a preview player. pollInterval governs how often the
// position ticker writes progress into the store.
func New(st *store.Store, pollInterval time.Duration, log *slog.Logger) *Player {
	if log == nil {
		log = logger.Discard()
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Player{
		store:        st,
		log:          log,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		percent:      st.Snapshot().Volume,
	}
}

// Init reports the player ready. There is no device to acquire; the
// speaker itself is opened lazily on the first decoded clip.
func (p *Player) Init(ctx context.Context) error {
	p.store.SetReady(true)
	return nil
}

// Play fetches and starts the track's preview clip. A nil track resumes
// the currently loaded clip. Tracks without a preview clip fail with
// ErrPreviewUnavailable and never reach the speaker.
func (p *Player) Play(ctx context.Context, track *core.Track) error {
	if track == nil {
		return p.resume()
	}

	if !track.HasPreview() {
		p.store.SetPlaying(false)
		p.store.SetLastError(cadenceerrors.UserMessage(cadenceerrors.ErrPreviewUnavailable))
		return cadenceerrors.ErrPreviewUnavailable
	}

	clip, err := p.fetchClip(ctx, track.PreviewURL)
	if err != nil {
		p.store.SetPlaying(false)
		p.store.SetLastError(cadenceerrors.UserMessage(err))
		return err
	}

	streamer, format, err := mp3.Decode(newClipReader(clip))
	if err != nil {
		p.store.SetPlaying(false)
		p.store.SetLastError(cadenceerrors.UserMessage(cadenceerrors.ErrPlaybackFailed))
		return fmt.Errorf("%w: decode preview: %v", cadenceerrors.ErrPlaybackFailed, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !speakerInitialized {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			return fmt.Errorf("%w: open speaker: %v", cadenceerrors.ErrPlaybackFailed, err)
		}
		speakerInitialized = true
	}

	p.stopLocked()

	p.streamer = streamer
	p.format = format
	p.ctrl = &beep.Ctrl{Streamer: streamer}
	p.volume = &effects.Volume{
		Streamer: p.ctrl,
		Base:     2,
		Volume:   levelToVolume(p.percent),
		Silent:   p.percent == 0,
	}

	speaker.Play(beep.Seq(p.volume, beep.Callback(p.onClipEnded)))

	duration := format.SampleRate.D(streamer.Len())
	p.log.Debug("preview clip started", "track", track.ID, "duration", duration)

	p.store.SetDuration(duration)
	p.store.SetPosition(0)
	p.store.SetPlaying(true)
	p.store.SetLastError("")

	p.startTickerLocked()
	return nil
}

// resume unpauses the loaded clip.
func (p *Player) resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return cadenceerrors.ErrTransportNotReady
	}

	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()

	p.store.SetPlaying(true)
	return nil
}

// Pause pauses the loaded clip in place.
func (p *Player) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return cadenceerrors.ErrTransportNotReady
	}

	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()

	p.store.SetPlaying(false)
	return nil
}

// Seek moves within the loaded clip, clamped to the clip bounds.
func (p *Player) Seek(ctx context.Context, position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return cadenceerrors.ErrTransportNotReady
	}

	sample := p.format.SampleRate.N(position)
	if sample < 0 {
		sample = 0
	}
	if max := p.streamer.Len() - 1; sample > max {
		sample = max
	}

	speaker.Lock()
	err := p.streamer.Seek(sample)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("seek preview: %w", err)
	}

	p.store.SetPosition(p.format.SampleRate.D(sample))
	return nil
}

// SetVolume maps a 0-100 percent onto beep's logarithmic volume scale.
// Zero percent silences the effect outright instead of approximating
// silence with a large negative exponent.
func (p *Player) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.percent = percent
	if p.volume != nil {
		speaker.Lock()
		p.volume.Volume = levelToVolume(percent)
		p.volume.Silent = percent == 0
		speaker.Unlock()
	}
	return nil
}

// Close stops playback and releases the loaded clip.
func (p *Player) Close() error {
	p.mu.Lock()
	p.stopLocked()
	p.mu.Unlock()

	p.wg.Wait()
	p.store.SetReady(false)
	return nil
}

// stopLocked must be called with the lock held.
func (p *Player) stopLocked() {
	if p.tickCancel != nil {
		p.tickCancel()
		p.tickCancel = nil
	}
	if p.streamer != nil {
		speaker.Clear()
		p.streamer.Close()
		p.streamer = nil
	}
	p.ctrl = nil
	p.volume = nil
}

// onClipEnded fires from the speaker goroutine when the clip drains.
// Clip end stops playback in place; it never advances the queue.
func (p *Player) onClipEnded() {
	p.store.SetPlaying(false)
	p.store.SetPosition(0)
}

// startTickerLocked must be called with the lock held.
func (p *Player) startTickerLocked() {
	if p.tickCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.tickCancel = cancel
	p.wg.Add(1)
	go p.tickLoop(ctx)
}

// tickLoop writes the clip position into the store at a fixed interval.
// The decoder has no progress events, so the ticker is the only position
// feedback source for this transport.
func (p *Player) tickLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.streamer == nil {
				p.mu.Unlock()
				return
			}
			speaker.Lock()
			pos := p.format.SampleRate.D(p.streamer.Position())
			speaker.Unlock()
			p.mu.Unlock()

			p.store.SetPosition(pos)
		}
	}
}

// fetchClip downloads the preview clip into memory.
func (p *Player) fetchClip(ctx context.Context, previewURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, previewURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cadenceerrors.ErrPreviewUnavailable, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cadenceerrors.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: preview fetch returned %d", cadenceerrors.ErrTransient, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: preview fetch returned %d", cadenceerrors.ErrPreviewUnavailable, resp.StatusCode)
	}

	clip, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cadenceerrors.ErrTransient, err)
	}
	return clip, nil
}

// clipReader adapts an in-memory clip to the ReadSeekCloser the decoder
// wants. Seeking in memory keeps streamer.Seek exact.
type clipReader struct {
	*bytes.Reader
}

func newClipReader(data []byte) *clipReader {
	return &clipReader{Reader: bytes.NewReader(data)}
}

func (c *clipReader) Close() error { return nil }

// levelToVolume converts 0-100 percent to beep's base-2 volume exponent:
// 100 -> 0 (unity), 50 -> -1 (half), 25 -> -2.
func levelToVolume(percent int) float64 {
	if percent <= 0 {
		return -10
	}
	if percent >= 100 {
		return 0
	}
	return math.Log2(float64(percent) / 100)
}
