// Package media provides the local tracks a session sends.
//
// Capturing a camera or microphone is outside this module: a capturer feeds
// encoded samples through WriteSample. Without one, the audio track carries
// Opus silence so the partner still sees a live stream.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"

	"github.com/1ureka/whodis/internal/util"
)

// ErrNoTracks means acquisition produced nothing to send.
var ErrNoTracks = errors.New("no local media tracks")

// ErrStopped is returned by WriteSample after Stop.
var ErrStopped = errors.New("media source stopped")

// Kind names a local track.
type Kind string

const (
	Audio Kind = "audio"
	Video Kind = "video"
)

const (
	streamID  = "whodis"
	opusFrame = 20 * time.Millisecond
)

// opusSilence is a single Opus frame encoding 20ms of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// Options select the tracks to create.
type Options struct {
	Audio bool
	Video bool

	// SilentAudio pumps Opus silence into the audio track until Stop.
	SilentAudio bool
}

// Source owns the local tracks and their enabled flags.
type Source struct {
	mu      sync.Mutex
	tracks  map[Kind]*webrtc.TrackLocalStaticSample
	enabled map[Kind]bool
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Acquire creates the requested tracks, all enabled.
func Acquire(ctx context.Context, opts Options) (*Source, error) {
	s := &Source{
		tracks:  make(map[Kind]*webrtc.TrackLocalStaticSample),
		enabled: make(map[Kind]bool),
	}

	if opts.Audio {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			string(Audio), streamID)
		if err != nil {
			return nil, fmt.Errorf("%w: audio: %v", ErrNoTracks, err)
		}
		s.tracks[Audio], s.enabled[Audio] = track, true
	}
	if opts.Video {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			string(Video), streamID)
		if err != nil {
			return nil, fmt.Errorf("%w: video: %v", ErrNoTracks, err)
		}
		s.tracks[Video], s.enabled[Video] = track, true
	}
	if len(s.tracks) == 0 {
		return nil, ErrNoTracks
	}

	ctx, s.cancel = context.WithCancel(ctx)
	if opts.SilentAudio && opts.Audio {
		s.wg.Add(1)
		go s.pumpSilence(ctx)
	}
	return s, nil
}

// Tracks returns the tracks to attach to a new peer connection.
func (s *Source) Tracks() []webrtc.TrackLocal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []webrtc.TrackLocal
	for _, kind := range []Kind{Audio, Video} {
		if track, ok := s.tracks[kind]; ok {
			out = append(out, track)
		}
	}
	return out
}

// Has reports whether a track of kind exists.
func (s *Source) Has(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tracks[kind]
	return ok
}

// Enabled reports whether kind is currently sent.
func (s *Source) Enabled(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled[kind]
}

// SetEnabled turns sending of kind on or off. It only affects what this
// side writes; nothing is signaled to the partner.
func (s *Source) SetEnabled(kind Kind, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracks[kind]; ok {
		s.enabled[kind] = on
	}
}

// Toggle flips kind and returns the new value.
func (s *Source) Toggle(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracks[kind]; !ok {
		return false
	}
	s.enabled[kind] = !s.enabled[kind]
	return s.enabled[kind]
}

// WriteSample sends one encoded sample on kind. Samples for a disabled or
// missing track are dropped without error.
func (s *Source) WriteSample(kind Kind, sample pionmedia.Sample) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	track, ok := s.tracks[kind]
	on := s.enabled[kind]
	s.mu.Unlock()

	if !ok || !on {
		return nil
	}
	return track.WriteSample(sample)
}

// Stop ends the silence pump and rejects further samples.
func (s *Source) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Source) pumpSilence(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(opusFrame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.WriteSample(Audio, pionmedia.Sample{Data: opusSilence, Duration: opusFrame})
			if err != nil && !errors.Is(err, ErrStopped) {
				util.LogDebug("silence write: %v", err)
			}
		}
	}
}
