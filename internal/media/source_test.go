package media

import (
	"context"
	"errors"
	"testing"
	"time"

	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

func TestAcquireNothing(t *testing.T) {
	if _, err := Acquire(context.Background(), Options{}); !errors.Is(err, ErrNoTracks) {
		t.Fatalf("err = %v, want ErrNoTracks", err)
	}
}

func TestAcquireTracks(t *testing.T) {
	src, err := Acquire(context.Background(), Options{Audio: true, Video: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Stop()

	tracks := src.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}
	if tracks[0].Kind().String() != "audio" || tracks[1].Kind().String() != "video" {
		t.Fatalf("kinds = %s, %s", tracks[0].Kind(), tracks[1].Kind())
	}
	if tracks[0].StreamID() != streamID {
		t.Errorf("stream id = %q", tracks[0].StreamID())
	}
}

func TestToggleIsLocalOnly(t *testing.T) {
	src, err := Acquire(context.Background(), Options{Audio: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Stop()

	if !src.Enabled(Audio) {
		t.Fatal("audio should start enabled")
	}
	if src.Toggle(Audio) {
		t.Fatal("first toggle should disable")
	}
	// Disabled tracks swallow samples.
	if err := src.WriteSample(Audio, pionmedia.Sample{Data: opusSilence, Duration: opusFrame}); err != nil {
		t.Fatalf("write to muted track: %v", err)
	}
	if !src.Toggle(Audio) {
		t.Fatal("second toggle should enable")
	}

	if src.Toggle(Video) || src.Has(Video) {
		t.Fatal("toggling a missing track must be a no-op")
	}
}

func TestStopRejectsSamples(t *testing.T) {
	src, err := Acquire(context.Background(), Options{Audio: true, SilentAudio: true})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * opusFrame)
	src.Stop()
	src.Stop()

	err = src.WriteSample(Audio, pionmedia.Sample{Data: opusSilence, Duration: opusFrame})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}
