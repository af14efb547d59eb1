package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestPositionAtWhilePaused(t *testing.T) {
	p := PlaybackState{ReferenceTime: 42, ReferenceTimestamp: t0, IsPlaying: false}

	assert.Equal(t, 42.0, p.PositionAt(t0))
	assert.Equal(t, 42.0, p.PositionAt(t0.Add(time.Hour)))
}

func TestPositionAtWhilePlaying(t *testing.T) {
	p := PlaybackState{ReferenceTime: 42, ReferenceTimestamp: t0, IsPlaying: true}

	assert.Equal(t, 42.0, p.PositionAt(t0))
	assert.InDelta(t, 47.0, p.PositionAt(t0.Add(5*time.Second)), 1e-9)
}

func TestApplyPlayFromPaused(t *testing.T) {
	p := PlaybackState{ReferenceTime: 10, ReferenceTimestamp: t0}

	changed := p.ApplyPlay(t0.Add(time.Minute))
	require.True(t, changed)
	assert.True(t, p.IsPlaying)
	assert.Equal(t, 10.0, p.ReferenceTime)
	assert.Equal(t, t0.Add(time.Minute), p.ReferenceTimestamp)
}

func TestApplyPlayIdempotent(t *testing.T) {
	p := PlaybackState{ReferenceTime: 10, ReferenceTimestamp: t0}
	require.True(t, p.ApplyPlay(t0))

	// A second play must not move the reference instant; otherwise the
	// computed position would jump backwards.
	changed := p.ApplyPlay(t0.Add(30 * time.Second))
	assert.False(t, changed)
	assert.Equal(t, t0, p.ReferenceTimestamp)
	assert.InDelta(t, 40.0, p.PositionAt(t0.Add(30*time.Second)), 1e-9)
}

func TestApplyPauseFreezesElapsed(t *testing.T) {
	p := PlaybackState{ReferenceTime: 10, ReferenceTimestamp: t0, IsPlaying: true}

	changed := p.ApplyPause(t0.Add(8 * time.Second))
	require.True(t, changed)
	assert.False(t, p.IsPlaying)
	assert.InDelta(t, 18.0, p.ReferenceTime, 1e-9)
	assert.Equal(t, t0.Add(8*time.Second), p.ReferenceTimestamp)
}

func TestApplyPauseIdempotent(t *testing.T) {
	p := PlaybackState{ReferenceTime: 18, ReferenceTimestamp: t0}

	assert.False(t, p.ApplyPause(t0.Add(time.Minute)))
	assert.Equal(t, 18.0, p.ReferenceTime)
	assert.Equal(t, t0, p.ReferenceTimestamp)
}

func TestApplySeekKeepsPlayingFlag(t *testing.T) {
	tests := []struct {
		name    string
		playing bool
	}{
		{name: "while playing", playing: true},
		{name: "while paused", playing: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PlaybackState{ReferenceTime: 10, ReferenceTimestamp: t0, IsPlaying: tt.playing}
			p.ApplySeek(t0.Add(time.Second), 120)

			assert.Equal(t, 120.0, p.ReferenceTime)
			assert.Equal(t, t0.Add(time.Second), p.ReferenceTimestamp)
			assert.Equal(t, tt.playing, p.IsPlaying)
		})
	}
}

func TestApplyLoadResetsTriple(t *testing.T) {
	p := PlaybackState{MediaURL: "old", ReferenceTime: 99, ReferenceTimestamp: t0, IsPlaying: true}
	p.ApplyLoad(t0.Add(time.Second), "https://example.com/v.mp4")

	assert.Equal(t, "https://example.com/v.mp4", p.MediaURL)
	assert.Equal(t, 0.0, p.ReferenceTime)
	assert.False(t, p.IsPlaying)
	assert.Equal(t, t0.Add(time.Second), p.ReferenceTimestamp)
}

func TestPlayPauseSeekTrajectoryIsMonotonic(t *testing.T) {
	p := PlaybackState{ReferenceTimestamp: t0}
	now := t0

	p.ApplyPlay(now)
	now = now.Add(10 * time.Second)
	require.InDelta(t, 10.0, p.PositionAt(now), 1e-9)

	p.ApplyPause(now)
	now = now.Add(5 * time.Second)
	require.InDelta(t, 10.0, p.PositionAt(now), 1e-9)

	p.ApplyPlay(now)
	now = now.Add(2 * time.Second)
	require.InDelta(t, 12.0, p.PositionAt(now), 1e-9)

	p.ApplySeek(now, 100)
	now = now.Add(1 * time.Second)
	require.InDelta(t, 101.0, p.PositionAt(now), 1e-9)
}
