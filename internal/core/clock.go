package core

import "time"

// PlaybackState is the reference snapshot the current playback position is
// derived from: position ReferenceTime was accurate at wall-clock instant
// ReferenceTimestamp, advancing in real time while IsPlaying.
//
// The Apply* methods are the only legal mutators of the timing triple.
type PlaybackState struct {
	MediaURL           string
	ReferenceTime      float64
	ReferenceTimestamp time.Time
	IsPlaying          bool
}

// PositionAt computes the playback position in seconds as of now.
func (p PlaybackState) PositionAt(now time.Time) float64 {
	if !p.IsPlaying {
		return p.ReferenceTime
	}
	return p.ReferenceTime + now.Sub(p.ReferenceTimestamp).Seconds()
}

// ApplyPlay starts playback from the paused position. Idempotent: a second
// play leaves the triple untouched and reports no change.
func (p *PlaybackState) ApplyPlay(now time.Time) bool {
	if p.IsPlaying {
		return false
	}
	p.IsPlaying = true
	p.ReferenceTimestamp = now
	return true
}

// ApplyPause freezes the current position. Idempotent when already paused.
func (p *PlaybackState) ApplyPause(now time.Time) bool {
	if !p.IsPlaying {
		return false
	}
	p.ReferenceTime = p.PositionAt(now)
	p.IsPlaying = false
	p.ReferenceTimestamp = now
	return true
}

// ApplySeek moves the reference position; the playing flag is unchanged.
func (p *PlaybackState) ApplySeek(now time.Time, target float64) {
	p.ReferenceTime = target
	p.ReferenceTimestamp = now
}

// ApplyLoad swaps the media and resets the triple to paused-at-zero.
func (p *PlaybackState) ApplyLoad(now time.Time, url string) {
	p.MediaURL = url
	p.ReferenceTime = 0
	p.IsPlaying = false
	p.ReferenceTimestamp = now
}
