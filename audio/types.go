package audio

import (
	"errors"
)

// SoundType is a playback intent emitted by the device
type SoundType int

const (
	SoundInflate  SoundType = iota // Bladder activated, restarts the inflate clip
	SoundDeflate                   // Bladder deactivated, fades the inflate clip out
	SoundRecharge                  // Refill started or completed, one-shot
	soundTypeCount
)

var soundNames = [soundTypeCount]string{"inflate", "deflate", "recharge"}

func (s SoundType) String() string {
	if s < 0 || s >= soundTypeCount {
		return "unknown"
	}
	return soundNames[s]
}

// Sentinel errors
var (
	ErrClipMissing  = errors.New("audio clip missing")
	ErrAlreadyStart = errors.New("audio output already started")
)
