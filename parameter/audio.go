package parameter

import "time"

// Playback mixer settings
const (
	AudioSampleRate = 44100

	// AudioBufferDuration determines speaker latency
	AudioBufferDuration = 100 * time.Millisecond
)

// Clip paths relative to the asset root
const (
	InflateClipPath  = "assets/audio/sfx_airbladder_use.wav"
	RechargeClipPath = "assets/audio/sfx_airbladder_fillair.wav"
)

// Clip volumes, linear gain
const (
	InflateVolume  = 0.3
	RechargeVolume = 0.15
)

// DeflateFadeDuration is the fade-out applied to the inflate sound when the bladder deflates
const DeflateFadeDuration = 500 * time.Millisecond
