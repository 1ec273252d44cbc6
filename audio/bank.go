package audio

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/airbladder/config"
	"github.com/lixenwraith/airbladder/parameter"
)

// Options configures a Bank
type Options struct {
	Enabled    bool
	Volume     float64 // master gain 0..1
	SampleRate beep.SampleRate
	Clips      map[SoundType]string
}

// OptionsFromConfig maps the audio config section onto bank options
func OptionsFromConfig(cfg config.AudioConfig) Options {
	return Options{
		Enabled:    cfg.Enabled,
		Volume:     cfg.Volume,
		SampleRate: beep.SampleRate(parameter.AudioSampleRate),
		Clips: map[SoundType]string{
			SoundInflate:  cfg.InflateClip,
			SoundRecharge: cfg.RechargeClip,
		},
	}
}

// Bank holds the decoded clips and plays them through one mixer
// Without a started speaker the mixer is still live and can be pulled through Streamer
type Bank struct {
	mu     sync.Mutex
	opts   Options
	logger *slog.Logger
	cache  clipCache

	mixer   *beep.Mixer
	master  *effects.Volume
	inflate *voice
	oneShot []*voice

	running atomic.Bool
	played  [soundTypeCount]atomic.Int64
}

// NewBank creates a bank; clips are not read until Load
func NewBank(opts Options, logger *slog.Logger) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = beep.SampleRate(parameter.AudioSampleRate)
	}

	mixer := &beep.Mixer{}
	b := &Bank{
		opts:   opts,
		logger: logger.With("component", "audio"),
		mixer:  mixer,
		master: &effects.Volume{Streamer: mixer, Base: 2},
	}
	b.setVolume(opts.Volume)
	return b
}

// setVolume maps linear gain onto the exponential volume effect
func (b *Bank) setVolume(gain float64) {
	if gain <= 0 {
		b.master.Silent = true
		b.master.Volume = 0
		return
	}
	b.master.Silent = false
	b.master.Volume = math.Log2(gain)
}

// Load decodes every configured clip
// Missing clips are advisory: the sound is skipped at play time and the error is returned joined
func (b *Bank) Load() error {
	var errs []error
	for st, path := range b.opts.Clips {
		if path == "" {
			continue
		}
		clip, err := LoadClip(path, b.opts.SampleRate)
		if err != nil {
			b.logger.Warn("audio clip unavailable", "sound", st.String(), "path", path, "error", err)
			errs = append(errs, err)
			continue
		}
		b.cache.put(st, clip)
		b.logger.Debug("audio clip loaded", "sound", st.String(), "samples", clip.Len())
	}
	return errors.Join(errs...)
}

// Start opens the speaker and feeds it the master stream
func (b *Bank) Start() error {
	if b.running.Load() {
		return ErrAlreadyStart
	}
	rate := b.opts.SampleRate
	if err := speaker.Init(rate, rate.N(parameter.AudioBufferDuration)); err != nil {
		return err
	}
	speaker.Play(b.master)
	b.running.Store(true)
	return nil
}

// Close stops all voices and releases the speaker
func (b *Bank) Close() {
	b.withOutput(func() {
		if b.inflate != nil {
			b.inflate.stop()
			b.inflate = nil
		}
		for _, v := range b.oneShot {
			v.stop()
		}
		b.oneShot = nil
		b.mixer.Clear()
	})
	if b.running.CompareAndSwap(true, false) {
		speaker.Clear()
		speaker.Close()
	}
}

// IsRunning reports whether the speaker is open
func (b *Bank) IsRunning() bool {
	return b.running.Load()
}

// withOutput serializes mutations against the output goroutine
func (b *Bank) withOutput(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running.Load() {
		speaker.Lock()
		defer speaker.Unlock()
	}
	fn()
}

// Play starts or transitions the voice for a sound intent
// Returns false when the intent produced no audible change
func (b *Bank) Play(st SoundType) bool {
	if !b.opts.Enabled {
		return false
	}

	var played bool
	switch st {
	case SoundInflate:
		clip := b.cache.get(st)
		if clip == nil {
			return false
		}
		b.withOutput(func() {
			if b.inflate != nil {
				b.inflate.stop()
			}
			b.inflate = newVoice(clip.Streamer(), parameter.InflateVolume)
			b.mixer.Add(b.inflate)
			played = true
		})

	case SoundDeflate:
		fade := b.opts.SampleRate.N(parameter.DeflateFadeDuration)
		b.withOutput(func() {
			if b.inflate == nil || !b.inflate.live() {
				return
			}
			b.inflate.fadeOut(fade)
			b.inflate = nil
			played = true
		})

	case SoundRecharge:
		clip := b.cache.get(st)
		if clip == nil {
			return false
		}
		b.withOutput(func() {
			v := newVoice(clip.Streamer(), parameter.RechargeVolume)
			b.oneShot = pruneVoices(b.oneShot)
			b.oneShot = append(b.oneShot, v)
			b.mixer.Add(v)
			played = true
		})

	default:
		return false
	}

	if played {
		b.played[st].Add(1)
	}
	return played
}

// Stop silences a sound immediately, without a fade
func (b *Bank) Stop(st SoundType) {
	b.withOutput(func() {
		switch st {
		case SoundInflate, SoundDeflate:
			if b.inflate != nil {
				b.inflate.stop()
				b.inflate = nil
			}
		case SoundRecharge:
			for _, v := range b.oneShot {
				v.stop()
			}
			b.oneShot = nil
		}
	})
}

func pruneVoices(vs []*voice) []*voice {
	live := vs[:0]
	for _, v := range vs {
		if v.live() {
			live = append(live, v)
		}
	}
	return live
}

// ToggleMute flips the master mute and returns the new state
func (b *Bank) ToggleMute() bool {
	var muted bool
	b.withOutput(func() {
		if b.master.Silent {
			b.setVolume(b.opts.Volume)
		} else {
			b.master.Silent = true
		}
		muted = b.master.Silent
	})
	return muted
}

// IsMuted reports the master mute state
func (b *Bank) IsMuted() bool {
	var muted bool
	b.withOutput(func() { muted = b.master.Silent })
	return muted
}

// Voices returns the number of streams currently in the mixer
func (b *Bank) Voices() int {
	var n int
	b.withOutput(func() { n = b.mixer.Len() })
	return n
}

// Played returns how many times a sound intent produced output
func (b *Bank) Played(st SoundType) int64 {
	if st < 0 || st >= soundTypeCount {
		return 0
	}
	return b.played[st].Load()
}

// Pull streams n samples of the master mix when no speaker is attached
// Used by headless runs and tests to advance playback deterministically
func (b *Bank) Pull(n int) [][2]float64 {
	out := make([][2]float64, n)
	b.withOutput(func() {
		b.master.Stream(out)
	})
	return out
}
