package audio

import (
	"fmt"
	"os"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// resampleQuality trades CPU for fidelity when a clip's rate differs from the output
const resampleQuality = 4

// Clip is a decoded sound held in memory at the output sample rate
type Clip struct {
	path   string
	buffer *beep.Buffer
}

// LoadClip decodes a WAV file into memory, resampling to rate when needed
func LoadClip(path string, rate beep.SampleRate) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrClipMissing, path)
		}
		return nil, fmt.Errorf("opening clip %s: %w", path, err)
	}
	defer f.Close()

	stream, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding clip %s: %w", path, err)
	}

	var src beep.Streamer = stream
	if format.SampleRate != rate {
		src = beep.Resample(resampleQuality, format.SampleRate, rate, stream)
	}

	buffer := beep.NewBuffer(beep.Format{
		SampleRate:  rate,
		NumChannels: format.NumChannels,
		Precision:   format.Precision,
	})
	buffer.Append(src)

	return &Clip{path: path, buffer: buffer}, nil
}

// Path returns the file the clip was loaded from
func (c *Clip) Path() string {
	return c.path
}

// Len returns the clip length in samples
func (c *Clip) Len() int {
	return c.buffer.Len()
}

// Streamer returns a fresh reader positioned at the start of the clip
func (c *Clip) Streamer() beep.StreamSeeker {
	return c.buffer.Streamer(0, c.buffer.Len())
}

// clipCache stores decoded clips by sound type
type clipCache struct {
	mu    sync.RWMutex
	store [soundTypeCount]*Clip
}

func (c *clipCache) get(st SoundType) *Clip {
	if st < 0 || st >= soundTypeCount {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store[st]
}

func (c *clipCache) put(st SoundType, clip *Clip) {
	if st < 0 || st >= soundTypeCount {
		return
	}
	c.mu.Lock()
	c.store[st] = clip
	c.mu.Unlock()
}
