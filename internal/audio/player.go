package audio

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Output is where decoded sounds are played.
type Output interface {
	Init(rate beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Close()
}

// speakerOutput plays through beep's global speaker.
type speakerOutput struct{}

func (speakerOutput) Init(rate beep.SampleRate, bufferSize int) error {
	return speaker.Init(rate, bufferSize)
}

func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }

func (speakerOutput) Close() { speaker.Close() }

// Player decodes sound files once and replays them from memory.
type Player struct {
	mu     sync.Mutex
	logger *slog.Logger
	out    Output

	volume      float64 // linear gain, 0.0 to 1.0
	initialized bool
	sampleRate  beep.SampleRate

	cacheMu sync.RWMutex
	cache   map[string]*beep.Buffer
}

// NewPlayer creates a player for the system speaker.
func NewPlayer(logger *slog.Logger) *Player {
	return newPlayer(speakerOutput{}, logger)
}

func newPlayer(out Output, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		logger:     logger,
		out:        out,
		volume:     1.0,
		sampleRate: beep.SampleRate(44100),
		cache:      make(map[string]*beep.Buffer),
	}
}

// SetVolume sets the linear playback gain, clamped to [0, 1].
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = math.Max(0, math.Min(1, volume))
}

// Volume returns the current gain.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Play plays the file at path, decoding it on first use.
func (p *Player) Play(path string) error {
	if path == "" {
		return nil
	}
	buf, err := p.buffer(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	volume := p.volume
	rate := p.sampleRate
	p.mu.Unlock()

	if volume == 0 {
		return nil
	}

	var s beep.Streamer = buf.Streamer(0, buf.Len())
	if buf.Format().SampleRate != rate {
		s = beep.Resample(4, buf.Format().SampleRate, rate, s)
	}
	if volume < 1 {
		s = &effects.Volume{Streamer: s, Base: 2, Volume: gainExponent(volume)}
	}
	p.out.Play(s)
	return nil
}

// Preload decodes path into the cache without playing it.
func (p *Player) Preload(path string) error {
	if path == "" {
		return nil
	}
	_, err := p.buffer(path)
	return err
}

func (p *Player) buffer(path string) (*beep.Buffer, error) {
	p.cacheMu.RLock()
	buf, ok := p.cache[path]
	p.cacheMu.RUnlock()
	if ok {
		return buf, nil
	}

	buf, err := p.decode(path)
	if err != nil {
		return nil, err
	}

	p.cacheMu.Lock()
	p.cache[path] = buf
	p.cacheMu.Unlock()
	p.logger.Debug("decoded sound", "path", path)
	return buf, nil
}

// decode reads a whole file into memory. The speaker is initialized with the
// sample rate of the first sound decoded; later sounds are resampled.
func (p *Player) decode(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	defer func() { _ = streamer.Close() }()

	if err := p.ensureInitialized(format.SampleRate); err != nil {
		return nil, err
	}

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	return buf, nil
}

func (p *Player) ensureInitialized(rate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := p.out.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	p.sampleRate = rate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", rate)
	return nil
}

// ClearCache drops every decoded sound.
func (p *Player) ClearCache() {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache = make(map[string]*beep.Buffer)
}

// Cached reports whether path has been decoded.
func (p *Player) Cached(path string) bool {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	_, ok := p.cache[path]
	return ok
}

// Close releases the speaker.
func (p *Player) Close() {
	p.mu.Lock()
	if p.initialized {
		p.out.Close()
		p.initialized = false
	}
	p.mu.Unlock()
	p.ClearCache()
}

// gainExponent converts a linear gain into the base-2 exponent effects.Volume expects.
func gainExponent(volume float64) float64 {
	return math.Log2(volume)
}
