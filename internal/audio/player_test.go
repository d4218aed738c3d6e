package audio

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/stack"
)

type fakeOutput struct {
	mu      sync.Mutex
	inits   []beep.SampleRate
	played  []beep.Streamer
	closed  int
	initErr error
}

func (o *fakeOutput) Init(rate beep.SampleRate, bufferSize int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inits = append(o.inits, rate)
	return o.initErr
}

func (o *fakeOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.played = append(o.played, s)
}

func (o *fakeOutput) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
}

func (o *fakeOutput) playCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.played)
}

// writeWAV writes a short silent clip at the given sample rate.
func writeWAV(t *testing.T, dir, name string, rate beep.SampleRate) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(rate.N(50*time.Millisecond)), format))
	return path
}

func TestPlayer_PlayDecodesOnce(t *testing.T) {
	out := &fakeOutput{}
	p := newPlayer(out, nil)
	path := writeWAV(t, t.TempDir(), "pop.wav", 44100)

	require.NoError(t, p.Play(path))
	assert.True(t, p.Cached(path))

	// Served from memory once decoded.
	require.NoError(t, os.Remove(path))
	require.NoError(t, p.Play(path))

	assert.Equal(t, []beep.SampleRate{44100}, out.inits)
	assert.Equal(t, 2, out.playCount())
}

func TestPlayer_Volume(t *testing.T) {
	out := &fakeOutput{}
	p := newPlayer(out, nil)
	path := writeWAV(t, t.TempDir(), "pop.wav", 44100)

	p.SetVolume(0.5)
	require.NoError(t, p.Play(path))
	require.Len(t, out.played, 1)
	vol, ok := out.played[0].(*effects.Volume)
	require.True(t, ok, "attenuated playback is wrapped in a volume effect")
	assert.InDelta(t, -1.0, vol.Volume, 1e-9)

	p.SetVolume(0)
	require.NoError(t, p.Play(path))
	assert.Len(t, out.played, 1, "muted playback is skipped")

	p.SetVolume(7)
	assert.Equal(t, 1.0, p.Volume())
	p.SetVolume(-1)
	assert.Equal(t, 0.0, p.Volume())
}

func TestPlayer_Resamples(t *testing.T) {
	out := &fakeOutput{}
	p := newPlayer(out, nil)
	dir := t.TempDir()

	require.NoError(t, p.Play(writeWAV(t, dir, "a.wav", 44100)))
	require.NoError(t, p.Play(writeWAV(t, dir, "b.wav", 22050)))

	require.Len(t, out.played, 2)
	_, ok := out.played[1].(*beep.Resampler)
	assert.True(t, ok)
	assert.Len(t, out.inits, 1)
}

func TestPlayer_Errors(t *testing.T) {
	p := newPlayer(&fakeOutput{}, nil)
	dir := t.TempDir()

	assert.NoError(t, p.Play(""))
	assert.Error(t, p.Play(filepath.Join(dir, "missing.wav")))

	flac := filepath.Join(dir, "x.flac")
	require.NoError(t, os.WriteFile(flac, []byte("fLaC"), 0o644))
	err := p.Play(flac)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio format")

	bad := filepath.Join(dir, "bad.wav")
	require.NoError(t, os.WriteFile(bad, []byte("not a wav"), 0o644))
	assert.Error(t, p.Play(bad))
	assert.False(t, p.Cached(bad))
}

func TestPlayer_InitFailure(t *testing.T) {
	out := &fakeOutput{initErr: errors.New("no audio device")}
	p := newPlayer(out, nil)
	path := writeWAV(t, t.TempDir(), "pop.wav", 44100)

	err := p.Preload(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio device")
	assert.False(t, p.Cached(path))
}

func TestPlayer_Close(t *testing.T) {
	out := &fakeOutput{}
	p := newPlayer(out, nil)
	path := writeWAV(t, t.TempDir(), "pop.wav", 44100)
	require.NoError(t, p.Preload(path))

	p.Close()
	p.Close()
	assert.Equal(t, 1, out.closed)
	assert.False(t, p.Cached(path))
}

func TestChime_SoundFor(t *testing.T) {
	cfg := config.DefaultConfig()
	c := newChime(newPlayer(&fakeOutput{}, nil), cfg, nil)

	assert.Empty(t, c.SoundFor(stack.Request{Sound: "/tmp/x.wav"}), "disabled by default")

	cfg.Audio.Enabled = true
	cfg.Audio.Sound = "/tmp/default.wav"
	c.Configure(cfg)

	assert.Equal(t, "/tmp/default.wav", c.SoundFor(stack.Request{}))
	assert.Equal(t, "/tmp/x.wav", c.SoundFor(stack.Request{Sound: "/tmp/x.wav"}))
	assert.Empty(t, c.SoundFor(stack.Request{Silent: true}))
}

func TestChime_ConfigurePreloadsAndSetsVolume(t *testing.T) {
	out := &fakeOutput{}
	player := newPlayer(out, nil)
	path := writeWAV(t, t.TempDir(), "chime.wav", 44100)

	cfg := config.DefaultConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Volume = 25
	cfg.Audio.Sound = path
	newChime(player, cfg, nil)

	assert.True(t, player.Cached(path))
	assert.InDelta(t, 0.25, player.Volume(), 1e-9)

	cfg.Audio.Enabled = false
	newChime(player, cfg, nil)
	assert.False(t, player.Cached(path), "reconfiguring drops decoded sounds")
}

func TestChime_Announce(t *testing.T) {
	out := &fakeOutput{}
	path := writeWAV(t, t.TempDir(), "chime.wav", 44100)

	cfg := config.DefaultConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Volume = 100
	cfg.Audio.Sound = path
	c := newChime(newPlayer(out, nil), cfg, nil)

	c.Announce(stack.Request{Title: "hi"})
	assert.Eventually(t, func() bool { return out.playCount() == 1 }, time.Second, 5*time.Millisecond)
}
