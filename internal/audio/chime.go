package audio

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/stack"
)

// Chime plays a sound when a notification is admitted.
type Chime struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  *Player
	enabled bool
	sound   string // default sound, ~ already expanded
}

// NewChime creates a chime on the system speaker.
func NewChime(cfg *config.Config, logger *slog.Logger) *Chime {
	return newChime(NewPlayer(logger), cfg, logger)
}

func newChime(player *Player, cfg *config.Config, logger *slog.Logger) *Chime {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chime{logger: logger, player: player}
	c.Configure(cfg)
	return c
}

// Configure applies the audio section of cfg. A changed sound file is
// decoded again on its next use.
func (c *Chime) Configure(cfg *config.Config) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	sound := cfg.SoundPath()

	c.mu.Lock()
	c.enabled = cfg.Audio.Enabled
	c.sound = sound
	c.mu.Unlock()

	c.player.SetVolume(float64(cfg.Audio.Volume) / 100)
	c.player.ClearCache()

	if cfg.Audio.Enabled && sound != "" {
		if err := c.player.Preload(sound); err != nil {
			c.logger.Warn("failed to preload chime", "path", sound, "error", err)
		}
	}
}

// SoundFor returns the file to play for req, or "" for silence.
// A request's own sound wins over the configured one; a silent request never plays.
func (c *Chime) SoundFor(req stack.Request) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled || req.Silent {
		return ""
	}
	if req.Sound != "" {
		return req.Sound
	}
	return c.sound
}

// Announce plays the chime for req without blocking the caller.
func (c *Chime) Announce(req stack.Request) {
	path := c.SoundFor(req)
	if path == "" {
		return
	}
	go func() {
		if err := c.player.Play(path); err != nil {
			c.logger.Debug("failed to play chime", "path", path, "error", err)
		}
	}()
}

// Close releases the audio device.
func (c *Chime) Close() {
	c.player.Close()
}
