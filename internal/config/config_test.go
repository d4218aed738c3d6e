package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/stack"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5, cfg.Stack.MaxVisible)
	assert.Equal(t, "top-right", cfg.Stack.Position)
	assert.Equal(t, 10, cfg.Stack.MarginX)
	assert.Equal(t, 10, cfg.Stack.MarginY)
	assert.Equal(t, 5, cfg.Stack.Spacing)
	assert.Equal(t, 350, cfg.Panel.Width)
	assert.Equal(t, "slide-right", cfg.Panel.Animation)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Normal.Duration())
	assert.True(t, cfg.Behavior.PauseOnHover)
	assert.Equal(t, "system", cfg.Theme.ColorScheme)

	require.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/toastd.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toastd.toml")

	content := `
[stack]
max_visible = 3
position = "bottom-left"
spacing = 12

[panel]
width = 400
animation = "fade"
timeout_effect = "dismiss"

[timeouts]
low = "2s"
normal = "7500"
critical = "0"

[behavior]
pause_on_hover = false

[audio]
enabled = true
volume = 40
sound = "~/sounds/pop.ogg"

[theme]
name = "compact"
color_scheme = "dark"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Stack.MaxVisible)
	assert.Equal(t, "bottom-left", cfg.Stack.Position)
	assert.Equal(t, 12, cfg.Stack.Spacing)
	assert.Equal(t, 10, cfg.Stack.MarginX, "unset keys keep defaults")
	assert.Equal(t, 400, cfg.Panel.Width)
	assert.Equal(t, "fade", cfg.Panel.Animation)
	assert.Equal(t, "dismiss", cfg.Panel.TimeoutEffect)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Low.Duration())
	assert.Equal(t, 7500*time.Millisecond, cfg.Timeouts.Normal.Duration())
	assert.Equal(t, time.Hour, cfg.TimeoutForUrgency(UrgencyCritical))
	assert.False(t, cfg.Behavior.PauseOnHover)
	assert.True(t, cfg.Audio.Enabled)
	assert.Equal(t, 40, cfg.Audio.Volume)
	assert.Equal(t, "compact", cfg.Theme.Name)
	assert.Equal(t, "dark", cfg.Theme.ColorScheme)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toastd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[stack\nmax_visible ="), 0644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toastd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[stack]\nposition = \"middle\"\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoad_UsesXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "toastd", "toastd.toml"), Path())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "toastd"), 0755))
	require.NoError(t, os.WriteFile(Path(), []byte("[stack]\nmax_visible = 2\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Stack.MaxVisible)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "toastd.toml")

	cfg := DefaultConfig()
	cfg.Stack.MaxVisible = 7
	cfg.Timeouts.Low = Duration(3 * time.Second)
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"max visible zero", func(c *Config) { c.Stack.MaxVisible = 0 }, "max_visible"},
		{"max visible too large", func(c *Config) { c.Stack.MaxVisible = 21 }, "max_visible"},
		{"bad position", func(c *Config) { c.Stack.Position = "left" }, "invalid position"},
		{"negative spacing", func(c *Config) { c.Stack.Spacing = -1 }, "must not be negative"},
		{"narrow panel", func(c *Config) { c.Panel.Width = 50 }, "width"},
		{"short panel", func(c *Config) { c.Panel.Height = 5 }, "height"},
		{"bad animation", func(c *Config) { c.Panel.Animation = "spin" }, "unknown animation"},
		{"bad action effect", func(c *Config) { c.Panel.ActionEffect = "boom" }, "action_effect"},
		{"bad timeout effect", func(c *Config) { c.Panel.TimeoutEffect = "boom" }, "timeout_effect"},
		{"negative timeout", func(c *Config) { c.Timeouts.Low = Duration(-time.Second) }, "timeout low"},
		{"zero sticky", func(c *Config) { c.Timeouts.Sticky = 0 }, "sticky"},
		{"loud", func(c *Config) { c.Audio.Volume = 101 }, "volume"},
		{"bad scheme", func(c *Config) { c.Theme.ColorScheme = "sepia" }, "color_scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"5s", 5 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"2500", 2500 * time.Millisecond, false},
		{"0", 0, false},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestStackOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stack.Position = "bottom-center"
	cfg.Stack.MaxVisible = 3
	cfg.Stack.MarginY = 40

	opts := cfg.StackOptions()
	assert.Equal(t, 3, opts.MaxVisible)
	assert.Equal(t, stack.AnchorBottomCenter, opts.Geometry.Anchor)
	assert.Equal(t, 40.0, opts.Geometry.MarginY)
	assert.Equal(t, 5.0, opts.Geometry.Spacing)
}

func TestApplyPanelDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Panel.TimeoutEffect = "dismiss"

	req := stack.Request{Title: "hello"}
	cfg.ApplyPanelDefaults(&req)

	assert.Equal(t, 350.0, req.Width)
	assert.Equal(t, 100.0, req.Height)
	assert.Equal(t, stack.AnimationSlideRight, req.Animation)
	assert.Equal(t, stack.EffectInvoke, req.ActionEffect)
	assert.Equal(t, stack.EffectDismiss, req.TimeoutEffect)
	assert.Equal(t, 10*time.Second, req.Duration)
	assert.NoError(t, req.Validate())

	// Explicit values win.
	req = stack.Request{Width: 200, Height: 50, Animation: stack.AnimationNone, Duration: time.Second}
	cfg.ApplyPanelDefaults(&req)
	assert.Equal(t, 200.0, req.Width)
	assert.Equal(t, stack.AnimationNone, req.Animation)
	assert.Equal(t, time.Second, req.Duration)
}

func TestTimeoutForUrgency(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5*time.Second, cfg.TimeoutForUrgency(UrgencyLow))
	assert.Equal(t, 10*time.Second, cfg.TimeoutForUrgency(UrgencyNormal))
	assert.Equal(t, time.Hour, cfg.TimeoutForUrgency(UrgencyCritical), "zero means sticky")
	assert.Equal(t, 10*time.Second, cfg.TimeoutForUrgency(9))
}

func TestSoundPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Audio.Sound = "~/pop.wav"
	assert.Equal(t, filepath.Join(home, "pop.wav"), cfg.SoundPath())

	cfg.Audio.Sound = "/usr/share/sounds/pop.wav"
	assert.Equal(t, "/usr/share/sounds/pop.wav", cfg.SoundPath())
}
