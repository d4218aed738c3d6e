package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/toastd/internal/audio"
	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/daemon"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/display"
	"github.com/jmylchreest/toastd/internal/stack"
	"github.com/jmylchreest/toastd/internal/theme"
)

// runDaemon runs toastd as the session's notification daemon until it is
// signalled or the application quits.
func runDaemon(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting toastd", "version", version)

	// Create the libadwaita application
	app := adw.NewApplication(appID, 0)

	// Owned by the GTK main loop once activated
	var (
		server      *dbus.Server
		bridge      *dbus.Bridge
		scheduler   *stack.Scheduler
		host        *stack.AsyncHost
		surface     *display.Surface
		themeLoader *theme.Loader
		chime       *audio.Chime
		watcher     *daemon.ConfigWatcher
		notifier    *daemon.InternalNotifier
		running     atomic.Bool
		startErr    error
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			glib.IdleAdd(func() { app.Quit() })
		case <-ctx.Done():
		}
	}()

	// applyConfig hands a reloaded config to every component. Main loop only.
	applyConfig := func(next *config.Config) {
		prev := cfg
		cfg = next

		scheduler.Reconfigure(next.StackOptions())
		bridge.SetConfig(next)
		surface.SetOptions(display.OptionsFromConfig(next))
		notifier.SetEnabled(next.Behavior.InternalNotifications)
		go chime.Configure(next)

		if next.Theme.Name != prev.Theme.Name {
			if err := themeLoader.Load(next.Theme.Name); err != nil {
				notifier.NotifyThemeError(err)
			}
		}
		notifier.NotifyConfigReloaded()
	}

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		themeLoader = theme.NewLoader(theme.Dir(), logger)
		if err := themeLoader.Load(cfg.Theme.Name); err != nil {
			logger.Warn("failed to load theme, using default", "error", err)
		}
		themeLoader.Apply(nil)

		chime = audio.NewChime(cfg, logger)

		surface = display.NewSurface(&app.Application, display.OptionsFromConfig(cfg), logger)

		server = dbus.NewServer(dbus.ServerInfo{
			Name:        appName,
			Vendor:      appName,
			Version:     version,
			SpecVersion: "1.2",
		}, logger)

		loop := display.GLibLoop{}
		bridge = dbus.NewBridge(server, loop, cfg, logger)
		host = stack.NewAsyncHost(bridge.Deliver, logger, 0)
		scheduler = stack.New(surface, host, loop,
			stack.WithOptions(cfg.StackOptions()),
			stack.WithLogger(logger),
			stack.WithEvictObserver(bridge.HandleEvicted),
		)
		surface.SetControls(scheduler)
		bridge.SetScheduler(scheduler)
		bridge.OnAdmit(chime.Announce)

		if err := server.Serve(bridge); err != nil {
			logger.Error("failed to start D-Bus server", "error", err)
			startErr = err
			app.Quit()
			return
		}

		notifier = daemon.NewInternalNotifier(logger)
		notifier.SetEnabled(cfg.Behavior.InternalNotifications)
		notifier.SetHandler(server.Submit)

		watcher = daemon.NewConfigWatcher(globalOpts.configPath, theme.Dir(), logger)
		watcher.SetReloadCallback(func(next *config.Config) {
			glib.IdleAdd(func() { applyConfig(next) })
		})
		watcher.SetErrorCallback(func(err error) {
			notifier.NotifyConfigError(err)
		})
		watcher.SetThemeCallback(func() {
			glib.IdleAdd(func() {
				if err := themeLoader.Reload(); err != nil {
					notifier.NotifyThemeError(err)
				}
			})
		})
		if err := watcher.Start(ctx, cfg); err != nil {
			logger.Warn("failed to start config watcher", "error", err)
		}

		// GTK quits when the last window closes, and panels come and go.
		keepAlive := gtk.NewWindow()
		keepAlive.SetApplication(&app.Application)
		keepAlive.SetDefaultSize(1, 1)
		keepAlive.SetDecorated(false)
		keepAlive.SetVisible(false)

		logger.Info("toastd ready",
			"dbus_interface", dbus.Interface,
			"max_visible", cfg.Stack.MaxVisible,
			"position", cfg.Stack.Position,
			"theme", themeLoader.Current(),
		)
		if globalOpts.announce {
			notifier.NotifyStartup(version)
		}
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if watcher != nil {
			watcher.Stop()
		}
		// Timers first, then panels; no outcomes are reported for what is still on screen.
		if scheduler != nil {
			scheduler.EvictAll()
		}
		if host != nil {
			host.Close()
		}
		if server != nil {
			if err := server.Shutdown(); err != nil {
				logger.Warn("error stopping D-Bus server", "error", err)
			}
		}
		if chime != nil {
			chime.Close()
		}
		running.Store(false)
	})

	// Flags were consumed by cobra; GApplication only sees the program name.
	status := app.Run(os.Args[:1])

	if startErr != nil {
		return startErr
	}
	if status != 0 {
		return fmt.Errorf("application exited with status %d", status)
	}

	logger.Info("toastd stopped")
	return nil
}
