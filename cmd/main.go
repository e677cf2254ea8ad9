// Activity Monitor
// Prints global keyboard and mouse activity captured through low-level hooks
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"activitymon/internal/autostart"
	"activitymon/internal/config"
	"activitymon/internal/hook"
	"activitymon/internal/hotkey"
	"activitymon/internal/input"
	"activitymon/internal/logging"
	"activitymon/internal/osutils"
	"activitymon/internal/region"
	"activitymon/internal/tray"
)

var (
	version    = "0.1.0"
	configPath = flag.String("config", "", "Path to the configuration file")
	eventsFlag = flag.String("events", "", "Comma-separated event kinds to print (overrides config)")
	windowFlag = flag.String("window", "", "Title of a window to report mouse Enter/Leave for")
	pidFlag    = flag.Int("pid", 0, "Process ID whose main window to report mouse Enter/Leave for (overrides -window)")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
	noTray     = flag.Bool("no-tray", false, "Run without the system tray icon")
	probe      = flag.Bool("probe", false, "Inject a small mouse movement after start to verify the mouse hook")
	showVer    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("activitymon version %s\n", version)
		return
	}

	// Initialize config
	var cfgMgr *config.Manager
	if *configPath != "" {
		cfgMgr = config.NewManagerAt(*configPath)
	} else {
		var err error
		cfgMgr, err = config.NewManager()
		if err != nil {
			log.Fatalf("Failed to initialize config: %v", err)
		}
	}
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}

	// Flags apply to this run only and are never saved.
	runCfg := *cfgMgr.Get()
	cfg := &runCfg
	if err := applyFlags(cfg); err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.General.LogLevel, Format: cfg.General.LogFormat})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Sync()

	syncAutostart(cfg.General.StartOnLogin, logger)
	runMonitor(cfgMgr, cfg, logger)
}

// autostartArgs returns the arguments a login item needs to load the same
// configuration file as this run.
func autostartArgs(path string) []string {
	if path == "" {
		return nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return []string{"-config", path}
}

// syncAutostart makes the login item match the configured state.
func syncAutostart(want bool, logger *zap.Logger) {
	if autostart.IsEnabled() == want {
		return
	}
	var err error
	if want {
		err = autostart.Enable(autostartArgs(*configPath)...)
	} else {
		err = autostart.Disable()
	}
	if err != nil {
		logger.Warn("failed to update start on login", zap.Bool("enabled", want), zap.Error(err))
	}
}

// applyFlags overrides config values with the ones given on the command line.
func applyFlags(cfg *config.Config) error {
	if *eventsFlag != "" {
		var events []string
		for _, name := range strings.Split(*eventsFlag, ",") {
			if name = strings.TrimSpace(name); name != "" {
				events = append(events, name)
			}
		}
		cfg.Monitor.Events = events
	}
	if *windowFlag != "" {
		cfg.Monitor.TargetWindow = *windowFlag
	}
	if *pidFlag != 0 {
		cfg.Monitor.TargetPID = *pidFlag
	}
	if *logLevel != "" {
		cfg.General.LogLevel = *logLevel
	}
	if *noTray {
		cfg.General.ShowTray = false
	}
	return cfg.Validate()
}

func runMonitor(cfgMgr *config.Manager, cfg *config.Config, logger *zap.Logger) {
	logger.Info("activity monitor starting", zap.String("version", version))
	cfgMgr.RegisterChangeCallback(func() {
		logger.Info("configuration updated", zap.String("path", cfgMgr.Path()))
	})

	if !osutils.IsElevated() {
		logger.Warn("process is not elevated; input sent to elevated windows will not be seen",
			zap.Bool("admin", osutils.IsAdmin()))
	}

	policy, _ := hook.ParseErrorPolicy(cfg.Monitor.ErrorPolicy)
	hooks := hook.NewSystem(
		hook.WithLogger(logger.Named("hook")),
		hook.WithErrorPolicy(policy),
	)
	defer func() {
		if err := hooks.Close(); err != nil {
			logger.Error("failed to release hooks", zap.Error(err))
		}
	}()

	kinds, _ := cfg.EventKinds()
	out := newPrinter(os.Stdout, 1024)
	defer func() {
		if dropped := out.Close(); dropped > 0 {
			logger.Warn("event lines dropped", zap.Uint64("count", dropped))
		}
	}()

	sess := newSession(hooks, out, logger.Named("session"), kinds)
	defer sess.Close()
	for _, hk := range []input.HookKind{input.Keyboard, input.Mouse} {
		if !sess.Configured(hk) {
			continue
		}
		// A hook that cannot be installed only disables its feature.
		if err := sess.Enable(hk); err != nil {
			logger.Error("failed to enable printing", zap.Stringer("hook", hk), zap.Error(err))
		}
	}

	// Region tracker for the target window
	if cfg.Monitor.TargetPID != 0 || cfg.Monitor.TargetWindow != "" {
		win, label, err := resolveTarget(cfg.Monitor)
		if err == nil {
			var stop func()
			if stop, err = trackWindow(hooks, win, label, out, logger); err == nil {
				defer stop()
			}
		}
		if err != nil {
			logger.Error("window tracking unavailable", zap.String("window", label), zap.Error(err))
		}
	}

	var (
		quitOnce sync.Once
		quitCh   = make(chan struct{})
		t        *tray.Tray
	)
	quit := func() {
		quitOnce.Do(func() {
			close(quitCh)
			if t != nil {
				t.Stop()
			}
		})
	}

	var keyboardItem, mouseItem int
	toggle := func(hk input.HookKind) {
		on, err := sess.Toggle(hk)
		if err != nil {
			logger.Error("toggle failed", zap.Stringer("hook", hk), zap.Error(err))
		}
		logger.Info("printing toggled", zap.Stringer("hook", hk), zap.Bool("enabled", on))
		if t != nil {
			item := keyboardItem
			if hk == input.Mouse {
				item = mouseItem
			}
			t.SetItemChecked(item, on)
			t.SetTooltip(sess.Status())
		}
	}

	if cfg.General.ShowTray {
		t = tray.New(sess.Status())
		keyboardItem = t.AddCheckbox("Print keyboard events", sess.Enabled(input.Keyboard), func() { toggle(input.Keyboard) })
		mouseItem = t.AddCheckbox("Print mouse events", sess.Enabled(input.Mouse), func() { toggle(input.Mouse) })
		t.AddMenuItem("Print pressed keys", func() {
			out.Print(formatPressed(hooks.PressedKeys()))
		})
		t.AddSeparator()
		var loginItem int
		loginItem = t.AddCheckbox("Start on login", cfg.General.StartOnLogin, func() {
			stored := *cfgMgr.Get()
			stored.General.StartOnLogin = !autostart.IsEnabled()
			syncAutostart(stored.General.StartOnLogin, logger)
			cfgMgr.Set(&stored)
			if err := cfgMgr.Save(); err != nil {
				logger.Error("failed to save config", zap.String("path", cfgMgr.Path()), zap.Error(err))
			}
			t.SetItemChecked(loginItem, autostart.IsEnabled())
		})
		t.AddSeparator()
		t.AddMenuItem("Quit", quit)
	}

	// Hotkey manager
	hkMgr := hotkey.NewManager(
		hotkey.WithLogger(logger.Named("hotkey")),
		hotkey.WithSuppress(cfg.Monitor.SuppressHotkeys),
	)
	for _, b := range cfg.Hotkeys {
		var action func()
		switch b.Action {
		case config.ActionToggleKeyboard:
			action = func() { toggle(input.Keyboard) }
		case config.ActionToggleMouse:
			action = func() { toggle(input.Mouse) }
		case config.ActionPrintPressed:
			action = func() { out.Print(formatPressed(hooks.PressedKeys())) }
		case config.ActionQuit:
			action = quit
		}
		if _, err := hkMgr.Register(b.Hotkey, action); err != nil {
			logger.Warn("failed to register hotkey", zap.String("hotkey", b.Hotkey), zap.Error(err))
		}
	}
	if err := hkMgr.Start(hooks); err != nil {
		logger.Warn("hotkey engine failed to start", zap.Error(err))
	}
	defer hkMgr.Stop()

	if *probe {
		if err := osutils.NudgeMouse(); err != nil {
			logger.Warn("mouse probe failed", zap.Error(err))
		}
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("shutting down")
			quit()
		case <-quitCh:
		}
	}()

	if t == nil {
		log.Println("Activity monitor running. Press Ctrl+C to stop.")
		<-quitCh
		return
	}

	log.Println("Activity monitor running in the system tray. Press Ctrl+C to stop.")
	t.Run()
	quit()
}

// resolveTarget finds the window to track: the main window of TargetPID when
// set, otherwise the window titled TargetWindow.
func resolveTarget(mc config.MonitorConfig) (region.WindowID, string, error) {
	if mc.TargetPID != 0 {
		label := fmt.Sprintf("pid %d", mc.TargetPID)
		win, err := region.ProcessWindow(uint32(mc.TargetPID))
		return win, label, err
	}
	win, err := region.FindWindow(mc.TargetWindow)
	return win, mc.TargetWindow, err
}

// trackWindow prints Enter and Leave for win and returns a function that
// stops tracking.
func trackWindow(hooks hook.Subscriber, win region.WindowID, title string, out *printer, logger *zap.Logger) (func(), error) {
	tracker := region.NewTracker(hooks, region.SystemWindows(), win, region.WithLogger(logger.Named("region")))
	enter, err := tracker.OnEnter(func(e *input.MouseEvent) {
		out.Print(fmt.Sprintf("%-16s %q at %d,%d", "WindowEnter", title, e.X, e.Y))
	})
	if err != nil {
		return nil, err
	}
	leave, err := tracker.OnLeave(func(e *input.MouseEvent) {
		out.Print(fmt.Sprintf("%-16s %q at %d,%d", "WindowLeave", title, e.X, e.Y))
	})
	if err != nil {
		tracker.Remove(enter)
		return nil, err
	}

	state := tracker.IsMouseOverWindow()
	logger.Info("tracking window",
		zap.String("title", title),
		zap.Stringer("window", tracker.Window()),
		zap.Stringer("state", state))
	if state.Known() {
		out.Print(fmt.Sprintf("%-16s %q is %s", "WindowState", title, state))
	}
	return func() {
		tracker.Remove(enter)
		tracker.Remove(leave)
	}, nil
}
