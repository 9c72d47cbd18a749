package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"midi-selector/config"
	"midi-selector/debug"
	"midi-selector/midi"
	"midi-selector/router"
	"midi-selector/theme"
	"midi-selector/tui"
)

// selector is the part of either router main drives
type selector interface {
	tui.Router
	Start() error
	Shutdown() error
}

type flags struct {
	mode       string
	configFile string
	saveConfig string
	debug      bool
	headless   bool
	keyboard   string
	list       bool
}

func main() {
	var f flags
	flag.StringVar(&f.mode, "mode", "", "router mode: channel or port (default from config)")
	flag.StringVar(&f.configFile, "config", "", "load configuration from the specified file")
	flag.StringVar(&f.saveConfig, "save-config", "", "write the effective configuration to the specified file and exit")
	flag.BoolVar(&f.debug, "debug", false, "write a debug log to "+debug.DefaultPath())
	flag.BoolVar(&f.headless, "headless", false, "read one key per line from stdin instead of the terminal UI")
	flag.StringVar(&f.keyboard, "keyboard", "", "also read keys from an input device (/dev/input/eventN or a name), even when another window has focus")
	flag.BoolVar(&f.list, "list", false, "list MIDI ports and exit")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	if f.list {
		return listPorts()
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	if f.saveConfig != "" {
		if err := cfg.SaveFile(f.saveConfig); err != nil {
			return errors.Wrap(err, "save config")
		}
		fmt.Printf("Configuration saved to %s\n", f.saveConfig)
		return nil
	}

	if f.debug {
		if err := debug.Enable(); err != nil {
			return errors.Wrap(err, "enable debug log")
		}
		defer debug.Disable()
	}

	th, err := theme.Load(cfg.UI.Palette)
	if err != nil {
		return err
	}

	drv, err := midi.NewRtDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	// ports are a hard prerequisite: no degraded mode
	sel, err := openRouter(drv, cfg)
	if err != nil {
		return debug.Errorf("ports", "create ports: %v", err)
	}

	printPorts(cfg)

	if err := sel.Start(); err != nil {
		sel.Shutdown()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.keyboard != "" {
		events, err := tui.OpenKeyboard(ctx, f.keyboard)
		if err != nil {
			sel.Shutdown()
			return err
		}
		w := io.Discard // the TUI owns the terminal
		if f.headless {
			w = os.Stdout
		}
		go func() {
			if err := tui.RunKeyboard(ctx, sel, events, w); err != nil {
				debug.Warn("keys", "%v", err)
			}
		}()
	}

	var uiErr error
	if f.headless {
		fmt.Println("Type a key and press Enter to switch. Ctrl+C to stop...")
		uiErr = tui.RunHeadless(ctx, sel, os.Stdin, os.Stdout)
	} else {
		p := tea.NewProgram(tui.NewModel(sel, th, cfg.UI.ShowMessages), tea.WithAltScreen(), tea.WithoutSignalHandler())
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		_, uiErr = p.Run()
	}

	fmt.Println("Shutting down...")
	err = sel.Shutdown()
	if uiErr != nil {
		return uiErr
	}
	if err != nil {
		return err
	}
	fmt.Println("All notes off, ports closed")
	return nil
}

func loadConfig(f flags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configFile != "" {
		cfg, err = config.LoadFile(f.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if f.mode != "" {
		cfg.Mode = config.Mode(f.mode)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openRouter(drv midi.Driver, cfg *config.Config) (selector, error) {
	onSwitch := router.WithOnSwitch(func(from, to string) {
		debug.Log("main", "destination %s -> %s", from, to)
	})

	switch cfg.Mode {
	case config.ModeChannel:
		c := cfg.Channel
		r, err := router.OpenChannelRouter(drv, c.InputPort, c.OutputPort, c.ChannelKeys(),
			router.WithInitialChannel(uint8(c.InitialChannel)), onSwitch)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.ModePort:
		p := cfg.Port
		r, err := router.OpenPortRouter(drv, p.InputPort, p.OutputPrefix, p.Labels, onSwitch)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, errors.Errorf("unknown mode %q", cfg.Mode)
}

// printPorts tells the user what to connect where
func printPorts(cfg *config.Config) {
	switch cfg.Mode {
	case config.ModeChannel:
		c := cfg.Channel
		fmt.Printf("Input port:  %s  <- connect your controller here\n", c.InputPort)
		fmt.Printf("Output port: %s  -> connect your instrument here\n", c.OutputPort)
		for _, k := range c.SortedKeys() {
			fmt.Printf("  key %s -> channel %d\n", k, c.Keys[k]+1)
		}
	case config.ModePort:
		p := cfg.Port
		fmt.Printf("Input port: %s  <- connect your controller here\n", p.InputPort)
		for i, name := range p.OutputNames() {
			fmt.Printf("  key %s -> %s\n", p.Labels[i], name)
		}
		fmt.Printf("Initial output: %s\n", p.OutputNames()[0])
	}
}

func listPorts() error {
	ports, err := midi.ListPorts(3 * time.Second)
	if err != nil {
		return err
	}
	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range ports.Ins {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range ports.Outs {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}
