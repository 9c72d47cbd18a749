package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrUnknownMode is returned by Validate for a mode other than channel or port
var ErrUnknownMode = errors.New("unknown mode")

// Mode selects which router runs
type Mode string

const (
	ModeChannel Mode = "channel"
	ModePort    Mode = "port"
)

// ChannelConfig configures the channel router
type ChannelConfig struct {
	InputPort      string         `json:"inputPort"`
	OutputPort     string         `json:"outputPort"`
	Keys           map[string]int `json:"keys"` // key -> channel 0-15
	InitialChannel int            `json:"initialChannel"`
}

// PortConfig configures the port router
type PortConfig struct {
	InputPort    string   `json:"inputPort"`
	OutputPrefix string   `json:"outputPrefix"`
	Labels       []string `json:"labels"` // first one is selected at startup
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette      string `json:"palette,omitempty"` // GIMP .gpl file
	ShowMessages bool   `json:"showMessages,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Mode    Mode          `json:"mode"`
	Channel ChannelConfig `json:"channel"`
	Port    PortConfig    `json:"port"`
	UI      UIConfig      `json:"ui,omitempty"`
}

// DefaultConfig returns the built-in setup; no file is needed to run it
func DefaultConfig() *Config {
	return &Config{
		Mode: ModePort,
		Channel: ChannelConfig{
			InputPort:  "EntradaVirtualControlador",
			OutputPort: "SalidaVirtualUnica",
			Keys: map[string]int{
				"1": 0,
				"2": 1,
				"3": 2,
			},
		},
		Port: PortConfig{
			InputPort:    "MIDI-IN",
			OutputPrefix: "MIDI-",
			Labels:       []string{"1", "2", "3", "0", "q"},
		},
		UI: UIConfig{
			ShowMessages: true,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midi-selector"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return loadOrDefault(path)
}

// LoadFile reads the config from path; the file must exist
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func loadOrDefault(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return parse(data)
}

// parse overlays the file on the defaults so partial files work
func parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	// json merges into an existing map; a file's key map replaces ours
	defaultKeys := cfg.Channel.Keys
	cfg.Channel.Keys = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if cfg.Channel.Keys == nil {
		cfg.Channel.Keys = defaultKeys
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings of the selected mode
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeChannel:
		return c.Channel.validate()
	case ModePort:
		return c.Port.validate()
	}
	return errors.Wrapf(ErrUnknownMode, "%q (want %q or %q)", c.Mode, ModeChannel, ModePort)
}

func (c *ChannelConfig) validate() error {
	if c.InputPort == "" || c.OutputPort == "" {
		return errors.New("channel router needs input and output port names")
	}
	if c.InputPort == c.OutputPort {
		return errors.Errorf("input and output port share the name %q", c.InputPort)
	}
	if len(c.Keys) == 0 {
		return errors.New("no channel keys configured")
	}
	for key, ch := range c.Keys {
		if utf8.RuneCountInString(key) != 1 {
			return errors.Errorf("key %q must be a single character", key)
		}
		if ch < 0 || ch > 15 {
			return errors.Errorf("key %q has invalid channel: %d (must be 0-15)", key, ch)
		}
	}
	if c.InitialChannel < 0 || c.InitialChannel > 15 {
		return errors.Errorf("invalid initial channel: %d (must be 0-15)", c.InitialChannel)
	}
	return nil
}

func (c *PortConfig) validate() error {
	if c.InputPort == "" {
		return errors.New("port router needs an input port name")
	}
	if len(c.Labels) == 0 {
		return errors.New("no output labels configured")
	}
	seen := make(map[string]bool, len(c.Labels))
	for i, label := range c.Labels {
		if utf8.RuneCountInString(label) != 1 {
			return errors.Errorf("label %d (%q) must be a single character", i+1, label)
		}
		if seen[label] {
			return errors.Errorf("duplicate label %q", label)
		}
		seen[label] = true
		if c.OutputPrefix+label == c.InputPort {
			return errors.Errorf("output %q collides with the input port", c.OutputPrefix+label)
		}
	}
	return nil
}

// ChannelKeys converts the key map to router form (already validated)
func (c *ChannelConfig) ChannelKeys() map[string]uint8 {
	keys := make(map[string]uint8, len(c.Keys))
	for k, ch := range c.Keys {
		keys[k] = uint8(ch)
	}
	return keys
}

// OutputNames returns the port router output names in label order
func (c *PortConfig) OutputNames() []string {
	names := make([]string, len(c.Labels))
	for i, label := range c.Labels {
		names[i] = c.OutputPrefix + label
	}
	return names
}

// SortedKeys returns the channel keys in order, for help text
func (c *ChannelConfig) SortedKeys() []string {
	keys := make([]string, 0, len(c.Keys))
	for k := range c.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
