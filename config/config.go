// Package config loads screenrec settings from config.toml and SCREENREC_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/DeamonDev888/screen-recorder/internal/bridge"
	"github.com/DeamonDev888/screen-recorder/internal/shortcuts"
	"github.com/DeamonDev888/screen-recorder/internal/thumbnail"
)

const envPrefix = "SCREENREC_"

type Config struct {
	LibraryDir       string
	SocketPath       string
	StateDir         string // UI database and log file
	FFmpeg           string
	FFprobe          string
	SavePrompt       string // "auto" or "dialog"
	ShortcutStart    string
	ShortcutStop     string
	LogLevel         string
	LogFormat        string // "text" or "json"
	ThumbnailTimeout time.Duration
	MaxMessageBytes  int
	Display          string // X11 display for capture, e.g. ":0.0"

	// Path is the config file that was read, empty if none.
	Path string
}

type fileConfig struct {
	LibraryDir       string `toml:"library_dir"`
	SocketPath       string `toml:"socket_path"`
	StateDir         string `toml:"state_dir"`
	FFmpeg           string `toml:"ffmpeg"`
	FFprobe          string `toml:"ffprobe"`
	SavePrompt       string `toml:"save_prompt"`
	ShortcutStart    string `toml:"shortcut_start"`
	ShortcutStop     string `toml:"shortcut_stop"`
	LogLevel         string `toml:"log_level"`
	LogFormat        string `toml:"log_format"`
	ThumbnailTimeout string `toml:"thumbnail_timeout"`
	MaxMessageBytes  int    `toml:"max_message_bytes"`
	Display          string `toml:"display"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LibraryDir:       defaultLibraryDir(),
		SocketPath:       bridge.SocketPath(),
		StateDir:         defaultStateDir(),
		FFmpeg:           "ffmpeg",
		FFprobe:          "ffprobe",
		SavePrompt:       "auto",
		ShortcutStart:    shortcuts.DefaultStart,
		ShortcutStop:     shortcuts.DefaultStop,
		LogLevel:         "info",
		LogFormat:        "text",
		ThumbnailTimeout: thumbnail.DefaultTimeout,
		MaxMessageBytes:  bridge.DefaultMaxMessage,
		Display:          defaultDisplay(),
	}
}

// Load reads the config file, applies environment overrides and makes sure
// the library and state directories exist.
func Load() (*Config, error) {
	cfg := Default()

	if path := FilePath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.decodeFile(path); err != nil {
				return nil, err
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure directories exist
	if err := os.MkdirAll(cfg.LibraryDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) decodeFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	cfg.Path = path

	setString(&cfg.LibraryDir, expandTilde(fc.LibraryDir))
	setString(&cfg.SocketPath, expandTilde(fc.SocketPath))
	setString(&cfg.StateDir, expandTilde(fc.StateDir))
	setString(&cfg.FFmpeg, fc.FFmpeg)
	setString(&cfg.FFprobe, fc.FFprobe)
	setString(&cfg.SavePrompt, fc.SavePrompt)
	setString(&cfg.ShortcutStart, fc.ShortcutStart)
	setString(&cfg.ShortcutStop, fc.ShortcutStop)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.Display, fc.Display)
	if fc.ThumbnailTimeout != "" {
		d, err := time.ParseDuration(fc.ThumbnailTimeout)
		if err != nil {
			return fmt.Errorf("thumbnail_timeout: %w", err)
		}
		cfg.ThumbnailTimeout = d
	}
	if fc.MaxMessageBytes > 0 {
		cfg.MaxMessageBytes = fc.MaxMessageBytes
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.LibraryDir, expandTilde(os.Getenv(envPrefix+"LIBRARY_DIR")))
	setString(&cfg.SocketPath, expandTilde(os.Getenv(envPrefix+"SOCKET_PATH")))
	setString(&cfg.StateDir, expandTilde(os.Getenv(envPrefix+"STATE_DIR")))
	setString(&cfg.FFmpeg, os.Getenv(envPrefix+"FFMPEG"))
	setString(&cfg.FFprobe, os.Getenv(envPrefix+"FFPROBE"))
	setString(&cfg.SavePrompt, os.Getenv(envPrefix+"SAVE_PROMPT"))
	setString(&cfg.ShortcutStart, os.Getenv(envPrefix+"SHORTCUT_START"))
	setString(&cfg.ShortcutStop, os.Getenv(envPrefix+"SHORTCUT_STOP"))
	setString(&cfg.LogLevel, os.Getenv(envPrefix+"LOG_LEVEL"))
	setString(&cfg.LogFormat, os.Getenv(envPrefix+"LOG_FORMAT"))
	setString(&cfg.Display, os.Getenv(envPrefix+"DISPLAY"))

	if v := os.Getenv(envPrefix + "THUMBNAIL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTHUMBNAIL_TIMEOUT: %w", envPrefix, err)
		}
		cfg.ThumbnailTimeout = d
	}
	if v := os.Getenv(envPrefix + "MAX_MESSAGE_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_MESSAGE_BYTES: %w", envPrefix, err)
		}
		cfg.MaxMessageBytes = n
	}
	return nil
}

// Validate rejects values the rest of the program can't work with.
func (cfg *Config) Validate() error {
	switch cfg.SavePrompt {
	case "auto", "dialog":
	default:
		return fmt.Errorf("save_prompt must be \"auto\" or \"dialog\", got %q", cfg.SavePrompt)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}
	for name, combo := range map[string]string{"shortcut_start": cfg.ShortcutStart, "shortcut_stop": cfg.ShortcutStop} {
		if _, err := shortcuts.ParseCombo(combo); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if cfg.ThumbnailTimeout <= 0 {
		return fmt.Errorf("thumbnail_timeout must be positive")
	}
	if cfg.MaxMessageBytes <= 0 {
		return fmt.Errorf("max_message_bytes must be positive")
	}
	return nil
}

// Bindings returns the global shortcut table.
func (cfg *Config) Bindings() []shortcuts.Binding {
	return []shortcuts.Binding{
		{Combo: cfg.ShortcutStart, Action: shortcuts.ActionStart},
		{Combo: cfg.ShortcutStop, Action: shortcuts.ActionStop},
	}
}

// LogPath is where the UI writes its log; the terminal belongs to the TUI.
func (cfg *Config) LogPath() string {
	return filepath.Join(cfg.StateDir, "screenrec-ui.log")
}

// FilePath returns the config file location, whether or not it exists.
func FilePath() string {
	if v := os.Getenv(envPrefix + "CONFIG"); v != "" {
		return expandTilde(v)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "screenrec", "config.toml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "screenrec", "config.toml")
	}
	return ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func defaultLibraryDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Videos", "screenrec")
	}
	return filepath.Join(".", "recordings")
}

func defaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "screenrec")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "screenrec")
	}
	return filepath.Join(os.TempDir(), "screenrec-state")
}

func defaultDisplay() string {
	if v := os.Getenv("DISPLAY"); v != "" {
		return v
	}
	return ":0.0"
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
