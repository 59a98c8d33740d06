// Package config loads mayapilot settings and keeps them current.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultSettingsPath = "~/.config/mayapilot/settings.toml"
	defaultHost         = "127.0.0.1"
	defaultPort         = 7002
	defaultHistoryFile  = "~/.mayaHistory"
	defaultMaxLines     = 1000
	defaultBuffer       = 1000
	defaultLogLevel     = "info"
	defaultLogFile      = "~/.local/state/mayapilot/mayapilot.log"

	// FollowerTail follows the history file with an external tail process.
	FollowerTail = "tail"
	// FollowerNative follows the history file with fsnotify.
	FollowerNative = "native"

	// BackpressureBlock makes the follower wait for the streamer.
	BackpressureBlock = "block"
	// BackpressureDropOldest makes the follower discard the oldest unread
	// lines when the streamer falls behind.
	BackpressureDropOldest = "drop_oldest"

	// PathPlaceholder is replaced by the history file path in TailCommand.
	PathPlaceholder = "{path}"
)

// Settings captures everything mayapilot reads from its settings file.
// Backpressure and BufferLines bound how far the follower may run ahead of
// the panel.
type Settings struct {
	Host            string   `toml:"host" yaml:"host"`
	Port            int      `toml:"port" yaml:"port"`
	HistoryFile     string   `toml:"history_file" yaml:"history_file"`
	MaxLines        int      `toml:"max_lines" yaml:"max_lines"`
	Follower        string   `toml:"follower" yaml:"follower"`
	TailCommand     []string `toml:"tail_command" yaml:"tail_command"`
	Backpressure    string   `toml:"follower_backpressure" yaml:"follower_backpressure"`
	BufferLines     int      `toml:"follower_buffer" yaml:"follower_buffer"`
	CommentPrefixes []string `toml:"comment_prefixes" yaml:"comment_prefixes"`
	LogLevel        string   `toml:"log_level" yaml:"log_level"`
	LogFile         string   `toml:"log_file" yaml:"log_file"`
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		Host:            defaultHost,
		Port:            defaultPort,
		HistoryFile:     mustExpand(defaultHistoryFile),
		MaxLines:        defaultMaxLines,
		Follower:        FollowerTail,
		TailCommand:     []string{"tail", "-n", "0", "-f", PathPlaceholder},
		Backpressure:    BackpressureBlock,
		BufferLines:     defaultBuffer,
		CommentPrefixes: []string{"#", "//"},
		LogLevel:        defaultLogLevel,
		LogFile:         mustExpand(defaultLogFile),
	}
}

// DefaultPath returns the default settings file location.
func DefaultPath() string {
	return defaultSettingsPath
}

// Load reads settings from path, falling back to defaults when the file is
// missing. The format is chosen from the extension: .yaml and .yml are
// parsed as YAML, everything else as TOML.
func Load(path string) (Settings, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return Settings{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var raw Settings
	if isYAML(resolved) {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Settings{}, fmt.Errorf("parse settings: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Settings{}, fmt.Errorf("parse settings: %w", err)
		}
	}

	s := raw.withDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func (s Settings) withDefaults() Settings {
	d := Default()

	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		s.Host = d.Host
	}
	if s.Port == 0 {
		s.Port = d.Port
	}
	if strings.TrimSpace(s.HistoryFile) == "" {
		s.HistoryFile = d.HistoryFile
	} else {
		s.HistoryFile = mustExpand(s.HistoryFile)
	}
	if s.MaxLines == 0 {
		s.MaxLines = d.MaxLines
	}
	s.Follower = strings.ToLower(strings.TrimSpace(s.Follower))
	if s.Follower == "" {
		s.Follower = d.Follower
	}
	if len(s.TailCommand) == 0 {
		s.TailCommand = d.TailCommand
	}
	s.Backpressure = strings.ToLower(strings.TrimSpace(s.Backpressure))
	if s.Backpressure == "" {
		s.Backpressure = d.Backpressure
	}
	if s.BufferLines == 0 {
		s.BufferLines = d.BufferLines
	}
	if s.CommentPrefixes == nil {
		s.CommentPrefixes = d.CommentPrefixes
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if s.LogLevel == "" {
		s.LogLevel = d.LogLevel
	}
	if strings.TrimSpace(s.LogFile) == "" {
		s.LogFile = d.LogFile
	} else {
		s.LogFile = mustExpand(s.LogFile)
	}
	return s
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.MaxLines < 1 {
		return fmt.Errorf("max_lines must be at least 1, got %d", s.MaxLines)
	}
	switch s.Follower {
	case FollowerTail, FollowerNative:
	default:
		return fmt.Errorf("invalid follower: %s (must be %s or %s)", s.Follower, FollowerTail, FollowerNative)
	}
	if s.Follower == FollowerTail && len(s.TailCommand) == 0 {
		return fmt.Errorf("tail_command cannot be empty")
	}
	switch s.Backpressure {
	case BackpressureBlock, BackpressureDropOldest:
	default:
		return fmt.Errorf("invalid follower_backpressure: %s (must be %s or %s)", s.Backpressure, BackpressureBlock, BackpressureDropOldest)
	}
	if s.BufferLines < 1 {
		return fmt.Errorf("follower_buffer must be at least 1, got %d", s.BufferLines)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", s.LogLevel)
	}
	return nil
}

// FollowCommand returns TailCommand with the history path substituted.
func (s Settings) FollowCommand() []string {
	cmd := make([]string, len(s.TailCommand))
	for i, arg := range s.TailCommand {
		cmd[i] = strings.ReplaceAll(arg, PathPlaceholder, s.HistoryFile)
	}
	return cmd
}

// Marshal encodes the settings in the named format ("toml" or "yaml").
func (s Settings) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "toml":
		return toml.Marshal(s)
	case "yaml", "yml":
		return yaml.Marshal(s)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// Save writes the settings to path, creating directories as needed.
func Save(path string, s Settings) error {
	resolved, err := ResolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	format := "toml"
	if isYAML(resolved) {
		format = "yaml"
	}
	data, err := s.Marshal(format)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// ResolvePath expands path, using the default location when it is empty.
func ResolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultSettingsPath)
	}
	return ExpandPath(path)
}

// ExpandPath expands a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
