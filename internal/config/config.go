// Package config loads ripperd's keyed configuration store (§6 of the
// spec). It follows five82-spindle/internal/config: a flat struct with
// `toml:"..."` tags decoded via pelletier/go-toml, a Default() seed, and a
// Load that resolves a path, decodes, normalizes, and validates.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Compression identifies the ROM pipeline's second-step transform.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionZstd Compression = "zstd"
	CompressionBz2  Compression = "bz2"
)

// Config holds every recognized key from §6, grouped by section as in the
// spec's table.
type Config struct {
	// General
	TempDirectory   string `toml:"tempdirectory"`
	OutputDirectory string `toml:"outputdirectory"`

	// CD (audio)
	CDOutputDirectory      string `toml:"cd_outputdirectory"`
	CDOutputFormat         string `toml:"cd_outputformat"`
	CDConfigPath           string `toml:"cd_configpath"`
	CDAdditionalOptions    string `toml:"cd_additionaloptions"`
	CDAudioRipBinary       string `toml:"cd_audio_rip_binary"`

	// DVD
	DVDOutputDirectory     string `toml:"dvd_outputdirectory"`
	DVDUseHandbrake        bool   `toml:"dvd_usehandbrake"`
	DVDHandbrakePresetPath string `toml:"dvd_handbrakepreset_path"`
	DVDHandbrakePresetName string `toml:"dvd_handbrakepreset_name"`
	DVDHandbrakeFormat     string `toml:"dvd_handbrakeformat"`

	// BLURAY
	BlurayOutputDirectory     string `toml:"bluray_outputdirectory"`
	BlurayUseHandbrake        bool   `toml:"bluray_usehandbrake"`
	BlurayHandbrakePresetPath string `toml:"bluray_handbrakepreset_path"`
	BlurayHandbrakePresetName string `toml:"bluray_handbrakepreset_name"`
	BlurayHandbrakeFormat     string `toml:"bluray_handbrakeformat"`

	// OTHER (ROM / unclassified)
	OtherOutputDirectory string      `toml:"other_outputdirectory"`
	OtherUseCompression  bool        `toml:"other_usecompression"`
	OtherCompression     Compression `toml:"other_compression"`

	// auth (consumed only by the out-of-scope API collaborator; carried
	// here so a single config document covers the whole service)
	AuthUsername string `toml:"auth_username"`
	AuthPassword string `toml:"auth_password"`

	// Ambient: logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogDir    string `toml:"log_dir"`

	// Ambient: watcher tuning
	PollIntervalSeconds     int `toml:"poll_interval_seconds"`
	MissedPollThreshold     int `toml:"missed_poll_threshold"`
	InsertDebounceSeconds   int `toml:"insert_debounce_seconds"`
	BlacklistAfterFailures  int `toml:"blacklist_after_failures"`

	// Ambient: telemetry
	HeartbeatIntervalMillis int `toml:"heartbeat_interval_ms"`
	SubscriptionBufferSize  int `toml:"subscription_buffer_size"`

	// Ambient: external tool binaries
	MakeMKVBinary      string `toml:"makemkv_binary"`
	HandbrakeBinary    string `toml:"handbrake_binary"`
	CompressBinaryZstd string `toml:"compress_binary_zstd"`
	CompressBinaryBz2  string `toml:"compress_binary_bz2"`
	EjectBinary        string `toml:"eject_binary"`
}

const (
	defaultTempDirectory   = "~/.local/share/ripperd/staging"
	defaultOutputDirectory = "~/ripperd-output"
	defaultLogDir          = "~/.local/share/ripperd/logs"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"

	defaultPollIntervalSeconds    = 4
	defaultMissedPollThreshold    = 3
	defaultInsertDebounceSeconds  = 2
	defaultBlacklistAfterFailures = 5

	defaultHeartbeatIntervalMillis = 500
	defaultSubscriptionBufferSize  = 64
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		TempDirectory:           defaultTempDirectory,
		OutputDirectory:         defaultOutputDirectory,
		CDOutputFormat:          "flac",
		DVDHandbrakeFormat:      "mkv",
		BlurayHandbrakeFormat:   "mkv",
		OtherCompression:        CompressionZstd,
		LogDir:                  defaultLogDir,
		LogFormat:               defaultLogFormat,
		LogLevel:                defaultLogLevel,
		PollIntervalSeconds:     defaultPollIntervalSeconds,
		MissedPollThreshold:     defaultMissedPollThreshold,
		InsertDebounceSeconds:   defaultInsertDebounceSeconds,
		BlacklistAfterFailures:  defaultBlacklistAfterFailures,
		HeartbeatIntervalMillis: defaultHeartbeatIntervalMillis,
		SubscriptionBufferSize:  defaultSubscriptionBufferSize,
		MakeMKVBinary:           "makemkvcon",
		HandbrakeBinary:         "HandBrakeCLI",
		CompressBinaryZstd:      "zstd",
		CompressBinaryBz2:       "bzip2",
		EjectBinary:             "eject",
		CDAudioRipBinary:        "abcde",
	}
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ripperd/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded to absolute paths.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/ripperd/config.toml")
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("ripperd.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.TempDirectory, err = expandPath(c.TempDirectory); err != nil {
		return fmt.Errorf("tempdirectory: %w", err)
	}
	if c.OutputDirectory, err = expandPath(c.OutputDirectory); err != nil {
		return fmt.Errorf("outputdirectory: %w", err)
	}
	for name, dir := range map[string]*string{
		"cd_outputdirectory":     &c.CDOutputDirectory,
		"dvd_outputdirectory":    &c.DVDOutputDirectory,
		"bluray_outputdirectory": &c.BlurayOutputDirectory,
		"other_outputdirectory":  &c.OtherOutputDirectory,
	} {
		if strings.TrimSpace(*dir) == "" {
			*dir = c.OutputDirectory
			continue
		}
		expanded, err := expandPath(*dir)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dir = expanded
	}
	if c.LogDir, err = expandPath(c.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch c.LogFormat {
	case "":
		c.LogFormat = defaultLogFormat
	case "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", c.LogFormat)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	c.OtherCompression = Compression(strings.ToLower(strings.TrimSpace(string(c.OtherCompression))))
	switch c.OtherCompression {
	case CompressionNone, CompressionZstd:
	case "bzip2":
		c.OtherCompression = CompressionBz2
	case CompressionBz2:
	default:
		return fmt.Errorf("other_compression: unsupported value %q", c.OtherCompression)
	}

	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.MissedPollThreshold <= 0 {
		c.MissedPollThreshold = defaultMissedPollThreshold
	}
	if c.InsertDebounceSeconds < 0 {
		c.InsertDebounceSeconds = defaultInsertDebounceSeconds
	}
	if c.BlacklistAfterFailures <= 0 {
		c.BlacklistAfterFailures = defaultBlacklistAfterFailures
	}
	if c.HeartbeatIntervalMillis <= 0 {
		c.HeartbeatIntervalMillis = defaultHeartbeatIntervalMillis
	}
	if c.SubscriptionBufferSize <= 0 {
		c.SubscriptionBufferSize = defaultSubscriptionBufferSize
	}

	for _, bin := range []*string{
		&c.MakeMKVBinary, &c.HandbrakeBinary, &c.CompressBinaryZstd,
		&c.CompressBinaryBz2, &c.EjectBinary, &c.CDAudioRipBinary,
	} {
		*bin = strings.TrimSpace(*bin)
	}

	return nil
}

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MissedPollThreshold < 3 {
		return errors.New("missed_poll_threshold must be at least 3")
	}
	if c.MakeMKVBinary == "" {
		return errors.New("makemkv_binary must be set")
	}
	if c.HandbrakeBinary == "" {
		return errors.New("handbrake_binary must be set")
	}
	if c.EjectBinary == "" {
		return errors.New("eject_binary must be set")
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.TempDirectory, c.OutputDirectory, c.LogDir,
		c.CDOutputDirectory, c.DVDOutputDirectory, c.BlurayOutputDirectory, c.OtherOutputDirectory,
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes a commented sample configuration file to path,
// creating parent directories as needed.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	const sample = `# ripperd configuration
# Adjust the directory paths below for your environment, then run
# "ripperd config validate" to confirm the file parses.

tempdirectory = "~/.local/share/ripperd/staging"
outputdirectory = "~/ripperd-output"

# CD (audio)
cd_outputformat = "flac"
cd_audio_rip_binary = "abcde"

# DVD
dvd_usehandbrake = true
dvd_handbrakeformat = "mkv"

# BLURAY
bluray_usehandbrake = true
bluray_handbrakeformat = "mkv"

# OTHER (unclassified / data discs)
other_usecompression = true
other_compression = "zstd"

log_level = "info"
log_format = "console"
log_dir = "~/.local/share/ripperd/logs"
`
	return os.WriteFile(path, []byte(sample), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
