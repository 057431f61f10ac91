package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/0xlemi/bertcam/internal/library"
	"github.com/0xlemi/bertcam/internal/logging"
)

const (
	DefaultVideoSize      = "1280x720"
	DefaultFramerate      = 30
	DefaultPreset         = "veryfast"
	DefaultLogLevel       = "info"
	DefaultSplashDuration = 1200 * time.Millisecond
	DefaultPreviewSize    = "64x36"
)

type Config struct {
	LibraryDir           string // finished recordings
	DocumentsDir         string // temporary file of each recording
	FFmpegPath           string
	Camera               string // device ID or name; empty picks the default
	AudioInput           string // preferred microphone at startup
	VideoSize            string
	Framerate            int
	Preset               string
	LibraryAuthorization string // "auto" or "deny"
	Meter                bool
	Preview              bool
	PreviewSize          string // terminal pixels; each text row shows two
	LogFile              string
	LogLevel             string
	SplashDuration       time.Duration
}

type fileConfig struct {
	LibraryDir           string `toml:"library_dir"`
	DocumentsDir         string `toml:"documents_dir"`
	FFmpegPath           string `toml:"ffmpeg_path"`
	Camera               string `toml:"camera"`
	AudioInput           string `toml:"audio_input"`
	VideoSize            string `toml:"video_size"`
	Framerate            int    `toml:"framerate"`
	Preset               string `toml:"preset"`
	LibraryAuthorization string `toml:"library_authorization"`
	Meter                *bool  `toml:"meter"`
	Preview              *bool  `toml:"preview"`
	PreviewSize          string `toml:"preview_size"`
	LogFile              string `toml:"log_file"`
	LogLevel             string `toml:"log_level"`
	SplashDuration       string `toml:"splash_duration"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LibraryDir:           defaultLibraryDir(),
		DocumentsDir:         filepath.Join(dataDir(), "recordings"),
		FFmpegPath:           "ffmpeg",
		VideoSize:            DefaultVideoSize,
		Framerate:            DefaultFramerate,
		Preset:               DefaultPreset,
		LibraryAuthorization: string(library.PolicyAuto),
		Meter:                true,
		Preview:              true,
		PreviewSize:          DefaultPreviewSize,
		LogFile:              filepath.Join(stateDir(), "bertcam.log"),
		LogLevel:             DefaultLogLevel,
		SplashDuration:       DefaultSplashDuration,
	}
}

// Load reads the config file, then .env in the working directory, then
// BERTCAM_* environment variables. Later sources win.
func Load() (*Config, error) {
	return load(configFilePath(), ".env")
}

func load(configPath, envFile string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(configPath, &fc); err != nil {
			return nil, fmt.Errorf("reading %s: %w", configPath, err)
		}
		if err := cfg.applyFile(fc); err != nil {
			return nil, fmt.Errorf("reading %s: %w", configPath, err)
		}
	}

	// Variables already in the environment are not overridden.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	setPath(&c.LibraryDir, fc.LibraryDir)
	setPath(&c.DocumentsDir, fc.DocumentsDir)
	setString(&c.FFmpegPath, fc.FFmpegPath)
	setString(&c.Camera, fc.Camera)
	setString(&c.AudioInput, fc.AudioInput)
	setString(&c.VideoSize, fc.VideoSize)
	if fc.Framerate != 0 {
		c.Framerate = fc.Framerate
	}
	setString(&c.Preset, fc.Preset)
	setString(&c.LibraryAuthorization, fc.LibraryAuthorization)
	if fc.Meter != nil {
		c.Meter = *fc.Meter
	}
	if fc.Preview != nil {
		c.Preview = *fc.Preview
	}
	setString(&c.PreviewSize, fc.PreviewSize)
	setPath(&c.LogFile, fc.LogFile)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.SplashDuration != "" {
		d, err := time.ParseDuration(fc.SplashDuration)
		if err != nil {
			return fmt.Errorf("invalid splash_duration: %w", err)
		}
		c.SplashDuration = d
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	setPath(&cfg.LibraryDir, os.Getenv("BERTCAM_LIBRARY_DIR"))
	setPath(&cfg.DocumentsDir, os.Getenv("BERTCAM_DOCUMENTS_DIR"))
	setString(&cfg.FFmpegPath, os.Getenv("BERTCAM_FFMPEG_PATH"))
	setString(&cfg.Camera, os.Getenv("BERTCAM_CAMERA"))
	setString(&cfg.AudioInput, os.Getenv("BERTCAM_AUDIO_INPUT"))
	setString(&cfg.VideoSize, os.Getenv("BERTCAM_VIDEO_SIZE"))
	setString(&cfg.Preset, os.Getenv("BERTCAM_PRESET"))
	setString(&cfg.LibraryAuthorization, os.Getenv("BERTCAM_LIBRARY_AUTHORIZATION"))
	setPath(&cfg.LogFile, os.Getenv("BERTCAM_LOG_FILE"))
	setString(&cfg.LogLevel, os.Getenv("BERTCAM_LOG_LEVEL"))
	setString(&cfg.PreviewSize, os.Getenv("BERTCAM_PREVIEW_SIZE"))

	if v := os.Getenv("BERTCAM_FRAMERATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BERTCAM_FRAMERATE: %q", v)
		}
		cfg.Framerate = n
	}
	if v := os.Getenv("BERTCAM_METER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BERTCAM_METER: %q", v)
		}
		cfg.Meter = b
	}
	if v := os.Getenv("BERTCAM_PREVIEW"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BERTCAM_PREVIEW: %q", v)
		}
		cfg.Preview = b
	}
	if v := os.Getenv("BERTCAM_SPLASH_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid BERTCAM_SPLASH_DURATION: %q", v)
		}
		cfg.SplashDuration = d
	}
	return nil
}

var videoSizeRe = regexp.MustCompile(`^\d+x\d+$`)

// Validate checks every field and creates the library and documents
// directories.
func (c *Config) Validate() error {
	if c.VideoSize != "" && !videoSizeRe.MatchString(c.VideoSize) {
		return fmt.Errorf("invalid video_size: %s (must look like 1280x720)", c.VideoSize)
	}
	if w, h, err := parseSize(c.PreviewSize); err != nil || w == 0 || h == 0 || h%2 != 0 {
		return fmt.Errorf("invalid preview_size: %s (must look like 64x36, with an even height)", c.PreviewSize)
	}
	if c.Framerate < 0 || c.Framerate > 240 {
		return fmt.Errorf("invalid framerate: %d (must be between 0 and 240)", c.Framerate)
	}
	if _, err := library.ParsePolicy(c.LibraryAuthorization); err != nil {
		return fmt.Errorf("invalid library_authorization: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn or error)", c.LogLevel)
	}
	if c.SplashDuration < 0 {
		return fmt.Errorf("invalid splash_duration: %s", c.SplashDuration)
	}
	if c.LibraryDir == "" || c.DocumentsDir == "" {
		return errors.New("library_dir and documents_dir must be set")
	}

	c.LibraryDir = expandTilde(c.LibraryDir)
	c.DocumentsDir = expandTilde(c.DocumentsDir)
	for _, dir := range []string{c.LibraryDir, c.DocumentsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// PreviewDimensions returns the validated preview width and height.
func (c *Config) PreviewDimensions() (width, height int) {
	width, height, _ = parseSize(c.PreviewSize)
	return width, height
}

func parseSize(s string) (width, height int, err error) {
	if !videoSizeRe.MatchString(s) {
		return 0, 0, fmt.Errorf("invalid size %q", s)
	}
	w, h, _ := strings.Cut(s, "x")
	if width, err = strconv.Atoi(w); err != nil {
		return 0, 0, err
	}
	if height, err = strconv.Atoi(h); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPath(dst *string, v string) {
	if v != "" {
		*dst = expandTilde(v)
	}
}

// FilePath is the config file Load reads, or "" if there is none.
func FilePath() string {
	return configFilePath()
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "bertcam")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "bertcam")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func defaultLibraryDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Videos", "BertCam")
	}
	return filepath.Join(".", "BertCam")
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "bertcam")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "bertcam")
	}
	return filepath.Join(".", ".bertcam")
}

func stateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "bertcam")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "bertcam")
	}
	return filepath.Join(".", ".bertcam")
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
