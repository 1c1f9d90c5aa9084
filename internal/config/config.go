package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort              = 8080
	defaultDataDir           = "storage"
	defaultFFmpegBin         = "ffmpeg"
	defaultFFprobeBin        = "ffprobe"
	defaultMaxConcurrentJobs = 2
	defaultMaxLoopCount      = 1000
	defaultMaxVideoBytes     = 200 << 20
	defaultMaxAudioBytes     = 50 << 20
)

// Config describes runtime configuration for the service.
type Config struct {
	Port              int      `yaml:"port"`
	DataDir           string   `yaml:"data_dir"`
	FFmpegBin         string   `yaml:"ffmpeg_bin"`
	FFprobeBin        string   `yaml:"ffprobe_bin"`
	AllowedVideoExts  []string `yaml:"allowed_video_extensions"`
	AllowedAudioExts  []string `yaml:"allowed_audio_extensions"`
	MaxVideoBytes     int64    `yaml:"max_video_bytes"`
	MaxAudioBytes     int64    `yaml:"max_audio_bytes"`
	MaxConcurrentJobs int      `yaml:"max_concurrent_jobs"`
	MaxLoopCount      int      `yaml:"max_loop_count"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Port:              defaultPort,
		DataDir:           defaultDataDir,
		FFmpegBin:         defaultFFmpegBin,
		FFprobeBin:        defaultFFprobeBin,
		AllowedVideoExts:  []string{".mp4", ".mov", ".webm", ".mkv"},
		AllowedAudioExts:  []string{".mp3", ".wav", ".aac", ".m4a", ".ogg"},
		MaxVideoBytes:     defaultMaxVideoBytes,
		MaxAudioBytes:     defaultMaxAudioBytes,
		MaxConcurrentJobs: defaultMaxConcurrentJobs,
		MaxLoopCount:      defaultMaxLoopCount,
	}
}

// Load reads YAML config from the provided path. If the file does not exist
// or is empty, defaults are returned with no error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path is controlled by deployment
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(fileData) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(fileData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	// basic normalization
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.FFmpegBin == "" {
		cfg.FFmpegBin = defaultFFmpegBin
	}
	if cfg.FFprobeBin == "" {
		cfg.FFprobeBin = defaultFFprobeBin
	}
	if cfg.MaxVideoBytes <= 0 {
		cfg.MaxVideoBytes = defaultMaxVideoBytes
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = defaultMaxAudioBytes
	}
	// validate limits explicitly: values < 1 are not allowed
	if cfg.MaxConcurrentJobs < 1 {
		return cfg, fmt.Errorf("invalid max_concurrent_jobs: %d (must be >= 1)", cfg.MaxConcurrentJobs)
	}
	if cfg.MaxLoopCount < 1 {
		return cfg, fmt.Errorf("invalid max_loop_count: %d (must be >= 1)", cfg.MaxLoopCount)
	}
	cfg.AllowedVideoExts = normalizeExtensions(cfg.AllowedVideoExts, Default().AllowedVideoExts)
	cfg.AllowedAudioExts = normalizeExtensions(cfg.AllowedAudioExts, Default().AllowedAudioExts)
	return cfg, nil
}

// UploadsDir is where validated uploads are stashed before processing.
func (c Config) UploadsDir() string { return filepath.Join(c.DataDir, "uploads") }

// OutputDir holds finished videos until they are downloaded.
func (c Config) OutputDir() string { return filepath.Join(c.DataDir, "output") }

// TempDir holds per-job manifests and intermediate looped files.
func (c Config) TempDir() string { return filepath.Join(c.DataDir, "tmp") }

func normalizeExtensions(in, fallback []string) []string {
	if len(in) == 0 {
		return fallback
	}
	seen := make(map[string]struct{}, len(in))
	normalized := make([]string, 0, len(in))
	for _, ext := range in {
		e := strings.ToLower(strings.TrimSpace(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		normalized = append(normalized, e)
	}
	return normalized
}
