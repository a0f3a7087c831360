// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port      int `yaml:"port"`
	AdminPort int `yaml:"admin_port"` // /metrics and admin API
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type UploadConfig struct {
	Dir             string `yaml:"dir"`
	MaxFileSizeMB   int64  `yaml:"max_file_size_mb"`
	MaxFilesPerCall int    `yaml:"max_files_per_call"`
	ExtraExtensions string `yaml:"extra_extensions"` // comma-separated, e.g. ".aif,.caf"
}

type WhisperConfig struct {
	Backend   string `yaml:"backend"` // cli | openai
	Model     string `yaml:"model"`
	Language  string `yaml:"language"`
	BinPath   string `yaml:"bin_path"`   // whisper CLI binary (backend=cli)
	OpenAIKey string `yaml:"openai_key"` // backend=openai
}

type GeminiConfig struct {
	// SeedKeys populate the settings store on first start when no keys are
	// stored yet; afterwards the store is authoritative.
	SeedKeys       []string      `yaml:"seed_keys"`
	DefaultModel   string        `yaml:"default_model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type SecurityConfig struct {
	AdminSecret string        `yaml:"admin_secret"` // shared secret exchanged for a session token
	SessionTTL  time.Duration `yaml:"session_ttl"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Upload   UploadConfig   `yaml:"upload"`
	Whisper  WhisperConfig  `yaml:"whisper"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Security SecurityConfig `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(configPath string, dev bool) (*Config, error) {
	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AdminPort == 0 {
		cfg.Server.AdminPort = 9090
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = "./uploads"
	}
	if cfg.Upload.MaxFileSizeMB <= 0 {
		cfg.Upload.MaxFileSizeMB = 500
	}
	if cfg.Upload.MaxFilesPerCall <= 0 {
		cfg.Upload.MaxFilesPerCall = 20
	}
	if cfg.Whisper.Backend == "" {
		cfg.Whisper.Backend = "cli"
	}
	if cfg.Whisper.Model == "" {
		cfg.Whisper.Model = "large-v3"
	}
	if cfg.Whisper.Language == "" {
		cfg.Whisper.Language = "ja"
	}
	if cfg.Whisper.BinPath == "" {
		cfg.Whisper.BinPath = "whisper"
	}
	if cfg.Gemini.DefaultModel == "" {
		cfg.Gemini.DefaultModel = "gemini-2.5-flash"
	}
	if cfg.Gemini.RequestTimeout <= 0 {
		cfg.Gemini.RequestTimeout = 120 * time.Second
	}
	if cfg.Security.SessionTTL <= 0 {
		cfg.Security.SessionTTL = 30 * time.Minute
	}
}

// Supported media extensions, matching what the speech engine can decode.
var allowedVideoExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".wmv": {}, ".flv": {},
	".webm": {}, ".m4v": {}, ".mpeg": {}, ".mpg": {}, ".3gp": {}, ".ts": {},
	".mts": {}, ".m2ts": {}, ".ogv": {}, ".vob": {},
}

var allowedAudioExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".aac": {}, ".ogg": {}, ".flac": {}, ".wma": {},
	".m4a": {}, ".opus": {},
}

// AllowedExtensions returns the full set of accepted media extensions,
// including any configured extras.
func (u UploadConfig) AllowedExtensions() map[string]struct{} {
	out := make(map[string]struct{}, len(allowedVideoExtensions)+len(allowedAudioExtensions))
	for e := range allowedVideoExtensions {
		out[e] = struct{}{}
	}
	for e := range allowedAudioExtensions {
		out[e] = struct{}{}
	}
	for _, e := range strings.Split(u.ExtraExtensions, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out[e] = struct{}{}
		}
	}
	return out
}
