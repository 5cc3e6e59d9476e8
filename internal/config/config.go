package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when neither -config nor QUIZSPLICE_CONFIG is given.
const DefaultPath = "config/config.yaml"

// Config represents the application configuration
type Config struct {
	Server struct {
		Port      int    `yaml:"port"`
		Host      string `yaml:"host"`
		PublicDir string `yaml:"public_dir"`
	} `yaml:"server"`

	Whisper struct {
		Binary    string `yaml:"binary"`
		ModelPath string `yaml:"model_path"`
		Threads   int    `yaml:"threads"`
		Language  string `yaml:"language"`
	} `yaml:"whisper"`

	FFmpeg struct {
		Path      string `yaml:"path"`
		ProbePath string `yaml:"probe_path"`
	} `yaml:"ffmpeg"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		Backend      string `yaml:"backend"` // json | sqlite
		DataFile     string `yaml:"data_file"`
		Database     string `yaml:"database"`
		UploadDir    string `yaml:"upload_dir"`
		GeneratedDir string `yaml:"generated_dir"`
		TempDir      string `yaml:"temp_dir"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
		Publish         bool   `yaml:"publish"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	Gemini struct {
		APIKey      string   `yaml:"api_key"`
		Model       string   `yaml:"model"`
		BaseURL     string   `yaml:"base_url"`
		Temperature *float64 `yaml:"temperature"` // nil when unset; 0 is a valid setting
	} `yaml:"gemini"`

	Veo struct {
		APIKey              string `yaml:"api_key"`
		Model               string `yaml:"model"`
		BaseURL             string `yaml:"base_url"`
		PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
		AspectRatio         string `yaml:"aspect_ratio"`
	} `yaml:"veo"`

	Queue struct {
		Backend string `yaml:"backend"` // memory | redis
		Size    int    `yaml:"size"`
		Key     string `yaml:"key"`
	} `yaml:"queue"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Verify struct {
		MinOverlap float64 `yaml:"min_overlap"`
	} `yaml:"verify"`

	Log struct {
		Mode        string `yaml:"mode"`
		BufferLines int    `yaml:"buffer_lines"`
	} `yaml:"log"`
}

// Load reads the YAML file at path, applies environment overrides and fills defaults.
// A missing file is not an error; the server then runs on defaults and environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// Path picks the config file: the flag value, then QUIZSPLICE_CONFIG, then DefaultPath.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv("QUIZSPLICE_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("VEO_API_KEY"); v != "" {
		cfg.Veo.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WHISPER_MODEL_PATH"); v != "" {
		cfg.Whisper.ModelPath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.PublicDir == "" {
		cfg.Server.PublicDir = "public"
	}

	if cfg.Whisper.Binary == "" {
		cfg.Whisper.Binary = "whisper-cli"
	}
	if cfg.Whisper.ModelPath == "" {
		cfg.Whisper.ModelPath = "models/ggml-base.en.bin"
	}
	if cfg.Whisper.Threads <= 0 {
		cfg.Whisper.Threads = 4
	}
	if cfg.Whisper.Language == "" {
		cfg.Whisper.Language = "en"
	}

	if cfg.FFmpeg.Path == "" {
		cfg.FFmpeg.Path = "ffmpeg"
	}
	if cfg.FFmpeg.ProbePath == "" {
		cfg.FFmpeg.ProbePath = "ffprobe"
	}

	if cfg.Workers.Count <= 0 {
		cfg.Workers.Count = 2
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "json"
	}
	if cfg.Storage.DataFile == "" {
		cfg.Storage.DataFile = "data/submissions.json"
	}
	if cfg.Storage.Database == "" {
		cfg.Storage.Database = "data/submissions.db"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "uploads"
	}
	if cfg.Storage.GeneratedDir == "" {
		cfg.Storage.GeneratedDir = "generated"
	}
	if cfg.Storage.TempDir == "" {
		cfg.Storage.TempDir = "temp"
	}

	if cfg.Cleanup.IntervalMinutes <= 0 {
		cfg.Cleanup.IntervalMinutes = 60
	}
	if cfg.Cleanup.MaxAgeHours <= 0 {
		cfg.Cleanup.MaxAgeHours = 24
	}

	if cfg.GoogleDrive.CredentialsFile == "" {
		cfg.GoogleDrive.CredentialsFile = "credentials.json"
	}
	if cfg.GoogleDrive.TokenFile == "" {
		cfg.GoogleDrive.TokenFile = "token.json"
	}
	if cfg.GoogleDrive.FolderName == "" {
		cfg.GoogleDrive.FolderName = "QuizSplice"
	}

	if cfg.Limits.MaxFileSizeMB <= 0 {
		cfg.Limits.MaxFileSizeMB = 25
	}

	if cfg.Gemini.Temperature == nil {
		t := 0.2
		cfg.Gemini.Temperature = &t
	}

	if cfg.Veo.APIKey == "" {
		cfg.Veo.APIKey = cfg.Gemini.APIKey
	}
	if cfg.Veo.PollIntervalSeconds <= 0 {
		cfg.Veo.PollIntervalSeconds = 10
	}
	if cfg.Veo.AspectRatio == "" {
		cfg.Veo.AspectRatio = "16:9"
	}

	cfg.Queue.Backend = strings.ToLower(strings.TrimSpace(cfg.Queue.Backend))
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = "memory"
	}
	if cfg.Queue.Size <= 0 {
		cfg.Queue.Size = 100
	}
	if cfg.Queue.Key == "" {
		cfg.Queue.Key = "quizsplice:jobs"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	if cfg.Verify.MinOverlap <= 0 || cfg.Verify.MinOverlap > 1 {
		cfg.Verify.MinOverlap = 0.6
	}

	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "dev"
	}
	if cfg.Log.BufferLines <= 0 {
		cfg.Log.BufferLines = 1000
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxUploadBytes is the upload limit; files of this size or larger are rejected.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Limits.MaxFileSizeMB) * 1024 * 1024
}

func (c *Config) VeoPollInterval() time.Duration {
	return time.Duration(c.Veo.PollIntervalSeconds) * time.Second
}
