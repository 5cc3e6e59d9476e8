package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "VEO_API_KEY", "REDIS_ADDR", "REDIS_PASSWORD", "WHISPER_MODEL_PATH", "PORT", "QUIZSPLICE_CONFIG"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 3000 || cfg.Limits.MaxFileSizeMB != 25 || cfg.Workers.Count != 2 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Storage.Backend != "json" || cfg.Queue.Backend != "memory" || cfg.Verify.MinOverlap != 0.6 {
		t.Errorf("unexpected backend defaults %+v", cfg)
	}
	if cfg.MaxUploadBytes() != 25*1024*1024 || cfg.VeoPollInterval() != 10*time.Second {
		t.Errorf("derived values wrong: %d %s", cfg.MaxUploadBytes(), cfg.VeoPollInterval())
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: 8080
  host: 127.0.0.1
storage:
  backend: SQLite
queue:
  backend: redis
verify:
  min_overlap: 0.75
gemini:
  model: gemini-2.5-flash
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Errorf("addr = %s", cfg.Addr())
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Queue.Backend != "redis" || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("unexpected backends %+v", cfg)
	}
	if cfg.Verify.MinOverlap != 0.75 || cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("yaml values lost %+v", cfg)
	}
	if cfg.Gemini.APIKey != "g-key" || cfg.Veo.APIKey != "g-key" {
		t.Errorf("veo key should fall back to gemini key, got %q", cfg.Veo.APIKey)
	}
}

func TestGeminiTemperature(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gemini.Temperature == nil || *cfg.Gemini.Temperature != 0.2 {
		t.Errorf("default temperature = %v", cfg.Gemini.Temperature)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("gemini:\n  temperature: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gemini.Temperature == nil || *cfg.Gemini.Temperature != 0 {
		t.Errorf("explicit zero temperature lost: %v", cfg.Gemini.Temperature)
	}
}

func TestVeoKeyOverridesFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("VEO_API_KEY", "v-key")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Veo.APIKey != "v-key" {
		t.Errorf("veo key = %q", cfg.Veo.APIKey)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("server: [unclosed"), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPath(t *testing.T) {
	clearEnv(t)
	if got := Path(""); got != DefaultPath {
		t.Errorf("Path() = %s", got)
	}
	t.Setenv("QUIZSPLICE_CONFIG", "/etc/quizsplice.yaml")
	if got := Path(""); got != "/etc/quizsplice.yaml" {
		t.Errorf("env path = %s", got)
	}
	if got := Path("custom.yaml"); got != "custom.yaml" {
		t.Errorf("flag path = %s", got)
	}
}
