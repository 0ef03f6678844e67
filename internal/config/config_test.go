package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.HistoryInterval = Duration{2 * time.Second}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.HistoryInterval.Duration != 2*time.Second {
		t.Errorf("HistoryInterval = %v, want 2s", loaded.HistoryInterval)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("presence_interval = \"30s\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.PresenceInterval.Duration != 30*time.Second {
		t.Errorf("PresenceInterval = %v", cfg.PresenceInterval)
	}
	if cfg.OnlineWindow.Duration != DefaultOnlineWindow || cfg.FallbackInterval.Duration != DefaultFallbackInterval {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("history_interval = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}

	cfg, err := LoadOrDefault("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.HistoryInterval.Duration != DefaultHistoryInterval {
		t.Errorf("HistoryInterval = %v", cfg.HistoryInterval)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvBaseURL: "https://chat.example.com",
		EnvProfile: "alt",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.BaseURL != "https://chat.example.com" || cfg.DefaultProfile != "alt" {
		t.Errorf("cfg = %+v", cfg)
	}
	ws, err := cfg.PushURL()
	if err != nil {
		t.Fatal(err)
	}
	if ws != "wss://chat.example.com/ws/chat" {
		t.Errorf("PushURL = %q", ws)
	}
}

func TestPushURL(t *testing.T) {
	tests := []struct {
		base, ws, want string
	}{
		{"http://localhost:8000", "", "ws://localhost:8000/ws/chat"},
		{"http://localhost:8000/", "", "ws://localhost:8000/ws/chat"},
		{"https://h/api", "", "wss://h/api/ws/chat"},
		{"http://ignored", "ws://explicit/ws", "ws://explicit/ws"},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.BaseURL, cfg.WSURL = tt.base, tt.ws
		got, err := cfg.PushURL()
		if err != nil {
			t.Fatalf("PushURL(%q) error = %v", tt.base, err)
		}
		if got != tt.want {
			t.Errorf("PushURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CHATSYNC_TEST_DOTENV=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATSYNC_TEST_DOTENV", "")
	_ = os.Unsetenv("CHATSYNC_TEST_DOTENV")
	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("CHATSYNC_TEST_DOTENV"); got != "from-file" {
		t.Errorf("env = %q, want from-file", got)
	}
}
