package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/otiai10/podog/internal/pushover"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PODOG_ENDPOINT", "PODOG_HISTORY_PATH", "PODOG_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoad_ValidJSON(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "{\n\t\"api_key\": \"azGDORePK8gMaC0QOYAMyEEuzJnyUi\",\n\t\"user_key\": \"uQiRzpo4DXghDmr9QzzfQu27cmVRsG\"\n}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.APIKey != "azGDORePK8gMaC0QOYAMyEEuzJnyUi" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "azGDORePK8gMaC0QOYAMyEEuzJnyUi")
	}
	if cfg.UserKey != "uQiRzpo4DXghDmr9QzzfQu27cmVRsG" {
		t.Errorf("UserKey = %q, want %q", cfg.UserKey, "uQiRzpo4DXghDmr9QzzfQu27cmVRsG")
	}
	if cfg.BaseURL() != pushover.DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", cfg.BaseURL(), pushover.DefaultBaseURL)
	}
	if cfg.HistoryPath != "" {
		t.Errorf("HistoryPath = %q, want empty", cfg.HistoryPath)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `api_key: app
user_key: user
endpoint: http://localhost:8080
history_path: /tmp/podog.db
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	want := Config{
		APIKey:      "app",
		UserKey:     "user",
		Endpoint:    "http://localhost:8080",
		HistoryPath: "/tmp/podog.db",
		LogLevel:    "debug",
	}
	if *cfg != want {
		t.Errorf("Load() = %+v, want %+v", *cfg, want)
	}
	if cfg.BaseURL() != "http://localhost:8080" {
		t.Errorf("BaseURL() = %q, want %q", cfg.BaseURL(), "http://localhost:8080")
	}
}

func TestLoad_EnvironmentVariableOverride(t *testing.T) {
	path := writeConfig(t, `{"api_key": "app", "user_key": "user", "endpoint": "https://file.example.com"}`)

	t.Setenv("PODOG_ENDPOINT", "http://127.0.0.1:9999")
	t.Setenv("PODOG_HISTORY_PATH", "/var/lib/podog.db")
	t.Setenv("PODOG_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Endpoint != "http://127.0.0.1:9999" {
		t.Errorf("Endpoint = %q, want env override", cfg.Endpoint)
	}
	if cfg.HistoryPath != "/var/lib/podog.db" {
		t.Errorf("HistoryPath = %q, want env override", cfg.HistoryPath)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want env override", cfg.LogLevel)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	testCases := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "malformed", content: `{"api_key": "app", `, wantMsg: "failed to parse"},
		{name: "not an object", content: `["app", "user"]`, wantMsg: "failed to parse"},
		{name: "missing api_key", content: `{"user_key": "user"}`, wantMsg: "api_key is required"},
		{name: "missing user_key", content: `{"api_key": "app"}`, wantMsg: "user_key is required"},
		{name: "blank keys", content: `{"api_key": " ", "user_key": ""}`, wantMsg: "api_key is required"},
		{name: "empty file", content: ``, wantMsg: "api_key is required"},
		{name: "bad endpoint", content: `{"api_key": "a", "user_key": "u", "endpoint": "ftp://x"}`, wantMsg: "endpoint must be"},
		{name: "plain http endpoint", content: `{"api_key": "a", "user_key": "u", "endpoint": "http://api.example.com"}`, wantMsg: "HTTPS is required"},
		{name: "bad log level", content: `{"api_key": "a", "user_key": "u", "log_level": "loud"}`, wantMsg: "unsupported log_level"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)

			cfg, err := Load(path)
			if err == nil {
				t.Fatalf("Load() = %+v, want error", cfg)
			}
			var lerr *LoadError
			if !errors.As(err, &lerr) {
				t.Fatalf("Load() error = %v, want *LoadError", err)
			}
			if lerr.Path != path {
				t.Errorf("LoadError.Path = %q, want %q", lerr.Path, path)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("Load() error = %q, want it to contain %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := Load(path)

	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("Load() error = %v, want *LoadError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist to be wrapped, got %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if path != filepath.Join(home, ".podog") {
		t.Errorf("DefaultPath() = %q, want %q", path, filepath.Join(home, ".podog"))
	}
}

func TestCredentials(t *testing.T) {
	cfg := &Config{APIKey: " app\n", UserKey: "user "}

	got := cfg.Credentials()
	want := pushover.Credentials{Token: "app", User: "user"}
	if got != want {
		t.Errorf("Credentials() = %+v, want %+v", got, want)
	}
}
