package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"promptdojo/internal/gameplay"
	"promptdojo/internal/gateway"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, EnvPrefix) || name == "GEMINI_API_KEY" || name == "API_KEY" {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.UI.StyleVariant != "modern_arcade" {
		t.Fatalf("unexpected default style %q", cfg.UI.StyleVariant)
	}
	if cfg.Gateway.ImageModel != gateway.DefaultImageModel || cfg.Gateway.ScoreModel != gateway.DefaultScoreModel {
		t.Fatalf("unexpected models %+v", cfg.Gateway)
	}
	if cfg.GatewayKind() != "mock" {
		t.Fatalf("expected mock without an api key, got %q", cfg.GatewayKind())
	}
}

func TestValidateResolvesDataDir(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.DataDir == "" || strings.HasPrefix(cfg.DataDir, "~") {
		t.Fatalf("expected an absolute data dir, got %q", cfg.DataDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"gateway":         func(c *Config) { c.Gateway.Kind = "dalle" },
		"gemini no key":   func(c *Config) { c.Gateway.Kind = "gemini" },
		"log level":       func(c *Config) { c.LogLevel = "loud" },
		"style":           func(c *Config) { c.UI.StyleVariant = "neon" },
		"motion":          func(c *Config) { c.UI.MotionLevel = "bouncy" },
		"mouse":           func(c *Config) { c.UI.MouseScope = "everywhere" },
		"negative mocked": func(c *Config) { c.Gateway.MockLatency = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestGatewayKindAutoPicksGemini(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gateway.APIKey = "k"
	if got := cfg.GatewayKind(); got != "gemini" {
		t.Fatalf("expected gemini, got %q", got)
	}
	cfg.Gateway.Kind = "mock"
	if got := cfg.GatewayKind(); got != "mock" {
		t.Fatalf("explicit kind must win, got %q", got)
	}
}

func TestLoadEnvReadsPrefixedVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROMPTDOJO_UI_STYLE", "cozy_clean")
	t.Setenv("PROMPTDOJO_GATEWAY_TIMEOUT", "15s")
	t.Setenv("PROMPTDOJO_EPHEMERAL", "true")
	t.Setenv("GEMINI_API_KEY", "from-gemini")

	cfg := DefaultConfig()
	if err := cfg.LoadEnv(""); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.UI.StyleVariant != "cozy_clean" || cfg.Gateway.Timeout != 15*time.Second || !cfg.Ephemeral {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Gateway.APIKey != "from-gemini" {
		t.Fatalf("expected GEMINI_API_KEY fallback, got %q", cfg.Gateway.APIKey)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PROMPTDOJO_LOG_LEVEL=debug\nAPI_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROMPTDOJO_LOG_LEVEL", "")
	os.Unsetenv("PROMPTDOJO_LOG_LEVEL")
	t.Setenv("API_KEY", "")
	os.Unsetenv("API_KEY")

	cfg := DefaultConfig()
	if err := cfg.LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Gateway.APIKey != "from-file" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestPassThresholdIsNotConfigurable(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROMPTDOJO_PASS_THRESHOLD", "50")
	cfg := DefaultConfig()
	if err := cfg.LoadEnv(""); err != nil {
		t.Fatalf("load env: %v", err)
	}
	cfg.DataDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	a, view := newTestApp(t, nil, nil)
	a.OnOpenSettings()
	want := fmt.Sprintf("Pass threshold: %d%%", gameplay.PassThreshold)
	if !strings.Contains(view.infoText, want) {
		t.Fatalf("settings should report the fixed threshold %q:\n%s", want, view.infoText)
	}
}

func TestLoadEnvMissingFileIsIgnored(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	if err := cfg.LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}
