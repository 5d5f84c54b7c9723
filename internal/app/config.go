package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"promptdojo/internal/gateway"
	"promptdojo/internal/telemetry"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
)

// EnvPrefix namespaces every environment variable read into Config, except
// the provider API keys.
const EnvPrefix = "PROMPTDOJO_"

// Config controls runtime behavior for the TUI app.
type Config struct {
	DataDir   string        `env:"DATA_DIR"`
	LogPath   string        `env:"LOG"`
	LogLevel  string        `env:"LOG_LEVEL"`
	ASCIIOnly bool          `env:"ASCII"`
	Ephemeral bool          `env:"EPHEMERAL"`
	Gateway   GatewayConfig `envPrefix:"GATEWAY_"`
	UI        UIConfig      `envPrefix:"UI_"`
}

type GatewayConfig struct {
	// Kind is auto, gemini or mock. Auto picks gemini when an API key is set.
	Kind        string        `env:"KIND"`
	APIKey      string        `env:"API_KEY"`
	ImageModel  string        `env:"IMAGE_MODEL"`
	ScoreModel  string        `env:"SCORE_MODEL"`
	Timeout     time.Duration `env:"TIMEOUT"`
	MockLatency time.Duration `env:"MOCK_LATENCY"`
}

type UIConfig struct {
	StyleVariant string `env:"STYLE"`
	MotionLevel  string `env:"MOTION"`
	MouseScope   string `env:"MOUSE"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Gateway: GatewayConfig{
			Kind:        "auto",
			ImageModel:  gateway.DefaultImageModel,
			ScoreModel:  gateway.DefaultScoreModel,
			Timeout:     60 * time.Second,
			MockLatency: 600 * time.Millisecond,
		},
		UI: UIConfig{
			MotionLevel: "full",
			MouseScope:  "scoped",
		},
	}
}

// LoadEnv overlays the environment on c. envFile, when set and present, is
// read first with godotenv; variables already in the environment win.
func (c *Config) LoadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	if c.Gateway.APIKey == "" {
		var keys struct {
			Gemini  string `env:"GEMINI_API_KEY"`
			Generic string `env:"API_KEY"`
		}
		if err := env.Parse(&keys); err != nil {
			return fmt.Errorf("parse api key: %w", err)
		}
		c.Gateway.APIKey = firstNonEmpty(keys.Gemini, keys.Generic)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Gateway.Kind {
	case "", "auto", "gemini", "mock":
	default:
		return fmt.Errorf("invalid gateway %q", c.Gateway.Kind)
	}
	if c.Gateway.Kind == "" {
		c.Gateway.Kind = "auto"
	}
	if c.Gateway.Kind == "gemini" && strings.TrimSpace(c.Gateway.APIKey) == "" {
		return errors.New("gemini gateway needs GEMINI_API_KEY (or use --gateway mock)")
	}
	if c.Gateway.ImageModel == "" {
		c.Gateway.ImageModel = gateway.DefaultImageModel
	}
	if c.Gateway.ScoreModel == "" {
		c.Gateway.ScoreModel = gateway.DefaultScoreModel
	}
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 60 * time.Second
	}
	if c.Gateway.MockLatency < 0 {
		return fmt.Errorf("invalid mock latency %s", c.Gateway.MockLatency)
	}

	if _, err := telemetry.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.UI.StyleVariant {
	case "", "modern_arcade", "cozy_clean", "retro_terminal", "catppuccin":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "modern_arcade"
	}
	switch c.UI.MotionLevel {
	case "", "off", "reduced", "full":
	default:
		return fmt.Errorf("invalid ui motion level %q", c.UI.MotionLevel)
	}
	if c.UI.MotionLevel == "" {
		c.UI.MotionLevel = "full"
	}
	switch c.UI.MouseScope {
	case "", "off", "scoped", "full":
	default:
		return fmt.Errorf("invalid ui mouse scope %q", c.UI.MouseScope)
	}
	if c.UI.MouseScope == "" {
		c.UI.MouseScope = "scoped"
	}

	if c.DataDir == "" {
		dir, err := gap.NewScope(gap.User, "promptdojo").DataPath("")
		if err != nil {
			return fmt.Errorf("cannot resolve data directory: %w", err)
		}
		c.DataDir = dir
	}
	var err error
	if c.DataDir, err = homedir.Expand(c.DataDir); err != nil {
		return fmt.Errorf("expand data dir: %w", err)
	}
	if c.LogPath, err = homedir.Expand(c.LogPath); err != nil {
		return fmt.Errorf("expand log path: %w", err)
	}
	return nil
}

// GatewayKind resolves auto to the gateway that will actually be used.
func (c Config) GatewayKind() string {
	if c.Gateway.Kind != "auto" && c.Gateway.Kind != "" {
		return c.Gateway.Kind
	}
	if strings.TrimSpace(c.Gateway.APIKey) != "" {
		return "gemini"
	}
	return "mock"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
