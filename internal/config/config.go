// Package config loads folio settings from an optional YAML file with
// FOLIO_* environment overrides on top.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Relay kinds for contact submissions.
const (
	RelayForm = "form"
	RelaySMTP = "smtp"
	RelayLog  = "log"
)

// Config is the full application configuration.
type Config struct {
	Port        string `koanf:"port"`
	Mode        string `koanf:"mode"`
	LogLevel    string `koanf:"log_level"`
	DBPath      string `koanf:"db_path"`
	ContentPath string `koanf:"content_path"`
	StaticDir   string `koanf:"static_dir"`
	ImagesDir   string `koanf:"images_dir"`

	Nav     NavConfig     `koanf:"nav"`
	Contact ContactConfig `koanf:"contact"`
	Admin   AdminConfig   `koanf:"admin"`
	Privacy PrivacyConfig `koanf:"privacy"`
}

// NavConfig is handed to the browser navigation core.
type NavConfig struct {
	OffsetPx         float64       `koanf:"offset_px" json:"offset_px"`
	ScrollDuration   time.Duration `koanf:"scroll_duration" json:"-"`
	ScrollGrace      time.Duration `koanf:"scroll_grace" json:"-"`
	Thresholds       []float64     `koanf:"thresholds" json:"thresholds"`
	ProgressDecimals int           `koanf:"progress_decimals" json:"progress_decimals"`
	StrictAnchors    bool          `koanf:"strict_anchors" json:"strict_anchors"`
}

// ContactConfig selects and configures the contact relay.
type ContactConfig struct {
	Relay    string        `koanf:"relay"`
	Endpoint string        `koanf:"endpoint"`
	Timeout  time.Duration `koanf:"timeout"`
	To       string        `koanf:"to"`

	SMTPHost string `koanf:"smtp_host"`
	SMTPPort string `koanf:"smtp_port"`
	SMTPUser string `koanf:"smtp_user"`
	SMTPPass string `koanf:"smtp_pass"`
}

// AdminConfig holds dashboard credentials.
type AdminConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// PrivacyConfig controls visitor tracking.
type PrivacyConfig struct {
	TrackVisitors   bool          `koanf:"track_visitors"`
	Retention       time.Duration `koanf:"retention"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// DefaultThresholds are the visibility steps reported to the nav core.
var DefaultThresholds = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:      "8080",
		Mode:      "release",
		LogLevel:  "info",
		DBPath:    "data/folio.db",
		StaticDir: "static",
		ImagesDir: "images",
		Nav: NavConfig{
			OffsetPx:         80,
			ScrollDuration:   500 * time.Millisecond,
			ScrollGrace:      100 * time.Millisecond,
			ProgressDecimals: 2,
		},
		Contact: ContactConfig{
			Relay:    RelayLog,
			Timeout:  10 * time.Second,
			SMTPHost: "smtp.gmail.com",
			SMTPPort: "587",
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Privacy: PrivacyConfig{
			TrackVisitors:   true,
			Retention:       365 * 24 * time.Hour,
			CleanupInterval: 24 * time.Hour,
		},
	}
}

// Load reads path if it exists and overlays FOLIO_* variables, where a
// double underscore separates nesting: FOLIO_CONTACT__RELAY=form.
// PORT is honoured as well for hosting platforms that set it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("FOLIO_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "FOLIO_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Slices merge element-wise into pre-filled targets, so the default is
	// applied afterwards.
	if len(cfg.Nav.Thresholds) == 0 {
		cfg.Nav.Thresholds = append([]float64(nil), DefaultThresholds...)
	}
	if port := os.Getenv("PORT"); port != "" && !k.Exists("port") {
		cfg.Port = port
	}
	return cfg, nil
}

var validModes = map[string]bool{"debug": true, "release": true, "test": true}

var validRelays = map[string]bool{RelayForm: true, RelaySMTP: true, RelayLog: true}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if !validModes[c.Mode] {
		return fmt.Errorf("invalid mode %q: must be one of debug, release, test", c.Mode)
	}
	if c.Nav.OffsetPx < 0 {
		return fmt.Errorf("nav.offset_px must be non-negative")
	}
	if c.Nav.ScrollDuration <= 0 {
		return fmt.Errorf("nav.scroll_duration must be positive")
	}
	if c.Nav.ScrollGrace < 0 {
		return fmt.Errorf("nav.scroll_grace must be non-negative")
	}
	for _, t := range c.Nav.Thresholds {
		if t <= 0 || t > 1 {
			return fmt.Errorf("nav.thresholds: %v is outside (0,1]", t)
		}
	}
	if c.Nav.ProgressDecimals < 1 {
		return fmt.Errorf("nav.progress_decimals must be at least 1")
	}

	if !validRelays[c.Contact.Relay] {
		return fmt.Errorf("invalid contact.relay %q: must be one of form, smtp, log", c.Contact.Relay)
	}
	switch c.Contact.Relay {
	case RelayForm:
		if c.Contact.Endpoint == "" {
			return fmt.Errorf("contact.endpoint is required for the form relay")
		}
	case RelaySMTP:
		if c.Contact.SMTPUser == "" || c.Contact.SMTPPass == "" {
			return fmt.Errorf("SMTP credentials not configured")
		}
		if c.Contact.To == "" {
			return fmt.Errorf("contact.to is required for the smtp relay")
		}
	}
	return nil
}

// Debug reports whether the server runs in gin debug mode.
func (c *Config) Debug() bool {
	return c.Mode == "debug"
}
