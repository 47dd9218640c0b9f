package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/Tiliavir/timeline-manager/internal/layout"
	"github.com/Tiliavir/timeline-manager/internal/storage"
)

// Config is the root configuration for tlm, stored in ~/.tlm/config.json.
// The file supports single-line // comments for documentation purposes.
// Environment variables (TLM_*) override values from the file.
type Config struct {
	Layout  LayoutConfig  `json:"layout"`
	Storage StorageConfig `json:"storage"`
	Outlook OutlookConfig `json:"outlook"`
	Server  ServerConfig  `json:"server"`
}

// LayoutConfig holds the defaults for computing layouts.
type LayoutConfig struct {
	// Perspective is day, week, month or year.
	Perspective string `json:"perspective" env:"TLM_PERSPECTIVE"`
	// ViewportWidth is the minimum drawing width in pixels. 0 = timeline range only.
	ViewportWidth int `json:"viewport_width" env:"TLM_VIEWPORT_WIDTH"`
	// OutOfRange is allow, clamp or reject.
	OutOfRange string `json:"out_of_range" env:"TLM_OUT_OF_RANGE"`
	// ExactYearBands sizes year-perspective month bands by the real month length.
	ExactYearBands bool `json:"exact_year_bands" env:"TLM_EXACT_YEAR_BANDS"`
	// UnitWidths overrides the pixel width of one day per perspective.
	UnitWidths map[string]int `json:"unit_widths,omitempty"`
}

// StorageConfig selects where timelines are kept.
type StorageConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `json:"backend" env:"TLM_STORAGE_BACKEND"`
	// Dir holds one file per timeline for the file backend.
	Dir string `json:"dir" env:"TLM_STORAGE_DIR"`
	// Format is json or yaml for new timeline files.
	Format string `json:"format" env:"TLM_STORAGE_FORMAT"`
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `json:"sqlite_path" env:"TLM_SQLITE_PATH"`
}

// OutlookConfig holds Microsoft Graph / Outlook calendar import settings.
type OutlookConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `json:"tenant_id" env:"TLM_OUTLOOK_TENANT_ID"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `json:"client_id" env:"TLM_OUTLOOK_CLIENT_ID"`
	// Timezone is the IANA timezone for event times (e.g. "Europe/Berlin"). Empty = UTC.
	Timezone string `json:"timezone" env:"TLM_OUTLOOK_TIMEZONE"`
}

// ServerConfig holds the settings of tlm serve.
type ServerConfig struct {
	Addr string `json:"addr" env:"TLM_SERVER_ADDR"`
	// OTelEndpoint is an OTLP/HTTP traces URL. Empty disables tracing.
	OTelEndpoint string `json:"otel_endpoint" env:"TLM_OTEL_ENDPOINT"`
}

const (
	// DefaultTenantID is the Microsoft "common" tenant (supports personal and
	// multi-tenant organisational accounts without additional registration).
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID.
	// It supports device code flow without a client secret and requires no
	// app registration. Replace with your own registered app ID for
	// organisational or production deployments.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"

	DefaultPerspective = "month"
	DefaultOutOfRange  = "allow"
	DefaultBackend     = "file"
	DefaultFormat      = "json"
	DefaultServerAddr  = "127.0.0.1:8080"
)

// defaultConfig returns a Config pre-filled with sensible defaults. Paths
// are resolved against base, the tlm data directory.
func defaultConfig(base string) Config {
	var cfg Config
	cfg.applyDefaults(base)
	return cfg
}

// applyDefaults fills zero-value fields with built-in defaults so callers
// always get a usable Config even if the user only partially fills in the file.
func (c *Config) applyDefaults(base string) {
	if c.Layout.Perspective == "" {
		c.Layout.Perspective = DefaultPerspective
	}
	if c.Layout.OutOfRange == "" {
		c.Layout.OutOfRange = DefaultOutOfRange
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultBackend
	}
	if c.Storage.Format == "" {
		c.Storage.Format = DefaultFormat
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = filepath.Join(base, "timelines")
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join(base, "tlm.db")
	}
	if c.Outlook.TenantID == "" {
		c.Outlook.TenantID = DefaultTenantID
	}
	if c.Outlook.ClientID == "" {
		c.Outlook.ClientID = DefaultClientID
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
}

// LayoutOptions converts the layout section into layout.Options.
func (c Config) LayoutOptions() (layout.Options, error) {
	policy, err := layout.ParsePolicy(c.Layout.OutOfRange)
	if err != nil {
		return layout.Options{}, fmt.Errorf("config layout.out_of_range: %w", err)
	}
	opts := layout.Options{
		ViewportWidth:  c.Layout.ViewportWidth,
		OutOfRange:     policy,
		ExactYearBands: c.Layout.ExactYearBands,
	}
	if opts.ViewportWidth < 0 {
		return layout.Options{}, fmt.Errorf("config layout.viewport_width must not be negative, got %d", opts.ViewportWidth)
	}
	for name, w := range c.Layout.UnitWidths {
		p, err := layout.ParsePerspective(name)
		if err != nil {
			return layout.Options{}, fmt.Errorf("config layout.unit_widths: %w", err)
		}
		if w <= 0 || w%2 != 0 {
			return layout.Options{}, fmt.Errorf("config layout.unit_widths.%s: %w", name, layout.ErrInvalidUnitWidth)
		}
		if opts.UnitWidths == nil {
			opts.UnitWidths = make(map[layout.Perspective]int)
		}
		opts.UnitWidths[p] = w
	}
	return opts, nil
}

// Perspective returns the configured default perspective.
func (c Config) Perspective() (layout.Perspective, error) {
	p, err := layout.ParsePerspective(c.Layout.Perspective)
	if err != nil {
		return 0, fmt.Errorf("config layout.perspective: %w", err)
	}
	return p, nil
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// tlm configuration – ~/.tlm/config.json
//
// All settings are optional; the built-in defaults shown below work out of
// the box. Every value can also be set with the TLM_* environment variable
// named next to it, which wins over this file.
{
  // ── Layout ───────────────────────────────────────────────────────────────
  "layout": {
    // Default perspective: "day", "week", "month" or "year".  TLM_PERSPECTIVE
    "perspective": "month",

    // Minimum drawing width in pixels; 0 draws the timeline range only.  TLM_VIEWPORT_WIDTH
    "viewport_width": 0,

    // Events outside the timeline range:  TLM_OUT_OF_RANGE
    // • "allow"  – draw them off the grid (default)
    // • "clamp"  – pull their dates into the range
    // • "reject" – refuse to add them and fail the layout
    "out_of_range": "allow",

    // Size month bands in the year perspective by the real month length.  TLM_EXACT_YEAR_BANDS
    "exact_year_bands": false
  },

  // ── Storage ──────────────────────────────────────────────────────────────
  "storage": {
    // "file" keeps one file per timeline, "sqlite" a single database.  TLM_STORAGE_BACKEND
    "backend": "file",

    // Format of new timeline files: "json" or "yaml".  TLM_STORAGE_FORMAT
    "format": "json",

    // Empty paths default to ~/.tlm/timelines and ~/.tlm/tlm.db.  TLM_STORAGE_DIR, TLM_SQLITE_PATH
    "dir": "",
    "sqlite_path": ""
  },

  // ── Microsoft Graph / Outlook calendar import ────────────────────────────
  "outlook": {
    // Azure AD tenant ID.  TLM_OUTLOOK_TENANT_ID
    // • "common"  – personal Microsoft accounts and any organisation (default)
    // • Your organisation's tenant GUID, e.g. "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"
    "tenant_id": "common",

    // Azure application (client) ID used for the OAuth2 device code flow.
    // The built-in value is the public Azure CLI app – no app registration needed.  TLM_OUTLOOK_CLIENT_ID
    "client_id": "04b07795-8542-4c4a-95af-30b2c573d5ab",

    // IANA timezone for interpreting calendar event times, e.g. "Europe/Berlin".
    // Leave empty to use UTC. Can be overridden with: tlm outlook import --timezone <tz>
    "timezone": ""
  },

  // ── tlm serve ────────────────────────────────────────────────────────────
  "server": {
    // Listen address.  TLM_SERVER_ADDR
    "addr": "127.0.0.1:8080",

    // OTLP/HTTP endpoint for request traces, e.g. "http://localhost:4318/v1/traces".
    // Empty disables tracing.  TLM_OTEL_ENDPOINT
    "otel_endpoint": ""
  }
}
`

// Dir returns the tlm data directory (~/.tlm).
func Dir() (string, error) {
	return storage.BaseDir()
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads ~/.tlm/config.json, creating it with annotated defaults on first
// run, and applies TLM_* environment overrides.
func Load() (Config, error) {
	base, err := Dir()
	if err != nil {
		return defaultConfig("."), err
	}
	return LoadDir(base)
}

// LoadDir is Load for the data directory base.
func LoadDir(base string) (Config, error) {
	path := filepath.Join(base, "config.json")
	cfg, err := readFile(path)
	if err != nil {
		return defaultConfig(base), err
	}
	if err := env.Parse(&cfg); err != nil {
		return defaultConfig(base), fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults(base)
	cfg.Layout.Perspective = strings.ToLower(strings.TrimSpace(cfg.Layout.Perspective))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	return cfg, nil
}

func readFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cleaned := stripLineComments(data)
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	return cfg, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
