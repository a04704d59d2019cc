package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

// Config holds all cloudburn configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Source     SourceConfig     `toml:"source"`
	Budgets    []BudgetConfig   `toml:"budgets"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Log        LogConfig        `toml:"log"`
	Appearance AppearanceConfig `toml:"appearance"`
	Pricing    PricingConfig    `toml:"pricing"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultDays int    `toml:"default_days"`
	Granularity string `toml:"granularity"`
	ExportDir   string `toml:"export_dir,omitempty"`
}

// Source kinds.
const (
	SourceSQLite = "sqlite"
	SourceHTTP   = "http"
)

// SourceConfig selects and tunes the consumption source.
type SourceConfig struct {
	Kind           string  `toml:"kind"`
	DBPath         string  `toml:"db_path,omitempty"`
	BaseURL        string  `toml:"base_url,omitempty"`
	APIKey         string  `toml:"api_key,omitempty"`
	Region         string  `toml:"region,omitempty"`
	Account        string  `toml:"account,omitempty"`
	Currency       string  `toml:"currency,omitempty"`
	TimeoutSec     int     `toml:"timeout_sec"`
	RequestsPerSec float64 `toml:"requests_per_sec"`
	CacheSize      int     `toml:"cache_size"`
	CacheTTLSec    int     `toml:"cache_ttl_sec"`
}

// BudgetConfig is a budget as written in the config file.
type BudgetConfig struct {
	Name       string  `toml:"name"`
	PeriodType string  `toml:"period_type"`
	Amount     float64 `toml:"amount"`
	StartDate  string  `toml:"start_date"`
	EndDate    string  `toml:"end_date,omitempty"`
}

// DaemonConfig holds background poller settings.
type DaemonConfig struct {
	Addr         string `toml:"addr"`
	Schedule     string `toml:"schedule"`
	WatchConfig  bool   `toml:"watch_config"`
	EventsBuffer int    `toml:"events_buffer"`
	Concurrency  int    `toml:"concurrency"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultDays: 90,
			Granularity: string(calendar.Week),
		},
		Source: SourceConfig{
			Kind:        SourceSQLite,
			TimeoutSec:  10,
			CacheSize:   512,
			CacheTTLSec: 300,
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			Schedule:     "@every 15m",
			WatchConfig:  true,
			EventsBuffer: 200,
			Concurrency:  4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cloudburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cloudburn")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the default config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config file at path, returning defaults if it doesn't
// exist. An empty path means ConfigPath().
func LoadFrom(path string) (Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config file
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path with owner-only permissions.
func SaveTo(path string, cfg Config) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetAPIKey returns the billing API key from env var or config, in that order.
func GetAPIKey(cfg Config) string {
	if key := os.Getenv("CLOUDBURN_API_KEY"); key != "" {
		return key
	}
	return cfg.Source.APIKey
}

// Exists returns true if a config file exists at path (or the default path).
func Exists(path string) bool {
	if path == "" {
		path = ConfigPath()
	}
	_, err := os.Stat(path)
	return err == nil
}

// ToBudget converts a config entry to a validated budget.
func (bc BudgetConfig) ToBudget() (model.Budget, error) {
	if strings.TrimSpace(bc.Name) == "" {
		return model.Budget{}, &calendar.ValidationError{Field: "name", Reason: "is required"}
	}
	pt, err := model.ParsePeriodType(bc.PeriodType)
	if err != nil {
		return model.Budget{}, fmt.Errorf("budget %q: %w", bc.Name, err)
	}
	start, err := calendar.ParseDate(bc.StartDate)
	if err != nil {
		return model.Budget{}, fmt.Errorf("budget %q: start_date: %w", bc.Name, err)
	}
	b := model.Budget{
		ID:         slug(bc.Name),
		Name:       bc.Name,
		PeriodType: pt,
		Amount:     bc.Amount,
		StartDate:  start,
	}
	if bc.EndDate != "" {
		end, err := calendar.ParseDate(bc.EndDate)
		if err != nil {
			return model.Budget{}, fmt.Errorf("budget %q: end_date: %w", bc.Name, err)
		}
		b.EndDate = &end
	}
	if err := b.Validate(); err != nil {
		return model.Budget{}, fmt.Errorf("budget %q: %w", bc.Name, err)
	}
	return b, nil
}

// BudgetFromModel converts a budget back to its config form.
func BudgetFromModel(b model.Budget) BudgetConfig {
	bc := BudgetConfig{
		Name:       b.Name,
		PeriodType: string(b.PeriodType),
		Amount:     b.Amount,
		StartDate:  b.StartDate.String(),
	}
	if b.EndDate != nil {
		bc.EndDate = b.EndDate.String()
	}
	return bc
}

// BudgetList converts every configured budget, failing on the first invalid one.
func (c Config) BudgetList() ([]model.Budget, error) {
	out := make([]model.Budget, 0, len(c.Budgets))
	for _, bc := range c.Budgets {
		b, err := bc.ToBudget()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// FindBudget returns the budget with the given name or slug.
func (c Config) FindBudget(name string) (model.Budget, error) {
	for _, bc := range c.Budgets {
		if strings.EqualFold(bc.Name, name) || slug(bc.Name) == slug(name) {
			return bc.ToBudget()
		}
	}
	return model.Budget{}, fmt.Errorf("budget %q not found", name)
}

// AddBudget validates b and appends it, rejecting duplicate names.
func (c *Config) AddBudget(b model.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	for _, bc := range c.Budgets {
		if slug(bc.Name) == slug(b.Name) {
			return &calendar.ValidationError{Field: "name", Value: b.Name, Reason: "a budget with this name already exists"}
		}
	}
	c.Budgets = append(c.Budgets, BudgetFromModel(b))
	return nil
}

// RemoveBudget deletes the named budget. It reports whether one was removed.
func (c *Config) RemoveBudget(name string) bool {
	for i, bc := range c.Budgets {
		if slug(bc.Name) == slug(name) {
			c.Budgets = append(c.Budgets[:i], c.Budgets[i+1:]...)
			return true
		}
	}
	return false
}

// slug lowercases a name and replaces runs of non-alphanumerics with '-'.
func slug(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
