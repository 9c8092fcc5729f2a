/*
Package config loads the service configuration.

SOURCES (later wins):
  1. DefaultConfig()
  2. YAML file (created with defaults on first run, 0600)
  3. .env file in the working directory, if present
  4. ATTENDANCE_* environment variables

  The anchor date is validated eagerly. A wrong anchor would silently shift
  every historical report, so Validate fails rather than defaulting.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dojang/attendance/applog"
	"github.com/dojang/attendance/report"
	"github.com/dojang/attendance/schedule"
)

// Environment variable names.
const (
	EnvListen    = "ATTENDANCE_LISTEN"
	EnvDBPath    = "ATTENDANCE_DB"
	EnvAnchor    = "ATTENDANCE_ANCHOR"
	EnvLogLevel  = "ATTENDANCE_LOG_LEVEL"
	EnvAuditCron = "ATTENDANCE_AUDIT_CRON"
)

// ErrInvalidConfig wraps every validation failure other than the anchor.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path" json:"db_path"`

	// Anchor is the secondary-calendar date reports count from.
	Anchor string `yaml:"anchor" json:"anchor"`

	// WeekStart names the first day of the practice week ("saturday", ...).
	WeekStart string `yaml:"week_start" json:"week_start"`

	// PracticeOffsets are the practice days as offsets from WeekStart.
	PracticeOffsets []int `yaml:"practice_offsets" json:"practice_offsets"`

	// AuditCron schedules the consistency audit. Empty disables it.
	AuditCron string `yaml:"audit_cron" json:"audit_cron"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
}

const (
	DefaultListen    = ":8080"
	DefaultDBPath    = "./data/attendance.db"
	DefaultAnchor    = "1404-07-27"
	DefaultAuditCron = "0 3 * * *"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          DefaultListen,
		DBPath:          DefaultDBPath,
		Anchor:          DefaultAnchor,
		WeekStart:       "saturday",
		PracticeOffsets: append([]int(nil), schedule.DefaultOffsets...),
		AuditCron:       DefaultAuditCron,
		LogLevel:        "info",
		CORSOrigins:     []string{"*"},
	}
}

// Normalize fills in missing values. It never touches Anchor or AuditCron:
// an empty anchor must fail validation and an empty cron disables the audit.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart == "" {
		c.WeekStart = "saturday"
	}
	if len(c.PracticeOffsets) == 0 {
		c.PracticeOffsets = append([]int(nil), schedule.DefaultOffsets...)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{"*"}
	}
}

// Validate checks the anchor and the practice pattern.
func (c *Config) Validate() error {
	if _, err := c.Pattern(); err != nil {
		return err
	}
	if _, err := report.ParseAnchor(c.Anchor); err != nil {
		return err
	}
	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Pattern builds the practice pattern from WeekStart and PracticeOffsets.
func (c *Config) Pattern() (schedule.Pattern, error) {
	ws, err := ParseWeekday(c.WeekStart)
	if err != nil {
		return schedule.Pattern{}, err
	}
	p, err := schedule.NewPattern(ws, c.PracticeOffsets)
	if err != nil {
		return schedule.Pattern{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return p, nil
}

// ParseWeekday accepts English weekday names in any case.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown week start %q", ErrInvalidConfig, s)
}

// ApplyEnv overrides fields from ATTENDANCE_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvAnchor); v != "" {
		c.Anchor = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvAuditCron); ok {
		c.AuditCron = v
	}
}

// LoadEnvFile loads a .env file into the process environment. A missing file
// is fine; variables already set are not overwritten.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	applog.Info("loaded env file", "path", path)
	return nil
}

// Load reads the YAML file at path (creating it with defaults on first run),
// applies the environment and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return nil, fmt.Errorf("write default config: %w", err)
			}
			applog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".attendance-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
