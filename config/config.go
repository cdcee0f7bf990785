// config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gewnthar/ulsync/models"
)

const (
	DefaultArchiveURL = "https://data.fcc.gov/download/pub/uls/complete/l_amat.zip"
	DefaultBatchSize  = 50000
)

type SourceConfig struct {
	ArchiveURL      string `yaml:"archive_url"`
	IndexURL        string `yaml:"index_url"` // optional HTML listing, used when HEAD has no Last-Modified
	TimeoutStr      string `yaml:"timeout"`
	CheckTimeoutStr string `yaml:"check_timeout"`
	Retries         int    `yaml:"retries"`
	BackoffStr      string `yaml:"backoff"`

	Timeout      time.Duration `yaml:"-"` // Parsed durations
	CheckTimeout time.Duration `yaml:"-"`
	Backoff      time.Duration `yaml:"-"`
}

type PathsConfig struct {
	DataDir      string `yaml:"data_dir"`
	ArchivePath  string `yaml:"archive_path"`
	ExtractDir   string `yaml:"extract_dir"`
	MetadataPath string `yaml:"metadata_path"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite3" or "mysql"
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type LoadConfig struct {
	BatchSize    int      `yaml:"batch_size"`
	Tables       []string `yaml:"tables"`
	KeepFiles    bool     `yaml:"keep_files"`
	ActiveStatus string   `yaml:"active_status"`
}

type LookupConfig struct {
	MaxResults int `yaml:"max_results"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Paths    PathsConfig    `yaml:"paths"`
	Database DatabaseConfig `yaml:"database"`
	Load     LoadConfig     `yaml:"load"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns a configuration that mirrors the amateur license archive
// into ./data/uls.db.
func Default() Config {
	return Config{
		Source: SourceConfig{
			ArchiveURL:      DefaultArchiveURL,
			TimeoutStr:      "10m",
			CheckTimeoutStr: "30s",
			Retries:         3,
			BackoffStr:      "5s",
		},
		Paths: PathsConfig{
			DataDir: "data",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			Port:   "3306",
		},
		Load: LoadConfig{
			BatchSize:    DefaultBatchSize,
			ActiveStatus: "A",
		},
		Lookup: LookupConfig{
			MaxResults: 500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadDotEnv loads KEY=value pairs from envFile into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}

// Load reads configuration from the YAML file at configPath (if any) and then
// applies ULSYNC_* environment overrides.
// With an empty configPath, ULSYNC_CONFIG and then ulsync.yaml / config/ulsync.yaml
// are tried; finding none of them just means defaults plus environment.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		configPath = os.Getenv("ULSYNC_CONFIG")
	}
	if configPath == "" {
		for _, p := range []string{"ulsync.yaml", filepath.Join("config", "ulsync.yaml")} {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type envOverride struct {
	name  string
	apply func(c *Config, v string) error
}

var envOverrides = []envOverride{
	{"ULSYNC_ARCHIVE_URL", func(c *Config, v string) error { c.Source.ArchiveURL = v; return nil }},
	{"ULSYNC_INDEX_URL", func(c *Config, v string) error { c.Source.IndexURL = v; return nil }},
	{"ULSYNC_TIMEOUT", func(c *Config, v string) error { c.Source.TimeoutStr = v; return nil }},
	{"ULSYNC_CHECK_TIMEOUT", func(c *Config, v string) error { c.Source.CheckTimeoutStr = v; return nil }},
	{"ULSYNC_BACKOFF", func(c *Config, v string) error { c.Source.BackoffStr = v; return nil }},
	{"ULSYNC_RETRIES", func(c *Config, v string) error { return setInt(&c.Source.Retries, v) }},
	{"ULSYNC_DATA_DIR", func(c *Config, v string) error { c.Paths.DataDir = v; return nil }},
	{"ULSYNC_DB_DRIVER", func(c *Config, v string) error { c.Database.Driver = v; return nil }},
	{"ULSYNC_DB_PATH", func(c *Config, v string) error { c.Database.Path = v; return nil }},
	{"ULSYNC_DB_HOST", func(c *Config, v string) error { c.Database.Host = v; return nil }},
	{"ULSYNC_DB_PORT", func(c *Config, v string) error { c.Database.Port = v; return nil }},
	{"ULSYNC_DB_USER", func(c *Config, v string) error { c.Database.User = v; return nil }},
	{"ULSYNC_DB_PASSWORD", func(c *Config, v string) error { c.Database.Password = v; return nil }},
	{"ULSYNC_DB_NAME", func(c *Config, v string) error { c.Database.DBName = v; return nil }},
	{"ULSYNC_BATCH_SIZE", func(c *Config, v string) error { return setInt(&c.Load.BatchSize, v) }},
	{"ULSYNC_TABLES", func(c *Config, v string) error { c.Load.Tables = splitList(v); return nil }},
	{"ULSYNC_KEEP_FILES", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Load.KeepFiles = b
		return nil
	}},
	{"ULSYNC_ACTIVE_STATUS", func(c *Config, v string) error { c.Load.ActiveStatus = v; return nil }},
	{"ULSYNC_MAX_RESULTS", func(c *Config, v string) error { return setInt(&c.Lookup.MaxResults, v) }},
	{"ULSYNC_LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"ULSYNC_LOG_FORMAT", func(c *Config, v string) error { c.Log.Format = v; return nil }},
}

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		v, ok := lookup(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(c, v); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", o.name, v, err)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// finalize parses durations and fills in paths derived from the data dir.
func (c *Config) finalize() error {
	var err error
	if c.Source.Timeout, err = parseDuration("source.timeout", c.Source.TimeoutStr, 10*time.Minute); err != nil {
		return err
	}
	if c.Source.CheckTimeout, err = parseDuration("source.check_timeout", c.Source.CheckTimeoutStr, 30*time.Second); err != nil {
		return err
	}
	if c.Source.Backoff, err = parseDuration("source.backoff", c.Source.BackoffStr, 5*time.Second); err != nil {
		return err
	}

	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "data"
	}
	if c.Paths.ArchivePath == "" {
		c.Paths.ArchivePath = filepath.Join(c.Paths.DataDir, archiveName(c.Source.ArchiveURL))
	}
	if c.Paths.ExtractDir == "" {
		c.Paths.ExtractDir = filepath.Join(c.Paths.DataDir, "extracted")
	}
	if c.Paths.MetadataPath == "" {
		c.Paths.MetadataPath = filepath.Join(c.Paths.DataDir, "ulsync_metadata.json")
	}
	if c.Database.Driver == "sqlite3" && c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.Paths.DataDir, "uls.db")
	}

	for i, t := range c.Load.Tables {
		c.Load.Tables[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	return nil
}

func parseDuration(field, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return d, nil
}

func archiveName(archiveURL string) string {
	name := archiveURL
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "archive.zip"
	}
	return name
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Source.ArchiveURL == "" {
		return errors.New("source.archive_url is required")
	}
	if c.Source.Retries < 0 {
		return fmt.Errorf("source.retries must be >= 0, got %d", c.Source.Retries)
	}
	if c.Load.BatchSize <= 0 {
		return fmt.Errorf("load.batch_size must be positive, got %d", c.Load.BatchSize)
	}
	if c.Load.ActiveStatus == "" {
		return errors.New("load.active_status is required")
	}
	for _, t := range c.Load.Tables {
		if _, ok := models.ParseTableKind(t); !ok {
			return fmt.Errorf("load.tables: unknown table kind %q", t)
		}
	}
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite3")
		}
	case "mysql":
		if c.Database.Host == "" || c.Database.DBName == "" {
			return errors.New("database.host and database.dbname are required for mysql")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Lookup.MaxResults < 0 {
		return fmt.Errorf("lookup.max_results must be >= 0, got %d", c.Lookup.MaxResults)
	}
	return nil
}

// TableKinds returns the table kinds selected for processing, in load order.
func (c *Config) TableKinds() []models.TableKind {
	if len(c.Load.Tables) == 0 {
		return models.AllTableKinds()
	}
	selected := make(map[models.TableKind]bool, len(c.Load.Tables))
	for _, t := range c.Load.Tables {
		if k, ok := models.ParseTableKind(t); ok {
			selected[k] = true
		}
	}
	var kinds []models.TableKind
	for _, k := range models.AllTableKinds() {
		if selected[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
