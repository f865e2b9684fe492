package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides, in the
// form MEDIA_MONITOR_<SOURCE>_<FIELD> (e.g. MEDIA_MONITOR_REDDIT_CLIENT_ID).
const EnvPrefix = "MEDIA_MONITOR_"

const (
	defaultDatabasePath = "data/media-monitor.db"
	defaultCron         = "0 9 * * *" // daily at 9 AM UTC
)

// SourceConfig holds the configuration shared by all source clients.
// Sub-sources are given either as a flat list (subreddits, channels,
// users or urls depending on the provider) or as categories mapping a
// category name to a list of sub-sources. Exactly one form is active.
type SourceConfig struct {
	Enabled      bool                `yaml:"enabled"`
	ClientID     string              `yaml:"client_id"`
	ClientSecret string              `yaml:"client_secret"`
	UserAgent    string              `yaml:"user_agent"`
	APIKey       string              `yaml:"api_key"`
	Subreddits   []string            `yaml:"subreddits"`
	Channels     []string            `yaml:"channels"`
	Users        []string            `yaml:"users"`
	URLs         []string            `yaml:"urls"`
	Categories   map[string][]string `yaml:"categories"`
	MinScore     map[string]int      `yaml:"min_score"`
}

// Simple returns the flat sub-source list, whichever field carries it.
func (s *SourceConfig) Simple() []string {
	for _, list := range [][]string{s.Subreddits, s.Channels, s.Users, s.URLs} {
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

// SMTPConfig holds the outbound mail channel settings.
type SMTPConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// DatabaseConfig points at the watermark store file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures daemon mode.
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// Config is the full configuration tree for one run.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Reddit   SourceConfig   `yaml:"reddit"`
	YouTube  SourceConfig   `yaml:"youtube"`
	Bluesky  SourceConfig   `yaml:"bluesky"`
	Feeds    SourceConfig   `yaml:"feeds"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

// Load reads the YAML config file, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = defaultCron
	}
}

// applyEnvOverrides applies MEDIA_MONITOR_<SOURCE>_<FIELD> variables
// on top of the file-based configuration. Boolean, integer and
// list-valued fields are coerced from their string form.
func (c *Config) applyEnvOverrides() {
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}

		section, field, ok := strings.Cut(strings.TrimPrefix(key, EnvPrefix), "_")
		if !ok {
			continue
		}
		section = strings.ToLower(section)
		field = strings.ToLower(field)

		if c.applyOverride(section, field, value) {
			logrus.Infof("Applied environment override: %s.%s", section, field)
		}
	}
}

func (c *Config) applyOverride(section, field, value string) bool {
	switch section {
	case "reddit":
		return applySourceOverride(&c.Reddit, field, value)
	case "youtube":
		return applySourceOverride(&c.YouTube, field, value)
	case "bluesky":
		return applySourceOverride(&c.Bluesky, field, value)
	case "feeds":
		return applySourceOverride(&c.Feeds, field, value)
	case "smtp":
		return c.applySMTPOverride(field, value)
	case "database":
		if field == "path" {
			c.Database.Path = value
			return true
		}
	case "schedule":
		if field == "cron" {
			c.Schedule.Cron = value
			return true
		}
	}
	return false
}

func applySourceOverride(src *SourceConfig, field, value string) bool {
	switch field {
	case "enabled":
		src.Enabled = parseBool(value)
	case "client_id":
		src.ClientID = value
	case "client_secret":
		src.ClientSecret = value
	case "user_agent":
		src.UserAgent = value
	case "api_key":
		src.APIKey = value
	case "subreddits":
		src.Subreddits = splitList(value)
	case "channels":
		src.Channels = splitList(value)
	case "users":
		src.Users = splitList(value)
	case "urls":
		src.URLs = splitList(value)
	default:
		return false
	}
	return true
}

func (c *Config) applySMTPOverride(field, value string) bool {
	switch field {
	case "enabled":
		c.SMTP.Enabled = parseBool(value)
	case "server":
		c.SMTP.Server = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			logrus.Warnf("Invalid port value in %sSMTP_PORT: %s", EnvPrefix, value)
			return false
		}
		c.SMTP.Port = port
	case "username":
		c.SMTP.Username = value
	case "password":
		c.SMTP.Password = value
	case "from":
		c.SMTP.From = value
	case "to":
		c.SMTP.To = splitList(value)
	default:
		return false
	}
	return true
}

func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate checks that every enabled section carries its required
// fields and exactly one sub-source form.
func (c *Config) Validate() error {
	if c.Reddit.Enabled {
		if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" || c.Reddit.UserAgent == "" {
			return fmt.Errorf("reddit configuration requires client_id, client_secret and user_agent")
		}
		if err := validateSubsourceForm("reddit", "subreddits", c.Reddit.Subreddits, c.Reddit.Categories); err != nil {
			return err
		}
	}

	if c.YouTube.Enabled {
		if c.YouTube.APIKey == "" {
			return fmt.Errorf("youtube configuration missing required field: api_key")
		}
		if err := validateSubsourceForm("youtube", "channels", c.YouTube.Channels, c.YouTube.Categories); err != nil {
			return err
		}
	}

	if c.Bluesky.Enabled {
		if err := validateSubsourceForm("bluesky", "users", c.Bluesky.Users, c.Bluesky.Categories); err != nil {
			return err
		}
	}

	if c.Feeds.Enabled {
		if err := validateSubsourceForm("feeds", "urls", c.Feeds.URLs, c.Feeds.Categories); err != nil {
			return err
		}
	}

	if c.SMTP.Enabled {
		if c.SMTP.Server == "" || c.SMTP.Username == "" || c.SMTP.Password == "" || c.SMTP.From == "" {
			return fmt.Errorf("smtp configuration requires server, username, password and from")
		}
		if len(c.SMTP.To) == 0 {
			return fmt.Errorf("smtp 'to' field must list at least one recipient")
		}
		if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
			return fmt.Errorf("smtp port must be a valid port number, got %d", c.SMTP.Port)
		}
	}

	return nil
}

func validateSubsourceForm(source, listField string, simple []string, categories map[string][]string) error {
	if len(simple) == 0 && len(categories) == 0 {
		return fmt.Errorf("%s configuration must specify either '%s' or 'categories'", source, listField)
	}
	if len(simple) > 0 && len(categories) > 0 {
		return fmt.Errorf("%s configuration must specify '%s' or 'categories', not both", source, listField)
	}
	return nil
}
