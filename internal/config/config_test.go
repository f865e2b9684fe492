package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
reddit:
  enabled: true
  client_id: id
  client_secret: secret
  user_agent: media-monitor/1.0
  subreddits:
    - golang
    - python
  min_score:
    golang: 10
youtube:
  enabled: true
  api_key: key
  categories:
    tech:
      - UC_tech_channel
    education:
      - UC_edu_channel
bluesky:
  enabled: false
smtp:
  enabled: true
  server: smtp.example.com
  port: 465
  username: user
  password: pass
  from: monitor@example.com
  to:
    - inbox@example.com
`

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.True(t, cfg.Reddit.Enabled)
	assert.Equal(t, []string{"golang", "python"}, cfg.Reddit.Subreddits)
	assert.Equal(t, 10, cfg.Reddit.MinScore["golang"])
	assert.Equal(t, []string{"UC_tech_channel"}, cfg.YouTube.Categories["tech"])
	assert.False(t, cfg.Bluesky.Enabled)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, []string{"inbox@example.com"}, cfg.SMTP.To)

	// Defaults applied when sections are absent.
	assert.Equal(t, defaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, defaultCron, cfg.Schedule.Cron)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "reddit: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MEDIA_MONITOR_REDDIT_CLIENT_SECRET", "from-env")
	t.Setenv("MEDIA_MONITOR_REDDIT_ENABLED", "true")
	t.Setenv("MEDIA_MONITOR_SMTP_PORT", "2525")
	t.Setenv("MEDIA_MONITOR_SMTP_TO", "a@example.com, b@example.com")
	t.Setenv("MEDIA_MONITOR_DATABASE_PATH", "/tmp/override.db")

	cfg, err := Load(writeConfig(t, `
reddit:
  enabled: false
  client_id: id
  client_secret: file-secret
  user_agent: media-monitor/1.0
  subreddits: [golang]
smtp:
  enabled: true
  server: smtp.example.com
  port: 465
  username: user
  password: pass
  from: monitor@example.com
  to: [inbox@example.com]
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Reddit.ClientSecret)
	assert.True(t, cfg.Reddit.Enabled)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.SMTP.To)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
}

func TestLoad_EnvOverrideInvalidPortIgnored(t *testing.T) {
	t.Setenv("MEDIA_MONITOR_SMTP_PORT", "not-a-number")

	cfg, err := Load(writeConfig(t, `
smtp:
  enabled: true
  server: smtp.example.com
  port: 465
  username: user
  password: pass
  from: monitor@example.com
  to: [inbox@example.com]
`))
	require.NoError(t, err)
	assert.Equal(t, 465, cfg.SMTP.Port)
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseBool(tt.value))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "reddit missing credentials",
			mutate:  func(c *Config) { c.Reddit.ClientSecret = "" },
			wantErr: "client_secret",
		},
		{
			name: "reddit both forms",
			mutate: func(c *Config) {
				c.Reddit.Categories = map[string][]string{"tech": {"golang"}}
			},
			wantErr: "not both",
		},
		{
			name: "reddit no form",
			mutate: func(c *Config) {
				c.Reddit.Subreddits = nil
			},
			wantErr: "either 'subreddits' or 'categories'",
		},
		{
			name:    "youtube missing api key",
			mutate:  func(c *Config) { c.YouTube.APIKey = "" },
			wantErr: "api_key",
		},
		{
			name:    "smtp missing recipients",
			mutate:  func(c *Config) { c.SMTP.To = nil },
			wantErr: "at least one recipient",
		},
		{
			name:    "smtp malformed port",
			mutate:  func(c *Config) { c.SMTP.Port = 0 },
			wantErr: "port",
		},
		{
			name: "disabled sections are not validated",
			mutate: func(c *Config) {
				c.Reddit.Enabled = false
				c.Reddit.ClientID = ""
				c.Reddit.Subreddits = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Reddit: SourceConfig{
					Enabled:      true,
					ClientID:     "id",
					ClientSecret: "secret",
					UserAgent:    "media-monitor/1.0",
					Subreddits:   []string{"golang"},
				},
				YouTube: SourceConfig{
					Enabled:  true,
					APIKey:   "key",
					Channels: []string{"UC_channel"},
				},
				SMTP: SMTPConfig{
					Enabled:  true,
					Server:   "smtp.example.com",
					Port:     465,
					Username: "user",
					Password: "pass",
					From:     "monitor@example.com",
					To:       []string{"inbox@example.com"},
				},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
