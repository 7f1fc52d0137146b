// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/modmail/internal/attachment"
)

// ErrMissing is returned when a required setting is absent.
var ErrMissing = errors.New("missing required setting")

// Config holds all application configuration.
type Config struct {
	Token              string
	ChannelID          uint64
	CommandPrefix      string
	Playing            string
	AnonymousStaff     bool
	PostStartupMessage bool
	AntiSpam           AntiSpamConfig
	Attachments        attachment.Limits
	DataDir            string
	DBPath             string
	Port               string
	DashboardOrigin    string
}

// AntiSpamConfig controls the per-user flood limiter.
type AntiSpamConfig struct {
	Messages int
	Window   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	channelID, err := getEnvUint64("MODMAIL_CHANNEL_ID")
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dataDir := getEnv("MODMAIL_DATA_DIR", ".")
	cfg := &Config{
		Token:              getEnv("MODMAIL_TOKEN", ""),
		ChannelID:          channelID,
		CommandPrefix:      getEnv("MODMAIL_COMMAND_PREFIX", "!"),
		Playing:            getEnv("MODMAIL_PLAYING", "DM to contact staff"),
		AnonymousStaff:     getEnvBool("MODMAIL_ANONYMOUS_STAFF", false),
		PostStartupMessage: getEnvBool("MODMAIL_POST_STARTUP_MESSAGE", true),
		AntiSpam: AntiSpamConfig{
			Messages: getEnvInt("ANTISPAM_MESSAGES", 5),
			Window:   time.Duration(getEnvInt("ANTISPAM_SECONDS", 5)) * time.Second,
		},
		Attachments: attachment.Limits{
			Limit:  getEnvInt64("ATTACHMENT_SIZE_LIMIT", attachment.DefaultLimit),
			Margin: getEnvInt64("ATTACHMENT_SIZE_MARGIN", attachment.DefaultMargin),
			Slack:  getEnvInt64("ATTACHMENT_SIZE_SLACK", attachment.DefaultSlack),
		},
		DataDir:         dataDir,
		DBPath:          getEnv("DB_PATH", filepath.Join(dataDir, "modmail_data.sqlite")),
		Port:            getEnv("PORT", "8080"),
		DashboardOrigin: getEnv("DASHBOARD_ORIGIN", "*"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: MODMAIL_TOKEN", ErrMissing)
	}
	if c.ChannelID == 0 {
		return fmt.Errorf("%w: MODMAIL_CHANNEL_ID", ErrMissing)
	}
	if strings.TrimSpace(c.CommandPrefix) == "" {
		return fmt.Errorf("MODMAIL_COMMAND_PREFIX cannot be empty")
	}
	if c.AntiSpam.Messages <= 0 {
		return fmt.Errorf("ANTISPAM_MESSAGES must be > 0")
	}
	if c.AntiSpam.Window <= 0 {
		return fmt.Errorf("ANTISPAM_SECONDS must be > 0")
	}
	if c.Attachments.Limit <= 0 {
		return fmt.Errorf("ATTACHMENT_SIZE_LIMIT must be > 0")
	}
	if c.Attachments.Margin < 0 || c.Attachments.Margin >= c.Attachments.Limit {
		return fmt.Errorf("ATTACHMENT_SIZE_MARGIN must be between 0 and ATTACHMENT_SIZE_LIMIT")
	}
	if c.Attachments.Slack < 0 || c.Attachments.Slack >= c.Attachments.Limit {
		return fmt.Errorf("ATTACHMENT_SIZE_SLACK must be between 0 and ATTACHMENT_SIZE_LIMIT")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	return nil
}

// AllowedOrigins returns the dashboard origins for CORS.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.DashboardOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvInt64 accepts decimal and 0x-prefixed hex values.
func getEnvInt64(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 0, 64)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvUint64 parses a platform id. An unset or empty value yields 0.
func getEnvUint64(key string) (uint64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a valid id", key, value)
	}
	return n, nil
}
