// Package config loads gdqcal settings from defaults, an optional YAML file,
// the environment and finally command-line overrides.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks a fatal startup problem: a missing name list,
// missing credentials or an unusable setting.
var ErrConfiguration = errors.New("configuration error")

const (
	defaultScheduleBaseURL = "https://gamesdonequick.com/api/schedule/"
	defaultUserAgent       = "GDQ-Calendars/1.0"
	defaultTaggedNames     = "fatales_names.txt"
	defaultSubsetLabel     = "Fatales"
	defaultSubsetSuffix    = "fatales"
	defaultReferenceTZ     = "America/New_York"
	defaultEventIDFile     = "id.txt"
	defaultCredentialsFile = "credentials.json"
	defaultTokenFile       = "token.json"
	defaultHTTPTimeout     = 30 * time.Second
)

// GoogleConfig holds the remote calendar credentials.
type GoogleConfig struct {
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
}

// PublishConfig describes an optional WebDAV collection that receives a copy
// of every written document. Publishing is disabled when URL is empty.
type PublishConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	EventID         int           `yaml:"event_id"`
	EventIDFile     string        `yaml:"event_id_file"`
	ScheduleBaseURL string        `yaml:"schedule_base_url"`
	UserAgent       string        `yaml:"user_agent"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`

	// TaggedNamesFile is a newline-delimited list of runner names that make
	// up the subset calendar.
	TaggedNamesFile string `yaml:"tagged_names_file"`
	SubsetLabel     string `yaml:"subset_label"`
	SubsetSuffix    string `yaml:"subset_suffix"`

	OutputDir string `yaml:"output_dir"`

	// ReferenceTimezone is used for the "last updated" stamp in descriptions.
	ReferenceTimezone string `yaml:"reference_timezone"`

	Google  GoogleConfig  `yaml:"google"`
	Publish PublishConfig `yaml:"publish"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults.
func (c *Config) Normalize() {
	if c.EventIDFile == "" {
		c.EventIDFile = defaultEventIDFile
	}
	if c.ScheduleBaseURL == "" {
		c.ScheduleBaseURL = defaultScheduleBaseURL
	}
	if !strings.HasSuffix(c.ScheduleBaseURL, "/") {
		c.ScheduleBaseURL += "/"
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.TaggedNamesFile == "" {
		c.TaggedNamesFile = defaultTaggedNames
	}
	if c.SubsetLabel == "" {
		c.SubsetLabel = defaultSubsetLabel
	}
	if c.SubsetSuffix == "" {
		c.SubsetSuffix = defaultSubsetSuffix
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.ReferenceTimezone == "" {
		c.ReferenceTimezone = defaultReferenceTZ
	}
	if c.Google.CredentialsFile == "" {
		c.Google.CredentialsFile = defaultCredentialsFile
	}
	if c.Google.TokenFile == "" {
		c.Google.TokenFile = defaultTokenFile
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads configuration from the given YAML path. A missing file yields the
// defaults. Environment variables are applied on top in either case.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: invalid config file %s: %v", ErrConfiguration, path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("GDQ_EVENT_ID"); ok && v != "" {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: GDQ_EVENT_ID %q is not a number", ErrConfiguration, v)
		}
		c.EventID = id
	}
	str("GDQ_SCHEDULE_BASE_URL", &c.ScheduleBaseURL)
	str("GDQ_TAGGED_NAMES_FILE", &c.TaggedNamesFile)
	str("GDQ_OUTPUT_DIR", &c.OutputDir)
	str("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	str("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	str("GOOGLE_CREDENTIALS_FILE", &c.Google.CredentialsFile)
	str("GOOGLE_TOKEN_FILE", &c.Google.TokenFile)
	str("PUBLISH_URL", &c.Publish.URL)
	str("PUBLISH_USERNAME", &c.Publish.Username)
	str("PUBLISH_PASSWORD", &c.Publish.Password)
	str("LOG_LEVEL", &c.LogLevel)
	return nil
}

// ResolveEventID returns the configured event id, falling back to the first
// line of EventIDFile.
func (c *Config) ResolveEventID() (int, error) {
	if c.EventID > 0 {
		return c.EventID, nil
	}

	f, err := os.Open(c.EventIDFile)
	if err != nil {
		return 0, fmt.Errorf("%w: no event id given and %s is unreadable: %v", ErrConfiguration, c.EventIDFile, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, fmt.Errorf("%w: %s is empty", ErrConfiguration, c.EventIDFile)
	}
	id, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s does not contain an event id", ErrConfiguration, c.EventIDFile)
	}
	return id, nil
}

// ScheduleURL returns the schedule API endpoint for an event.
func (c *Config) ScheduleURL(eventID int) string {
	return c.ScheduleBaseURL + strconv.Itoa(eventID)
}

// ReferenceLocation loads ReferenceTimezone.
func (c *Config) ReferenceLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ReferenceTimezone)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid reference timezone '%s': %v", ErrConfiguration, c.ReferenceTimezone, err)
	}
	return loc, nil
}
