package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultInterval   = 30 * time.Minute
	DefaultRetryLimit = 10
	DefaultTag        = "default"
	DefaultUserAgent  = "feedwatch"
)

// Output types
const (
	TypeDiscordWebhook = "discord_webhook"
	TypeDiscordBot     = "discord_bot"
	TypeCustom         = "custom"
	TypeSlack          = "slack"
	TypeBluesky        = "bluesky"
)

// Duration is a time.Duration read from strings such as "15m" or "1h30m"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// HTTP holds settings for the client shared by fetchers and outputs
type HTTP struct {
	// Zero means no timeout
	Timeout   Duration `toml:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent string   `toml:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// Input is a single watched feed
type Input struct {
	URL        string    `toml:"url" yaml:"url"`
	Interval   *Duration `toml:"interval,omitempty" yaml:"interval,omitempty"`
	RetryLimit *int      `toml:"retry_limit,omitempty" yaml:"retry_limit,omitempty"`
	Tags       []string  `toml:"tags,omitempty" yaml:"tags,omitempty"`
}

// PollInterval returns the configured interval or the default
func (i Input) PollInterval() time.Duration {
	if i.Interval == nil || i.Interval.Duration == 0 {
		return DefaultInterval
	}
	return i.Interval.Duration
}

// Retries returns the configured retry limit or the default
func (i Input) Retries() int {
	if i.RetryLimit == nil {
		return DefaultRetryLimit
	}
	return *i.RetryLimit
}

// TagList returns the configured tags or the default tag
func (i Input) TagList() []string {
	if i.Tags == nil {
		return []string{DefaultTag}
	}
	return i.Tags
}

// Output describes one notification sink. Type selects which of the
// remaining fields apply.
type Output struct {
	Type string `toml:"type" yaml:"type"`

	// discord_webhook, slack
	URL string `toml:"url,omitempty" yaml:"url,omitempty"`

	// discord_bot
	Token  string `toml:"token,omitempty" yaml:"token,omitempty"`
	UserID uint64 `toml:"user_id,omitempty" yaml:"user_id,omitempty"`
	APIURL string `toml:"api_url,omitempty" yaml:"api_url,omitempty"`

	// custom
	Command   string   `toml:"command,omitempty" yaml:"command,omitempty"`
	Arguments []string `toml:"arguments,omitempty" yaml:"arguments,omitempty"`
	UseStdin  bool     `toml:"use_stdin,omitempty" yaml:"use_stdin,omitempty"`

	// bluesky
	Identifier string `toml:"identifier,omitempty" yaml:"identifier,omitempty"`
	Password   string `toml:"password,omitempty" yaml:"password,omitempty"`
	Host       string `toml:"host,omitempty" yaml:"host,omitempty"`
}

func (o Output) validate() error {
	switch o.Type {
	case TypeDiscordWebhook, TypeSlack:
		if o.URL == "" {
			return fmt.Errorf("%s output requires url", o.Type)
		}
	case TypeDiscordBot:
		if o.Token == "" || o.UserID == 0 {
			return fmt.Errorf("%s output requires token and user_id", o.Type)
		}
	case TypeCustom:
		if o.Command == "" {
			return fmt.Errorf("%s output requires command", o.Type)
		}
	case TypeBluesky:
		if o.Identifier == "" || o.Password == "" {
			return fmt.Errorf("%s output requires identifier and password", o.Type)
		}
	case "":
		return errors.New("output is missing type")
	default:
		return fmt.Errorf("unknown output type %q", o.Type)
	}
	return nil
}

// Config is the top-level configuration. Outputs are keyed by either a feed
// name or a tag.
type Config struct {
	HTTP    HTTP                `toml:"http,omitempty" yaml:"http,omitempty"`
	Inputs  map[string]Input    `toml:"inputs" yaml:"inputs"`
	Outputs map[string][]Output `toml:"outputs" yaml:"outputs"`
}

// InputNames returns the feed names in a stable order
func (c *Config) InputNames() []string {
	names := make([]string, 0, len(c.Inputs))
	for name := range c.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadConfig reads and validates a TOML config file, or YAML when the path
// ends in .yaml or .yml.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = toml.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks the invariants the watchers rely on
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("inputs: no feeds configured")
	}

	tags := make(map[string]bool)
	for _, input := range c.Inputs {
		for _, tag := range input.TagList() {
			tags[tag] = true
		}
	}

	for _, name := range c.InputNames() {
		input := c.Inputs[name]
		if tags[name] {
			return fmt.Errorf("inputs: names and tags are not unique: %s", name)
		}
		if input.URL == "" {
			return fmt.Errorf("inputs.%s: url is required", name)
		}
		if input.Interval != nil && input.Interval.Duration < 0 {
			return fmt.Errorf("inputs.%s: interval must be positive", name)
		}
		if input.Retries() < 0 {
			return fmt.Errorf("inputs.%s: retry_limit must not be negative", name)
		}
	}

	for key, outputs := range c.Outputs {
		for i, output := range outputs {
			if err := output.validate(); err != nil {
				return fmt.Errorf("outputs.%s[%d]: %w", key, i, err)
			}
		}
	}

	return nil
}

// Save writes the config as TOML
func Save(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
