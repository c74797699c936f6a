// Package config provides YAML configuration parsing for statusbot.
//
// A configuration file is optional: [Default] returns a working setup and a
// file only overrides the keys it names.
//
// Example configuration:
//
//	retry_period: 600s
//	request_timeout: 30s
//	advance_cursor: true
//	port: 8080
//
//	messenger:
//	  provider: telegram
//
//	log:
//	  file: debug.log
//	  console_level: info
//
//	secrets:
//	  source_token_env: PRACTICUM_TOKEN
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/jpalmerr/statusbot/internal/logging"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// minPeriod is the lower bound for retry_period and request_timeout.
// It prevents accidental hammering of the status API.
const minPeriod = 1 * time.Second

// Default values.
const (
	DefaultEndpoint       = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultRetryPeriod    = 600 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultProvider       = "telegram"

	DefaultSourceTokenEnv    = "PRACTICUM_TOKEN"
	DefaultMessengerTokenEnv = "TELEGRAM_TOKEN"
	DefaultChatIDEnv         = "TELEGRAM_CHAT_ID"
)

// Config is the root configuration structure for statusbot.
//
// It maps directly to the YAML configuration file structure.
// Use [Default], [Load] or [Parse] to create a Config.
type Config struct {
	// Endpoint is the status API URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Endpoint string `yaml:"endpoint"`

	// RetryPeriod is the pause after every cycle. Must be at least 1s.
	RetryPeriod Duration `yaml:"retry_period"`

	// RequestTimeout bounds each request to the status API and the
	// messenger. Must be at least 1s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// AdvanceCursor moves from_date forward to the server's current_date
	// after each successful cycle. Off by default: every cycle queries from
	// the start time.
	AdvanceCursor bool `yaml:"advance_cursor"`

	// Port is the status server port. 0 disables the server.
	Port int `yaml:"port"`

	// Messenger selects the chat transport.
	Messenger MessengerConfig `yaml:"messenger"`

	// Log configures the console and file sinks.
	Log LogConfig `yaml:"log"`

	// Secrets names the environment variables holding credentials.
	Secrets SecretsConfig `yaml:"secrets"`
}

// MessengerConfig selects and tunes the chat transport.
type MessengerConfig struct {
	// Provider is "telegram" or "slack". Defaults to "telegram".
	Provider string `yaml:"provider"`

	// APIURL overrides the provider's API base URL. Optional.
	// Supports environment variable substitution.
	APIURL string `yaml:"api_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	// File is the debug log path, truncated at start. Empty disables it.
	File string `yaml:"file"`

	// FileLevel is the minimum level written to File.
	FileLevel string `yaml:"file_level"`

	// ConsoleLevel is the minimum level written to stdout.
	ConsoleLevel string `yaml:"console_level"`

	// Format is the File encoding: "console" or "json".
	Format string `yaml:"format"`
}

// SecretsConfig names the environment variables the secrets are read from.
type SecretsConfig struct {
	SourceTokenEnv    string `yaml:"source_token_env"`
	MessengerTokenEnv string `yaml:"messenger_token_env"`
	ChatIDEnv         string `yaml:"chat_id_env"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String formats the duration like time.Duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Endpoint:       DefaultEndpoint,
		RetryPeriod:    Duration(DefaultRetryPeriod),
		RequestTimeout: Duration(DefaultRequestTimeout),
		Messenger: MessengerConfig{
			Provider: DefaultProvider,
		},
		Log: LogConfig{
			File:         logging.DefaultFile,
			FileLevel:    logging.DefaultFileLevel,
			ConsoleLevel: logging.DefaultConsoleLevel,
			Format:       logging.FormatConsole,
		},
		Secrets: SecretsConfig{
			SourceTokenEnv:    DefaultSourceTokenEnv,
			MessengerTokenEnv: DefaultMessengerTokenEnv,
			ChatIDEnv:         DefaultChatIDEnv,
		},
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// An empty path returns [Default] without touching the filesystem.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		if err := cfg.expandAndValidate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data on top of [Default].
//
// Keys absent from data keep their default value. Environment variables
// are expanded in endpoint and messenger.api_url.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	expanded, err := expandEnvVars(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	c.Endpoint = expanded
	if err := validateURL(c.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}

	if c.RetryPeriod.Duration() < minPeriod {
		return fmt.Errorf("retry_period must be at least %s, got %s", minPeriod, c.RetryPeriod)
	}
	if c.RequestTimeout.Duration() < minPeriod {
		return fmt.Errorf("request_timeout must be at least %s, got %s", minPeriod, c.RequestTimeout)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}

	switch c.Messenger.Provider {
	case "":
		c.Messenger.Provider = DefaultProvider
	case "telegram", "slack":
	default:
		return fmt.Errorf("messenger.provider must be telegram or slack, got %q", c.Messenger.Provider)
	}
	if c.Messenger.APIURL != "" {
		expanded, err := expandEnvVars(c.Messenger.APIURL)
		if err != nil {
			return fmt.Errorf("messenger.api_url: %w", err)
		}
		c.Messenger.APIURL = expanded
		// the Telegram form carries %s verbs for token and method
		if err := validateURL(strings.ReplaceAll(c.Messenger.APIURL, "%s", "x")); err != nil {
			return fmt.Errorf("messenger.api_url: %w", err)
		}
	}

	for _, field := range []struct{ key, value string }{
		{"log.file_level", c.Log.FileLevel},
		{"log.console_level", c.Log.ConsoleLevel},
	} {
		if field.value == "" {
			continue
		}
		if _, err := zapcore.ParseLevel(field.value); err != nil {
			return fmt.Errorf("%s: unknown level %q", field.key, field.value)
		}
	}
	if c.Log.Format != "" && c.Log.Format != logging.FormatConsole && c.Log.Format != logging.FormatJSON {
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}

	for _, field := range []struct{ key, value string }{
		{"secrets.source_token_env", c.Secrets.SourceTokenEnv},
		{"secrets.messenger_token_env", c.Secrets.MessengerTokenEnv},
		{"secrets.chat_id_env", c.Secrets.ChatIDEnv},
	} {
		if field.value == "" {
			return fmt.Errorf("%s must name an environment variable", field.key)
		}
	}

	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("url must have a scheme (http:// or https://)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("url must have a host")
	}
	return nil
}
