package config

import (
	"fmt"
	"os"
	"strings"
)

// Secrets holds the credentials the bot needs. They are opaque strings.
type Secrets struct {
	// SourceToken authenticates against the status API.
	SourceToken string

	// MessengerToken authenticates against the chat API.
	MessengerToken string

	// ChatID is the destination chat or channel.
	ChatID string
}

// ConfigError reports required environment variables that are unset or empty.
type ConfigError struct {
	// Missing lists the variable names in declaration order.
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}

// LoadSecrets reads the secrets named by c from the process environment.
func LoadSecrets(c SecretsConfig) (Secrets, error) {
	return LoadSecretsFrom(c, os.LookupEnv)
}

// LoadSecretsFrom reads the secrets named by c through lookup.
//
// A variable that is unset or set to the empty string counts as missing.
// All missing names are reported together in a [*ConfigError].
func LoadSecretsFrom(c SecretsConfig, lookup func(string) (string, bool)) (Secrets, error) {
	var missing []string
	get := func(name string) string {
		value, ok := lookup(name)
		if !ok || value == "" {
			missing = append(missing, name)
		}
		return value
	}

	s := Secrets{
		SourceToken:    get(c.SourceTokenEnv),
		MessengerToken: get(c.MessengerTokenEnv),
		ChatID:         get(c.ChatIDEnv),
	}
	if len(missing) > 0 {
		return Secrets{}, &ConfigError{Missing: missing}
	}
	return s, nil
}
