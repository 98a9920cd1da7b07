// Package auth stores and finds the API keys of the translation services.
package auth

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const keyringService = "dualpage"

// ErrUnknownService is returned for a service without a key slot.
var ErrUnknownService = errors.New("unknown translation service")

type slot struct {
	account string
	// envVars are tried in order. The DUALPAGE_ form wins over the
	// provider's conventional name.
	envVars []string
}

var slots = map[string]slot{
	"gemini": {account: "gemini-api-key", envVars: []string{"DUALPAGE_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}},
	"openai": {account: "openai-api-key", envVars: []string{"DUALPAGE_OPENAI_API_KEY", "OPENAI_API_KEY"}},
}

var (
	keyringGet    = keyring.Get
	keyringSet    = keyring.Set
	keyringDelete = keyring.Delete
)

func lookup(service string) (slot, error) {
	s, ok := slots[strings.ToLower(strings.TrimSpace(service))]
	if !ok {
		return slot{}, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	return s, nil
}

// Services lists the services that have a key slot.
func Services() []string {
	out := make([]string, 0, len(slots))
	for name := range slots {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// EnvVars returns the environment variables checked for a service.
func EnvVars(service string) []string {
	s, err := lookup(service)
	if err != nil {
		return nil
	}
	return append([]string(nil), s.envVars...)
}

// GetKey returns the key for a service and where it came from. The keychain
// is tried first; the environment only when allowEnv is set.
func GetKey(service string, allowEnv bool) (string, string) {
	s, err := lookup(service)
	if err != nil {
		return "", ""
	}
	if key, err := keyringGet(keyringService, s.account); err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), "Keychain"
	}
	if allowEnv {
		if key, ok := GetEnvKey(service); ok {
			return key, "Environment Variable"
		}
	}
	return "", ""
}

// SaveKey stores the key in the OS keychain.
func SaveKey(service, key string) error {
	s, err := lookup(service)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key is empty")
	}
	return keyringSet(keyringService, s.account, key)
}

// DeleteKey removes the key from the OS keychain.
func DeleteKey(service string) error {
	s, err := lookup(service)
	if err != nil {
		return err
	}
	return keyringDelete(keyringService, s.account)
}

// GetStatus reports whether the keychain holds a key for the service.
func GetStatus(service string) bool {
	s, err := lookup(service)
	if err != nil {
		return false
	}
	key, err := keyringGet(keyringService, s.account)
	return err == nil && strings.TrimSpace(key) != ""
}

// GetEnvKey returns the first non-empty key from the service's environment variables.
func GetEnvKey(service string) (string, bool) {
	s, err := lookup(service)
	if err != nil {
		return "", false
	}
	for _, name := range s.envVars {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key, true
		}
	}
	return "", false
}

// PromptForAPIKey reads a key from the terminal without echo. The prompt goes
// to stderr so stdout stays clean for command output.
func PromptForAPIKey(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
