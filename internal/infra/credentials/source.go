// Package credentials resolves the provider API key on first use.
package credentials

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/caseras1/ai-childbook/internal/domain"
)

// EnvKey is the variable holding the provider API key.
const EnvKey = "LEONARDO_API_KEY"

// Source reads the API key from the process environment or an env file the
// first time it is asked, then keeps the value for its own lifetime. A
// missing key is only an error when somebody actually needs it.
type Source struct {
	// EnvFile is read when the process environment lacks the key. Empty disables it.
	EnvFile string
	// Lookup replaces os.LookupEnv, mainly for tests.
	Lookup func(string) (string, bool)

	mu  sync.Mutex
	key string
}

// NewSource returns a Source backed by the process environment and envFile.
func NewSource(envFile string) *Source {
	return &Source{EnvFile: envFile}
}

// Static returns a Source that always yields key (still validated on use).
func Static(key string) *Source {
	return &Source{Lookup: func(name string) (string, bool) {
		if name == EnvKey {
			return key, true
		}
		return "", false
	}}
}

// APIKey returns the cached key or resolves it. Only a valid key is cached,
// so fixing the environment does not require a restart.
func (s *Source) APIKey() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != "" {
		return s.key, nil
	}

	value, err := s.resolve()
	if err != nil {
		return "", err
	}
	if domain.IsPlaceholder(value) {
		return "", &domain.AuthError{Reason: EnvKey + " is missing or still a placeholder; set it in the environment or " + s.envFileName()}
	}
	s.key = strings.TrimSpace(value)
	return s.key, nil
}

func (s *Source) resolve() (string, error) {
	lookup := s.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvKey); ok && strings.TrimSpace(v) != "" {
		return v, nil
	}
	if s.EnvFile == "" {
		return "", nil
	}
	values, err := godotenv.Read(s.EnvFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", &domain.AuthError{Reason: "read " + s.EnvFile + ": " + err.Error()}
	}
	return values[EnvKey], nil
}

func (s *Source) envFileName() string {
	if s.EnvFile == "" {
		return ".env"
	}
	return s.EnvFile
}
