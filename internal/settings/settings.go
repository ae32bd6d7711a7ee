package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Keys mirror the github/* and gushub/* namespaces of the desktop settings store.
const (
	keyGitHubToken    = "github.token"
	keyGushubLogin    = "gushub.login"
	keyGushubPassword = "gushub.password"
	keyGushubToken    = "gushub.token"
)

var errMissingPath = errors.New("settings: file path is required")

// Store persists credentials for the two remote backends in a local file.
// A single instance is shared by the server; writes flush immediately.
type Store struct {
	mu    sync.Mutex
	viper *viper.Viper
	path  string
}

// Open loads the settings file at path, creating it lazily on first write.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errMissingPath
	}

	settingsViper := viper.New()
	settingsViper.SetConfigFile(path)
	settingsViper.SetConfigType("yaml")

	if err := settingsViper.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("settings: reading %s: %w", path, err)
			}
		}
	}

	return &Store{viper: settingsViper, path: path}, nil
}

// GitHubToken returns the stored personal access token, empty when absent.
func (s *Store) GitHubToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viper.GetString(keyGitHubToken)
}

// SetGitHubToken stores the personal access token.
func (s *Store) SetGitHubToken(token string) error {
	return s.write(keyGitHubToken, token)
}

// GushubCredentials returns the stored login and password.
func (s *Store) GushubCredentials() (login, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viper.GetString(keyGushubLogin), s.viper.GetString(keyGushubPassword)
}

// SetGushubCredentials stores login and password in one flush.
func (s *Store) SetGushubCredentials(login, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viper.Set(keyGushubLogin, login)
	s.viper.Set(keyGushubPassword, password)
	return s.flush()
}

// GushubToken returns the cached session token issued by the LMS.
func (s *Store) GushubToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viper.GetString(keyGushubToken)
}

// SetGushubToken caches the session token issued by the LMS.
func (s *Store) SetGushubToken(token string) error {
	return s.write(keyGushubToken, token)
}

// IsConfigured reports whether every credential needed for authoring is present.
// The derived session token is not required; it is re-issued on login.
func (s *Store) IsConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.viper.GetString(keyGitHubToken)) != "" &&
		strings.TrimSpace(s.viper.GetString(keyGushubLogin)) != "" &&
		strings.TrimSpace(s.viper.GetString(keyGushubPassword)) != ""
}

// Clear removes every stored credential.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{keyGitHubToken, keyGushubLogin, keyGushubPassword, keyGushubToken} {
		s.viper.Set(key, "")
	}
	return s.flush()
}

func (s *Store) write(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viper.Set(key, value)
	return s.flush()
}

func (s *Store) flush() error {
	if err := s.viper.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("settings: writing %s: %w", s.path, err)
	}
	return nil
}
