package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Thcamm/personal-diary/internal/model"
)

// Session is the signed-in state kept between diaryctl invocations.
type Session struct {
	Server   string    `yaml:"server"`
	Token    string    `yaml:"token"`
	UserID   string    `yaml:"user_id"`
	Username string    `yaml:"username"`
	LoggedIn time.Time `yaml:"logged_in"`
}

// DefaultSessionPath is diaryctl/session.yaml under the user config dir.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "diaryctl", "session.yaml"), nil
}

// LoadSession reads the session at path. A missing file is an empty
// session, not an error.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Session{}, nil
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing session file %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the session, readable by the owner only.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// RemoveSession deletes the session file. A missing file is fine.
func RemoveSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Requester is the principal for local permission checks, or nil when
// signed out.
func (s *Session) Requester() *model.Requester {
	if !s.Authenticated() {
		return nil
	}
	return &model.Requester{ID: s.UserID, Username: s.Username}
}
