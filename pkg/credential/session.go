package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// SessionStore keeps the credential in a file readable only by the current
// user, so separate CLI invocations in one login session share it. The file
// lives under the runtime directory and disappears with it.
type SessionStore struct {
	dir    string
	logger *zap.Logger

	mu sync.Mutex
}

// DefaultSessionDir returns $XDG_RUNTIME_DIR/guardian, falling back to a
// per-user directory under the system temp dir.
func DefaultSessionDir() string {
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		return filepath.Join(runtime, "guardian")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("guardian-%d", os.Getuid()))
}

// NewSessionStore creates a store rooted at dir. An empty dir uses
// DefaultSessionDir.
func NewSessionStore(dir string, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = DefaultSessionDir()
	}
	return &SessionStore{dir: dir, logger: logger}
}

// Path returns the file the credential is written to.
func (s *SessionStore) Path() string {
	return filepath.Join(s.dir, Key)
}

func (s *SessionStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to read stored credential", zap.String("path", s.Path()), zap.Error(err))
		}
		return "", false
	}

	value := string(data)
	return value, value != ""
}

func (s *SessionStore) Set(value string) error {
	if value == "" {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	// write then rename so a concurrent reader never sees a partial value
	tmp, err := os.CreateTemp(s.dir, Key+".*")
	if err != nil {
		return fmt.Errorf("failed to create credential file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict credential file: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	s.logger.Debug("Credential stored", zap.String("path", s.Path()))
	return nil
}

func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential: %w", err)
	}
	return nil
}
