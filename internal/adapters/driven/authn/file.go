package authn

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// FileUserBackend authenticates against a local JSON or YAML user directory.
// Unlisted usernames are rejected unless create_unknown is set, in which case
// any asserted identity yields a principal built from the parsed attributes.
type FileUserBackend struct {
	path   string
	logger *zap.Logger

	mu            sync.RWMutex
	createUnknown bool
	users         map[string]UserEntry
}

// UsersFile represents the structure of the user directory file.
type UsersFile struct {
	// CreateUnknown allows logins for usernames not listed in Users.
	// The principal is then built from the asserted attributes alone.
	CreateUnknown bool `json:"create_unknown" yaml:"create_unknown"`

	Users []UserEntry `json:"users" yaml:"users"`
}

// UserEntry is one user in the directory.
type UserEntry struct {
	Username    string `json:"username" yaml:"username"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
}

// NewFileUserBackend creates a new file-based user backend.
func NewFileUserBackend(path string, logger *zap.Logger) *FileUserBackend {
	return &FileUserBackend{
		path:   path,
		logger: logger,
		users:  make(map[string]UserEntry),
	}
}

// Authenticate looks the username up in the directory. Unknown usernames
// return (nil, nil) unless create_unknown is enabled. Directory fields win
// over asserted attributes; missing fields fall back to the "mail" and
// "displayName" attributes.
func (b *FileUserBackend) Authenticate(ctx context.Context, username string, attrs map[string]string) (*domain.User, error) {
	if username == "" {
		return nil, nil
	}

	b.mu.RLock()
	entry, listed := b.users[username]
	createUnknown := b.createUnknown
	b.mu.RUnlock()

	if !listed && !createUnknown {
		return nil, nil
	}

	user := &domain.User{
		Username:    username,
		Email:       entry.Email,
		DisplayName: entry.DisplayName,
	}
	if user.Email == "" {
		user.Email = attrs["mail"]
	}
	if user.DisplayName == "" {
		user.DisplayName = attrs["displayName"]
	}
	return user, nil
}

// Refresh reloads the user directory from the file.
func (b *FileUserBackend) Refresh(ctx context.Context) error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("read users file: %w", err)
	}

	var file UsersFile
	ext := strings.ToLower(filepath.Ext(b.path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse YAML users file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse JSON users file: %w", err)
		}
	}

	users := make(map[string]UserEntry, len(file.Users))
	for _, entry := range file.Users {
		if entry.Username == "" {
			return fmt.Errorf("users file %s: entry without username", b.path)
		}
		users[entry.Username] = entry
	}

	b.mu.Lock()
	b.users = users
	b.createUnknown = file.CreateUnknown
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Info("user directory loaded",
			zap.String("file", b.path),
			zap.Int("user_count", len(users)),
			zap.Bool("create_unknown", file.CreateUnknown))
	}
	return nil
}

// Ensure FileUserBackend implements ports.UserBackend
var _ ports.UserBackend = (*FileUserBackend)(nil)
