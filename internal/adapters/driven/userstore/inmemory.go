package userstore

import (
	"context"
	"sort"
	"sync"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// InMemoryGroupStore is an in-memory implementation of GroupStore.
// Suitable for testing and development.
type InMemoryGroupStore struct {
	mu          sync.Mutex
	groups      map[string]bool
	memberships map[string]map[string]bool // username -> group set
}

// NewInMemoryGroupStore creates a new in-memory group store.
func NewInMemoryGroupStore() *InMemoryGroupStore {
	return &InMemoryGroupStore{
		groups:      make(map[string]bool),
		memberships: make(map[string]map[string]bool),
	}
}

// ListUserGroups returns the user's group names, sorted for determinism.
func (s *InMemoryGroupStore) ListUserGroups(ctx context.Context, username string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name := range s.memberships[username] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// EnsureGroup creates the group if missing.
func (s *InMemoryGroupStore) EnsureGroup(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[name] = true
	return nil
}

// AddUserToGroup adds a membership; the group is created implicitly.
func (s *InMemoryGroupStore) AddUserToGroup(ctx context.Context, username, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[group] = true
	if s.memberships[username] == nil {
		s.memberships[username] = make(map[string]bool)
	}
	s.memberships[username][group] = true
	return nil
}

// RemoveUserFromGroup removes a membership; unknown memberships are a no-op.
func (s *InMemoryGroupStore) RemoveUserFromGroup(ctx context.Context, username, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships[username], group)
	return nil
}

// HasGroup reports whether a group exists. Test helper.
func (s *InMemoryGroupStore) HasGroup(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[name]
}

// Ensure InMemoryGroupStore implements ports.GroupStore
var _ ports.GroupStore = (*InMemoryGroupStore)(nil)
