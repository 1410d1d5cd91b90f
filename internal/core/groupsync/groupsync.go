// Package groupsync reconciles a user's persisted group memberships with the
// group list asserted by the upstream identity provider.
package groupsync

import (
	"context"
	"fmt"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// Sync makes the user's group membership exactly equal to desired: a full
// sync, not incremental add-only. Memberships not in desired are removed;
// missing groups are created and joined. Re-running with the same list is a
// no-op. Returns the names actually added and removed.
func Sync(ctx context.Context, store ports.GroupStore, username string, desired []string) (added, removed []string, err error) {
	current, err := store.ListUserGroups(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("list groups for %s: %w", username, err)
	}

	toAdd, toRemove := domain.DiffGroups(current, desired)

	for _, name := range toRemove {
		if err := store.RemoveUserFromGroup(ctx, username, name); err != nil {
			return added, removed, fmt.Errorf("remove %s from group %s: %w", username, name, err)
		}
		removed = append(removed, name)
	}

	for _, name := range toAdd {
		if err := store.EnsureGroup(ctx, name); err != nil {
			return added, removed, fmt.Errorf("ensure group %s: %w", name, err)
		}
		if err := store.AddUserToGroup(ctx, username, name); err != nil {
			return added, removed, fmt.Errorf("add %s to group %s: %w", username, name, err)
		}
		added = append(added, name)
	}

	return added, removed, nil
}
