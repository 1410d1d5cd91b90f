package ports

import "context"

// GroupStore is the port interface for user/group persistence.
// Implementations provide their own concurrency control; two simultaneous
// first-logins for the same identity must not corrupt membership state.
type GroupStore interface {
	// ListUserGroups returns the names of all groups the user belongs to.
	// An unknown user has no groups.
	ListUserGroups(ctx context.Context, username string) ([]string, error)

	// EnsureGroup creates the named group if it does not exist.
	EnsureGroup(ctx context.Context, name string) error

	// AddUserToGroup makes the user a member of the named group.
	// Adding an existing membership is a no-op.
	AddUserToGroup(ctx context.Context, username, group string) error

	// RemoveUserFromGroup removes the user from the named group.
	// Removing a nonexistent membership is a no-op.
	RemoveUserFromGroup(ctx context.Context, username, group string) error
}
