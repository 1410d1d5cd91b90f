package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// BunGroupStore persists users, groups, and memberships in a SQL database
// via the bun ORM. Uniqueness constraints plus conflict-tolerant inserts
// make concurrent first-logins for the same identity safe without
// application-level locking.
type BunGroupStore struct {
	db *bun.DB
}

type userRow struct {
	bun.BaseModel `bun:"table:shib_users,alias:u"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Username string `bun:"username,unique,notnull"`
}

type groupRow struct {
	bun.BaseModel `bun:"table:shib_groups,alias:g"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,unique,notnull"`
}

type membershipRow struct {
	bun.BaseModel `bun:"table:shib_user_groups,alias:ug"`

	UserID  int64 `bun:"user_id,pk"`
	GroupID int64 `bun:"group_id,pk"`
}

// OpenSQLite opens a SQLite-backed group store. The modernc driver is pure
// Go, so ":memory:" and file DSNs both work without cgo.
func OpenSQLite(dsn string) (*BunGroupStore, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	return NewBunGroupStore(bun.NewDB(sqldb, sqlitedialect.New())), nil
}

// OpenPostgres opens a PostgreSQL-backed group store.
func OpenPostgres(dsn string) (*BunGroupStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return NewBunGroupStore(bun.NewDB(sqldb, pgdialect.New())), nil
}

// NewBunGroupStore wraps an existing bun.DB.
func NewBunGroupStore(db *bun.DB) *BunGroupStore {
	return &BunGroupStore{db: db}
}

// Init creates the schema if it does not exist.
func (s *BunGroupStore) Init(ctx context.Context) error {
	models := []any{
		(*userRow)(nil),
		(*groupRow)(nil),
		(*membershipRow)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *BunGroupStore) Close() error {
	return s.db.Close()
}

// ListUserGroups returns the names of all groups the user belongs to.
func (s *BunGroupStore) ListUserGroups(ctx context.Context, username string) ([]string, error) {
	var names []string
	err := s.db.NewSelect().
		Model((*groupRow)(nil)).
		Column("g.name").
		Join("JOIN shib_user_groups AS ug ON ug.group_id = g.id").
		Join("JOIN shib_users AS u ON u.id = ug.user_id").
		Where("u.username = ?", username).
		OrderExpr("g.name").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("list groups for %s: %w", username, err)
	}
	return names, nil
}

// EnsureGroup creates the named group if it does not exist.
func (s *BunGroupStore) EnsureGroup(ctx context.Context, name string) error {
	_, err := s.db.NewInsert().
		Model(&groupRow{Name: name}).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ensure group %s: %w", name, err)
	}
	return nil
}

// AddUserToGroup makes the user a member of the group, creating the user row
// and the group on first sight. Adding an existing membership is a no-op.
func (s *BunGroupStore) AddUserToGroup(ctx context.Context, username, group string) error {
	if _, err := s.db.NewInsert().
		Model(&userRow{Username: username}).
		On("CONFLICT (username) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("ensure user %s: %w", username, err)
	}
	if err := s.EnsureGroup(ctx, group); err != nil {
		return err
	}

	userID, ok, err := s.userID(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s missing after insert", username)
	}
	groupID, ok, err := s.groupID(ctx, group)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("group %s missing after insert", group)
	}

	_, err = s.db.NewInsert().
		Model(&membershipRow{UserID: userID, GroupID: groupID}).
		On("CONFLICT (user_id, group_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add %s to group %s: %w", username, group, err)
	}
	return nil
}

// RemoveUserFromGroup removes the membership. Unknown users, groups, or
// memberships are a no-op.
func (s *BunGroupStore) RemoveUserFromGroup(ctx context.Context, username, group string) error {
	userID, ok, err := s.userID(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	groupID, ok, err := s.groupID(ctx, group)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	_, err = s.db.NewDelete().
		Model((*membershipRow)(nil)).
		Where("user_id = ?", userID).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove %s from group %s: %w", username, group, err)
	}
	return nil
}

func (s *BunGroupStore) userID(ctx context.Context, username string) (int64, bool, error) {
	var row userRow
	err := s.db.NewSelect().
		Model(&row).
		Where("username = ?", username).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("look up user %s: %w", username, err)
	}
	return row.ID, true, nil
}

func (s *BunGroupStore) groupID(ctx context.Context, name string) (int64, bool, error) {
	var row groupRow
	err := s.db.NewSelect().
		Model(&row).
		Where("name = ?", name).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("look up group %s: %w", name, err)
	}
	return row.ID, true, nil
}

// Ensure BunGroupStore implements ports.GroupStore
var _ ports.GroupStore = (*BunGroupStore)(nil)
