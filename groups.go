package shibremoteuser

import (
	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/groupsync"
)

// Re-export group parsing and reconciliation from the core.
type GroupSplitter = domain.GroupSplitter

var (
	CompileGroupDelimiters = domain.CompileGroupDelimiters
	ParseGroups            = domain.ParseGroups
	DiffGroups             = domain.DiffGroups
	SyncGroups             = groupsync.Sync
)
