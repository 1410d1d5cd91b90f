package shibremoteuser

import (
	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
)

// Re-export the attribute parsing surface from the domain layer, so adopters
// embedding the plugin can reuse the same parsing and transform machinery.
type AttributeRule = domain.AttributeRule
type HeaderGetter = domain.HeaderGetter
type HeaderMap = domain.HeaderMap
type Transform = domain.Transform

const SessionKeyShibAttributes = domain.SessionKeyShibAttributes

var (
	ParseAttributes   = domain.ParseAttributes
	Unquote           = domain.Unquote
	RegisterTransform = domain.RegisterTransform
	LookupTransform   = domain.LookupTransform
	LocalPart         = domain.LocalPart
)
