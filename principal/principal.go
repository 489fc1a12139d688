package principal

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Well-known role names. The set is open: unknown names fall back to
// level-based evaluation, so new roles can be introduced server-side
// without a client release.
const (
	RoleSuperAdmin = "super_admin" // Full platform access, including admin management
	RoleAdmin      = "admin"       // Standard admin, cannot manage admins or settings
	RoleModerator  = "moderator"   // Read access plus report/trip updates
	RoleViewer     = "viewer"      // No default capabilities
)

// Role levels corresponding to the well-known names.
const (
	LevelSuperAdmin = 100
	LevelAdmin      = 50
	LevelModerator  = 25
	LevelViewer     = 0
)

// Role describes a capability bundle attached to a principal.
//
// Permissions, when non-nil, carries explicit per-capability overrides. A key
// that is present is authoritative and wins over any level-based default,
// including an explicit false for a capability the level would otherwise
// imply.
type Role struct {
	Name        string          `json:"name"`
	Level       int             `json:"level"`
	DisplayName string          `json:"displayName,omitempty"` // Human label, non-authoritative
	Permissions map[string]bool `json:"permissions,omitempty"`
}

// UnmarshalJSON accepts both role encodings the backend has shipped over
// time: the current object form and the legacy bare-string form. A bare
// string normalizes to {Name: s, Level: 0} so older payloads keep working.
func (r *Role) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*r = Role{Name: strings.TrimSpace(name), Level: LevelViewer}
		return nil
	}

	type roleAlias Role // Avoid recursing into this method
	var decoded roleAlias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = Role(decoded)
	r.Name = strings.TrimSpace(r.Name)
	return nil
}

// Principal is the authenticated admin identity.
type Principal struct {
	ID        string    `json:"id,omitempty"`        // Unique identifier
	Email     string    `json:"email,omitempty"`     // Unique among principals
	FirstName string    `json:"firstName,omitempty"` // Display attribute
	LastName  string    `json:"lastName,omitempty"`  // Display attribute
	Role      *Role     `json:"role,omitempty"`      // Capability bundle, nil when the server sent none
	IsActive  bool      `json:"isActive"`            // Inactive principals are treated as unauthenticated
	LastLogin time.Time `json:"lastLogin,omitempty"` // Server-set, advisory only
}

// FullName returns the display name for UI surfaces.
func (p *Principal) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// HasRole reports whether the principal carries a role at all. A role with
// an empty name still counts: level-based defaults may apply to it.
func (p *Principal) HasRole() bool {
	return p != nil && p.Role != nil
}

// IsSuperAdmin returns true if the principal has full platform privileges.
func (p *Principal) IsSuperAdmin() bool {
	if !p.HasRole() {
		return false
	}
	return p.Role.Name == RoleSuperAdmin || p.Role.Level >= LevelSuperAdmin
}
