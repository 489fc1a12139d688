// Package permissions decides whether a principal may perform a capability.
//
// The evaluator is a pure function over the normalized Role produced by the
// session layer. It never errors: absence of information always resolves to
// a denial (fail closed).
package permissions

import (
	"github.com/motrack/adminkit/principal"
)

// Capability names the actions the admin console gates on. The vocabulary is
// open: the evaluator accepts any string, so new capabilities can be granted
// through a role's explicit permission map before this list learns about
// them.
type Capability string

const (
	CanCreate            Capability = "canCreate"
	CanRead              Capability = "canRead"
	CanUpdate            Capability = "canUpdate"
	CanDelete            Capability = "canDelete"
	CanManageAdmins      Capability = "canManageAdmins"
	CanAssignRoles       Capability = "canAssignRoles"
	CanManageUsers       Capability = "canManageUsers"
	CanManageReports     Capability = "canManageReports"
	CanManageTrips       Capability = "canManageTrips"
	CanManageGasStations Capability = "canManageGasStations"
	CanViewAnalytics     Capability = "canViewAnalytics"
	CanExportData        Capability = "canExportData"
	CanManageSettings    Capability = "canManageSettings"

	// Per-resource update capabilities granted to moderators. Kept separate
	// from CanUpdate so a moderator's write access stays scoped to reports
	// and trips.
	CanUpdateReports Capability = "canUpdateReports"
	CanUpdateTrips   Capability = "canUpdateTrips"
)

// adminDenied lists the capabilities a standard admin does not get by
// default. Only an explicit permission grant can open these.
var adminDenied = map[Capability]bool{
	CanManageAdmins:   true,
	CanAssignRoles:    true,
	CanManageSettings: true,
}

// moderatorGranted lists the capabilities a moderator gets by default.
var moderatorGranted = map[Capability]bool{
	CanRead:          true,
	CanUpdateReports: true,
	CanUpdateTrips:   true,
}

// HasPermission reports whether the principal may perform the capability.
// The decision order is fixed and is the contract:
//
//  1. No principal, inactive principal, or no role: deny.
//  2. An explicit entry in the role's permission map wins verbatim, grants
//     and denials alike.
//  3. Otherwise level defaults apply: super_admin/level 100 gets everything;
//     admin/level 50 gets everything except admin, role and settings
//     management; moderator/level 25 gets read plus report/trip updates.
//  4. Everything else is denied.
func HasPermission(p *principal.Principal, capability Capability) bool {
	if p == nil || !p.IsActive || !p.HasRole() {
		return false
	}

	role := p.Role
	if allowed, ok := role.Permissions[string(capability)]; ok {
		return allowed
	}

	switch {
	case role.Name == principal.RoleSuperAdmin || role.Level >= principal.LevelSuperAdmin:
		return true
	case role.Name == principal.RoleAdmin || role.Level >= principal.LevelAdmin:
		return !adminDenied[capability]
	case role.Name == principal.RoleModerator || role.Level >= principal.LevelModerator:
		return moderatorGranted[capability]
	default:
		return false
	}
}

// Checker binds a principal source to the evaluator so call sites can ask
// about the current session without threading the principal everywhere.
type Checker struct {
	current func() *principal.Principal
}

// NewChecker builds a Checker over a principal source, typically
// session.Manager.Principal.
func NewChecker(current func() *principal.Principal) *Checker {
	return &Checker{current: current}
}

// Has reports whether the current principal may perform the capability.
func (c *Checker) Has(capability Capability) bool {
	if c == nil || c.current == nil {
		return false
	}
	return HasPermission(c.current(), capability)
}

// Convenience predicates over the current principal. No logic beyond
// delegating to Has.

func (c *Checker) CanCreate() bool            { return c.Has(CanCreate) }
func (c *Checker) CanRead() bool              { return c.Has(CanRead) }
func (c *Checker) CanUpdate() bool            { return c.Has(CanUpdate) }
func (c *Checker) CanDelete() bool            { return c.Has(CanDelete) }
func (c *Checker) CanManageAdmins() bool      { return c.Has(CanManageAdmins) }
func (c *Checker) CanAssignRoles() bool       { return c.Has(CanAssignRoles) }
func (c *Checker) CanManageUsers() bool       { return c.Has(CanManageUsers) }
func (c *Checker) CanManageReports() bool     { return c.Has(CanManageReports) }
func (c *Checker) CanManageTrips() bool       { return c.Has(CanManageTrips) }
func (c *Checker) CanManageGasStations() bool { return c.Has(CanManageGasStations) }
func (c *Checker) CanViewAnalytics() bool     { return c.Has(CanViewAnalytics) }
func (c *Checker) CanExportData() bool        { return c.Has(CanExportData) }
func (c *Checker) CanManageSettings() bool    { return c.Has(CanManageSettings) }
