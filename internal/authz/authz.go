// Package authz holds the single authorization decision used at the HTTP
// boundary. Business logic never looks at roles.
package authz

import (
	"errors"
	"slices"

	"github.com/stemsi/exam-session-engine/internal/model"
)

// ErrDenied is returned when a principal lacks the capability for a resource.
var ErrDenied = errors.New("permission denied")

// Principal is the authenticated caller as seen by authorization.
type Principal struct {
	UserID      int
	Role        model.Role
	Permissions []string
}

// NewPrincipal builds a principal whose permissions are derived from its role.
func NewPrincipal(userID int, role model.Role) Principal {
	return Principal{UserID: userID, Role: role, Permissions: model.PermissionsFor(role)}
}

// Has reports whether the principal holds perm.
func (p Principal) Has(perm model.Permission) bool {
	return slices.Contains(p.Permissions, string(perm))
}

// HasAny reports whether the principal holds at least one of perms.
func (p Principal) HasAny(perms ...model.Permission) bool {
	for _, perm := range perms {
		if p.Has(perm) {
			return true
		}
	}
	return false
}

// Capability pairs the permission granting access to every resource with the
// one granting access to resources the principal owns. Either may be empty.
type Capability struct {
	All model.Permission
	Own model.Permission
}

var (
	ManageExam = Capability{All: model.PermissionExamsWriteAll, Own: model.PermissionExamsWriteOwn}
	ReadExam   = Capability{All: model.PermissionExamsRead, Own: model.PermissionExamsWriteOwn}
	ReadResult = Capability{All: model.PermissionResultsReadAll, Own: model.PermissionResultsReadOwn}
	Approve    = Capability{All: model.PermissionResultsApproveAll, Own: model.PermissionResultsApproveOwn}
	TakeExam   = Capability{All: model.PermissionExamsTake}
)

// Check allows when p holds c.All, or holds c.Own and owns the resource.
func Check(p Principal, c Capability, ownerID int) error {
	if c.All != "" && p.Has(c.All) {
		return nil
	}
	if c.Own != "" && p.Has(c.Own) && ownerID == p.UserID {
		return nil
	}
	return ErrDenied
}

// Scope returns the owner filter for list queries: 0 when p may see every
// resource under c, otherwise p's own id. ok is false when p may see none.
func Scope(p Principal, c Capability) (ownerID int, ok bool) {
	if c.All != "" && p.Has(c.All) {
		return 0, true
	}
	if c.Own != "" && p.Has(c.Own) {
		return p.UserID, true
	}
	return 0, false
}
