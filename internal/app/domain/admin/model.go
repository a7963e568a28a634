package admin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sarkhq/console/pkg/isotime"
)

// Role is an administrator's role.
type Role string

const (
	RoleSysAdmin Role = "SysAdmin"
	RoleManager  Role = "Manager"
	RoleSupport  Role = "Support"
)

// Status is an administrator's account state.
type Status string

const (
	StatusActive    Status = "Active"
	StatusInactive  Status = "Inactive"
	StatusSuspended Status = "Suspended"
)

// Permission is a capability flag shown on an administrator's profile.
// Permissions are displayed, never enforced.
type Permission string

const (
	PermAppsView       Permission = "apps.view"
	PermAppsManage     Permission = "apps.manage"
	PermAppsDeploy     Permission = "apps.deploy"
	PermFinanceView    Permission = "finance.view"
	PermFinanceManage  Permission = "finance.manage"
	PermAdminsManage   Permission = "admins.manage"
	PermMessagesSend   Permission = "messages.send"
	PermSettingsManage Permission = "settings.manage"
	PermAPIKeysManage  Permission = "apikeys.manage"
	PermDomainsManage  Permission = "domains.manage"
	PermBillingView    Permission = "billing.view"
	PermAuditLogsView  Permission = "auditlogs.view"
)

var knownPermissions = map[Permission]struct{}{
	PermAppsView: {}, PermAppsManage: {}, PermAppsDeploy: {},
	PermFinanceView: {}, PermFinanceManage: {},
	PermAdminsManage: {}, PermMessagesSend: {}, PermSettingsManage: {},
	PermAPIKeysManage: {}, PermDomainsManage: {},
	PermBillingView: {}, PermAuditLogsView: {},
}

// ActivityLog is one entry of an administrator's activity history.
type ActivityLog struct {
	ID        string       `json:"id"`
	Action    string       `json:"action"`
	Detail    string       `json:"detail,omitempty"`
	Timestamp isotime.Time `json:"timestamp"`
}

// StorageUsage is quota usage in gigabytes. Used may exceed Total.
type StorageUsage struct {
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

// Administrator is a console operator.
type Administrator struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	AvatarURL        string        `json:"avatarUrl,omitempty"`
	Role             Role          `json:"role"`
	Status           Status        `json:"status"`
	LastLogin        *isotime.Time `json:"lastLogin"`
	TwoFactorEnabled bool          `json:"twoFactorEnabled"`
	Permissions      []Permission  `json:"permissions"`
	ActivityLogs     []ActivityLog `json:"activityLogs"`
	StorageUsage     StorageUsage  `json:"storageUsage"`
}

// Input carries the fields accepted when creating an administrator.
type Input struct {
	Name      string
	Email     string
	Role      Role
	AvatarURL string
}

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimSpace(s)) {
	case RoleSysAdmin:
		return RoleSysAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleSupport:
		return RoleSupport, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// DefaultStorageQuota returns the quota granted to a new administrator.
func DefaultStorageQuota(role Role) float64 {
	if role == RoleSysAdmin {
		return 25
	}
	return 10
}

// NormalizePermissions de-duplicates and sorts perms. Unknown permissions
// are rejected.
func NormalizePermissions(perms []Permission) ([]Permission, error) {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		p = Permission(strings.ToLower(strings.TrimSpace(string(p))))
		if _, ok := knownPermissions[p]; !ok {
			return nil, fmt.Errorf("unknown permission %q", p)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Has reports whether the administrator holds perm.
func (a Administrator) Has(perm Permission) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
