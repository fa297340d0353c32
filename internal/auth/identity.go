package auth

import "strings"

// Identity is an authenticated user's resolved record. It is created by
// the credential verifier, immutable for the session's lifetime and
// destroyed on logout.
type Identity struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"rol"`
	FacilityID *int64 `json:"sede_id,omitempty"`
}

// IsAdmin reports whether the raw stored role label is "admin". This is
// the super-user override input: it deliberately reads the label on the
// credential row, not the resolved role list.
func (id Identity) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(id.Role), RoleAdmin)
}

// PermissionSet is the effective set of permission names for one
// identity. It is built once per login (or lazily on first check) and
// only ever replaced as a whole.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from permission names, dropping blanks.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Has reports membership.
func (p PermissionSet) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// RoleList is the set of role names assigned to an identity,
// normalized to lower case with duplicates removed.
type RoleList []string

// NewRoleList normalizes raw role names into a RoleList.
func NewRoleList(names ...string) RoleList {
	seen := make(map[string]struct{}, len(names))
	var out RoleList
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Contains reports membership, case-insensitively.
func (r RoleList) Contains(name string) bool {
	name = strings.TrimSpace(strings.ToLower(name))
	for _, role := range r {
		if role == name {
			return true
		}
	}
	return false
}
