package auth

import (
	"context"
	"database/sql"

	"gymops.dev/internal/obs"
)

// PermissionSource resolves the effective permission set and role list
// for an identity. Implementations must not fail: when the backing
// store is unreachable they degrade to a static matrix instead.
type PermissionSource interface {
	Resolve(ctx context.Context, id Identity) (PermissionSet, RoleList)
}

// Resolver reads v_user_permissions and the user_role join. Any
// database error on the view flips the whole resolution to the
// FallbackPermissions table keyed by the identity's stored role label.
type Resolver struct {
	db *sql.DB
}

// NewResolver builds a Resolver over the given handle.
func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve returns the identity's permissions and roles. It never
// errors; a failed lookup degrades to the static table and is logged.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (PermissionSet, RoleList) {
	perms, err := r.viewPermissions(ctx, id.ID)
	if err != nil {
		obs.Warn("permission view unavailable, using fallback matrix", map[string]any{"error": err.Error()})
		return r.fallback(id)
	}
	roles := r.roleList(ctx, id)
	return perms, roles
}

func (r *Resolver) viewPermissions(ctx context.Context, userID int64) (PermissionSet, error) {
	const q = `SELECT perm FROM v_user_permissions WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(PermissionSet)
	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return nil, err
		}
		set[perm] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// roleList reads the assigned role names. A failure here is not fatal:
// permission checks already have their answer, so the identity's stored
// label stands in for the list.
func (r *Resolver) roleList(ctx context.Context, id Identity) RoleList {
	const q = `SELECT r.name FROM user_role ur JOIN role r ON r.id = ur.role_id
WHERE ur.user_id = $1 ORDER BY r.name`
	rows, err := r.db.QueryContext(ctx, q, id.ID)
	if err != nil {
		return NewRoleList(id.Role)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return NewRoleList(id.Role)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return NewRoleList(id.Role)
	}
	if len(names) == 0 {
		names = append(names, id.Role)
	}
	return NewRoleList(names...)
}

// fallback grants from the static matrix. Identities whose stored role
// label is admin receive every known permission.
func (r *Resolver) fallback(id Identity) (PermissionSet, RoleList) {
	if id.IsAdmin() {
		all := make(PermissionSet, len(FallbackPermissions))
		for perm := range FallbackPermissions {
			all[perm] = struct{}{}
		}
		return all, NewRoleList(RoleAdmin)
	}
	role := NewRoleList(id.Role)
	if len(role) == 0 {
		return PermissionSet{}, nil
	}
	return fallbackFor(role[0]), role
}
