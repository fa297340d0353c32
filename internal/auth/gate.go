package auth

import "context"

// The gate methods answer authorization questions about a session.
// All of them treat a nil session as unauthenticated, and all of them
// honor the admin override: an identity whose stored role label is
// "admin" (any casing) passes every permission check unconditionally,
// even when permission resolution produced an empty set.

// HasPermission reports whether the session holds the permission. It
// resolves lazily when the session has no permission set yet.
func (m *Manager) HasPermission(ctx context.Context, sess *Session, perm string) bool {
	if !sess.authenticated() {
		return false
	}
	if sess.Identity.IsAdmin() {
		return true
	}
	return m.perms(ctx, sess).Has(perm)
}

// RequireAll returns nil only when the session holds every listed
// permission. The error reports all missing names at once.
func (m *Manager) RequireAll(ctx context.Context, sess *Session, perms ...string) error {
	if !sess.authenticated() {
		return ErrLoginRequired
	}
	if sess.Identity.IsAdmin() {
		return nil
	}
	held := m.perms(ctx, sess)
	var missing []string
	for _, p := range perms {
		if !held.Has(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return DeniedPermissions(missing...)
	}
	return nil
}

// RequireAny returns nil when the session holds at least one of the
// listed permissions.
func (m *Manager) RequireAny(ctx context.Context, sess *Session, perms ...string) error {
	if !sess.authenticated() {
		return ErrLoginRequired
	}
	if sess.Identity.IsAdmin() {
		return nil
	}
	held := m.perms(ctx, sess)
	for _, p := range perms {
		if held.Has(p) {
			return nil
		}
	}
	return DeniedPermissions(perms...)
}

// HasRole reports whether the session's resolved role list contains
// the role, case-insensitively. It resolves lazily when the session
// has no role list yet; when the role table cannot be read the
// resolver substitutes the stored label, so that path still works.
func (m *Manager) HasRole(ctx context.Context, sess *Session, role string) bool {
	if !sess.authenticated() {
		return false
	}
	return m.roles(ctx, sess).Contains(role)
}

// RequireRole returns nil when the session holds at least one of the
// listed roles, ErrLoginRequired when unauthenticated and a
// DeniedError naming all of them otherwise.
func (m *Manager) RequireRole(ctx context.Context, sess *Session, roles ...string) error {
	if !sess.authenticated() {
		return ErrLoginRequired
	}
	for _, r := range roles {
		if m.HasRole(ctx, sess, r) {
			return nil
		}
	}
	return DeniedRole(roles...)
}

// perms returns the session's permission set, resolving and caching it
// on first use.
func (m *Manager) perms(ctx context.Context, sess *Session) PermissionSet {
	sess.mu.RLock()
	held := sess.Perms
	sess.mu.RUnlock()
	if held != nil {
		return held
	}

	resolved, roles := m.resolver.Resolve(ctx, sess.Identity)
	sess.mu.Lock()
	if sess.Perms == nil {
		sess.Perms = resolved
		if sess.Roles == nil {
			sess.Roles = roles
		}
	}
	held = sess.Perms
	sess.mu.Unlock()
	return held
}

// roles returns the session's role list, resolving and caching it on
// first use alongside the permission set.
func (m *Manager) roles(ctx context.Context, sess *Session) RoleList {
	sess.mu.RLock()
	held := sess.Roles
	sess.mu.RUnlock()
	if held != nil {
		return held
	}

	resolved, roleList := m.resolver.Resolve(ctx, sess.Identity)
	sess.mu.Lock()
	if sess.Roles == nil {
		sess.Roles = roleList
		if sess.Perms == nil {
			sess.Perms = resolved
		}
	}
	held = sess.Roles
	sess.mu.Unlock()
	return held
}
