package auth

import (
	"fmt"
	"strings"
)

// ScopeQuery narrows a SQL query to the session's facility. Sessions
// holding all_sedes (or the admin override) see every facility and get
// the query back untouched. Everyone else gets an appended
// "sede_id = $n" condition bound to their facility; a session with no
// facility assigned matches nothing rather than everything.
//
// The query must not already end in GROUP BY, ORDER BY or LIMIT; the
// store composes those after scoping.
func (m *Manager) ScopeQuery(sess *Session, query string, args []any) (string, []any) {
	if sess.authenticated() {
		if sess.Identity.IsAdmin() || sess.Perms.Has(PermAllSedes) {
			return query, args
		}
	}

	kw := "WHERE"
	if strings.Contains(strings.ToLower(query), " where ") {
		kw = "AND"
	}

	if !sess.authenticated() || sess.Identity.FacilityID == nil {
		return fmt.Sprintf("%s %s false", query, kw), args
	}
	args = append(args, *sess.Identity.FacilityID)
	return fmt.Sprintf("%s %s sede_id = $%d", query, kw, len(args)), args
}
