package auth

import "testing"

func TestScopeQuery(t *testing.T) {
	m, _ := newTestManager(Identity{}, nil, nil)

	scoped := func(role string, fac *int64, perms PermissionSet) *Session {
		return &Session{Identity: Identity{ID: 7, Role: role, FacilityID: fac}, Perms: perms}
	}

	t.Run("all_sedes leaves the query untouched", func(t *testing.T) {
		sess := scoped("gerente", facility(2), NewPermissionSet(PermAllSedes))
		q, args := m.ScopeQuery(sess, "SELECT * FROM pago", []any{})
		if q != "SELECT * FROM pago" || len(args) != 0 {
			t.Fatalf("unexpected scoping: %q %v", q, args)
		}
	})

	t.Run("admin label leaves the query untouched", func(t *testing.T) {
		sess := scoped("Admin", nil, PermissionSet{})
		q, _ := m.ScopeQuery(sess, "SELECT * FROM pago", nil)
		if q != "SELECT * FROM pago" {
			t.Fatalf("unexpected scoping: %q", q)
		}
	})

	t.Run("appends WHERE for unfiltered queries", func(t *testing.T) {
		sess := scoped("recepcion", facility(2), PermissionSet{})
		q, args := m.ScopeQuery(sess, "SELECT * FROM pago", nil)
		if q != "SELECT * FROM pago WHERE sede_id = $1" {
			t.Fatalf("unexpected query %q", q)
		}
		if len(args) != 1 || args[0].(int64) != 2 {
			t.Fatalf("unexpected args %v", args)
		}
	})

	t.Run("appends AND when a WHERE already exists", func(t *testing.T) {
		sess := scoped("recepcion", facility(5), PermissionSet{})
		q, args := m.ScopeQuery(sess, "SELECT * FROM pago WHERE monto > $1", []any{1000})
		if q != "SELECT * FROM pago WHERE monto > $1 AND sede_id = $2" {
			t.Fatalf("unexpected query %q", q)
		}
		if len(args) != 2 || args[1].(int64) != 5 {
			t.Fatalf("unexpected args %v", args)
		}
	})

	t.Run("no facility matches nothing", func(t *testing.T) {
		sess := scoped("recepcion", nil, PermissionSet{})
		q, _ := m.ScopeQuery(sess, "SELECT * FROM pago", nil)
		if q != "SELECT * FROM pago WHERE false" {
			t.Fatalf("unexpected query %q", q)
		}
	})

	t.Run("nil session matches nothing", func(t *testing.T) {
		q, _ := m.ScopeQuery(nil, "SELECT * FROM pago WHERE monto > $1", []any{1})
		if q != "SELECT * FROM pago WHERE monto > $1 AND false" {
			t.Fatalf("unexpected query %q", q)
		}
	})
}
