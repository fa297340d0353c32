package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const (
	viewQuery = `SELECT perm FROM v_user_permissions WHERE user_id = $1`
	roleQuery = `SELECT r.name FROM user_role ur JOIN role r ON r.id = ur.role_id
WHERE ur.user_id = $1 ORDER BY r.name`
)

func TestResolveFromView(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(viewQuery)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"perm"}).
			AddRow("socios_read").AddRow("checkin"))
	mock.ExpectQuery(regexp.QuoteMeta(roleQuery)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("Recepcion").AddRow("entrenador"))

	r := NewResolver(db)
	perms, roles := r.Resolve(context.Background(), Identity{ID: 7, Role: "recepcion"})
	if !perms.Has("socios_read") || !perms.Has("checkin") || perms.Has("users_manage") {
		t.Fatalf("unexpected permission set %v", perms)
	}
	if !roles.Contains("recepcion") || !roles.Contains("ENTRENADOR") {
		t.Fatalf("unexpected role list %v", roles)
	}
}

func TestResolveFallsBackOnViewError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(viewQuery)).
		WillReturnError(errors.New(`relation "v_user_permissions" does not exist`))

	r := NewResolver(db)
	perms, roles := r.Resolve(context.Background(), Identity{ID: 7, Role: "recepcion"})
	if !perms.Has(PermSociosRead) {
		t.Fatal("fallback should grant socios_read to recepcion")
	}
	if perms.Has(PermUsersManage) {
		t.Fatal("fallback must not grant users_manage to recepcion")
	}
	if !roles.Contains("recepcion") {
		t.Fatalf("unexpected role list %v", roles)
	}
}

func TestResolveFallbackGrantsAdminEverything(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(viewQuery)).
		WillReturnError(errors.New("connection refused"))

	r := NewResolver(db)
	perms, _ := r.Resolve(context.Background(), Identity{ID: 1, Role: "Admin"})
	for perm := range FallbackPermissions {
		if !perms.Has(perm) {
			t.Fatalf("admin fallback missing %s", perm)
		}
	}
}

func TestFallbackMatrixRoleGrants(t *testing.T) {
	cases := []struct {
		role string
		perm string
		held bool
	}{
		{RoleEntrenador, PermReservationsCreate, true},
		{RoleEntrenador, PermCheckin, true},
		{RoleEntrenador, PermSociosRead, false},
		{RoleFinanzas, PermProductsManage, true},
		{RoleFinanzas, PermPaymentsRefund, true},
		{RoleFinanzas, PermAccessEntry, false},
		{RoleGerente, PermAllSedes, true},
		{RoleRecepcion, PermUsersManage, false},
	}
	for _, tc := range cases {
		if got := fallbackFor(tc.role).Has(tc.perm); got != tc.held {
			t.Errorf("fallbackFor(%s).Has(%s) = %v, want %v", tc.role, tc.perm, got, tc.held)
		}
	}
}

func TestResolveRoleQueryFailureUsesStoredLabel(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(viewQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"perm"}).AddRow("kpi_view"))
	mock.ExpectQuery(regexp.QuoteMeta(roleQuery)).
		WillReturnError(errors.New("timeout"))

	r := NewResolver(db)
	perms, roles := r.Resolve(context.Background(), Identity{ID: 4, Role: "Finanzas"})
	if !perms.Has("kpi_view") {
		t.Fatal("view permissions should survive a role query failure")
	}
	if !roles.Contains("finanzas") {
		t.Fatalf("expected stored label fallback, got %v", roles)
	}
}
