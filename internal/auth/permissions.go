package auth

// Role labels as stored on app_user.rol and role.name.
const (
	RoleAdmin      = "admin"
	RoleGerente    = "gerente"
	RoleRecepcion  = "recepcion"
	RoleEntrenador = "entrenador"
	RoleFinanzas   = "finanzas"
)

// Permission names. These match the rows served by v_user_permissions;
// the fallback table below mirrors the same assignments.
const (
	PermKPIView            = "kpi_view"
	PermUsersManage        = "users_manage"
	PermSociosRead         = "socios_read"
	PermSociosCreate       = "socios_create"
	PermSociosUpdate       = "socios_update"
	PermSociosDelete       = "socios_delete"
	PermPlansManage        = "plans_manage"
	PermMembershipAssign   = "membership_assign"
	PermPaymentsRegister   = "payments_register"
	PermPaymentsRead       = "payments_read"
	PermPaymentsCreate     = "payments_create"
	PermPaymentsRefund     = "payments_refund"
	PermClassesPublish     = "classes_publish"
	PermClassesEdit        = "classes_edit"
	PermClassesDelete      = "classes_delete"
	PermReservationsCreate = "reservations_create"
	PermCheckin            = "checkin"
	PermAccessEntry        = "access_entry"
	PermAccessExit         = "access_exit"
	PermReportsView        = "reports_view"
	PermProductsManage     = "products_manage"
	PermSalesCreate        = "sales_create"
	PermSalesRead          = "sales_read"
	PermSalesRefund        = "sales_refund"
	PermAuditView          = "audit_view"
	PermAllSedes           = "all_sedes"
)

// FallbackPermissions maps each permission to the roles that hold it.
// It is consulted only when the database permission view cannot be
// read, so that the service degrades to a known-good matrix instead of
// locking everyone out. Keep it in sync with the seeded role_permission
// rows.
var FallbackPermissions = map[string][]string{
	PermKPIView:            {RoleAdmin, RoleRecepcion, RoleEntrenador, RoleFinanzas},
	PermUsersManage:        {RoleAdmin},
	PermSociosRead:         {RoleAdmin, RoleRecepcion},
	PermSociosCreate:       {RoleAdmin, RoleRecepcion},
	PermSociosUpdate:       {RoleAdmin, RoleRecepcion},
	PermSociosDelete:       {RoleAdmin},
	PermPlansManage:        {RoleAdmin},
	PermMembershipAssign:   {RoleAdmin, RoleRecepcion},
	PermPaymentsRegister:   {RoleAdmin, RoleRecepcion, RoleFinanzas},
	PermPaymentsRead:       {RoleAdmin, RoleRecepcion, RoleFinanzas},
	PermPaymentsCreate:     {RoleAdmin, RoleRecepcion, RoleFinanzas},
	PermPaymentsRefund:     {RoleAdmin, RoleFinanzas},
	PermClassesPublish:     {RoleAdmin, RoleEntrenador},
	PermClassesEdit:        {RoleAdmin, RoleEntrenador},
	PermClassesDelete:      {RoleAdmin},
	PermReservationsCreate: {RoleAdmin, RoleRecepcion, RoleEntrenador},
	PermCheckin:            {RoleAdmin, RoleRecepcion, RoleEntrenador},
	PermAccessEntry:        {RoleAdmin, RoleRecepcion},
	PermAccessExit:         {RoleAdmin, RoleRecepcion},
	PermReportsView:        {RoleAdmin, RoleFinanzas},
	PermProductsManage:     {RoleAdmin, RoleFinanzas},
	PermSalesCreate:        {RoleAdmin, RoleRecepcion},
	PermSalesRead:          {RoleAdmin, RoleRecepcion, RoleFinanzas},
	PermSalesRefund:        {RoleAdmin, RoleFinanzas},
	PermAuditView:          {RoleAdmin},
	PermAllSedes:           {RoleAdmin, RoleGerente},
}

// fallbackFor returns the permissions the static table grants a role.
func fallbackFor(role string) PermissionSet {
	set := make(PermissionSet)
	for perm, roles := range FallbackPermissions {
		for _, r := range roles {
			if r == role {
				set[perm] = struct{}{}
				break
			}
		}
	}
	return set
}
