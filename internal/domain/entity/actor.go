package entity

// Tipos de actor que pueden invocar el pipeline de emisión.
const (
	ActorSuperadmin  = "superadmin"
	ActorCompanyUser = "company_user"
)

// Permisos usados por el pipeline.
const (
	PermissionEmitInvoices = "billing.emit"
)

// Actor es el descriptor tipado del usuario autenticado: o superadmin global o
// usuario de una empresa con permisos explícitos. Reemplaza al "usuario
// actual" ambiental; se pasa siempre de forma explícita al orquestador.
type Actor struct {
	Kind        string // ActorSuperadmin | ActorCompanyUser
	UserID      string
	CompanyID   string // vacío para superadmin
	Permissions []string
}

// Superadmin construye el actor global.
func Superadmin(userID string) Actor {
	return Actor{Kind: ActorSuperadmin, UserID: userID}
}

// CompanyUser construye un actor de empresa con sus permisos.
func CompanyUser(userID, companyID string, permissions []string) Actor {
	return Actor{Kind: ActorCompanyUser, UserID: userID, CompanyID: companyID, Permissions: permissions}
}

// CanEmitFor indica si el actor puede emitir comprobantes de la empresa dada.
func (a Actor) CanEmitFor(companyID string) bool {
	if a.Kind == ActorSuperadmin {
		return true
	}
	if a.Kind != ActorCompanyUser || a.CompanyID != companyID {
		return false
	}
	for _, p := range a.Permissions {
		if p == PermissionEmitInvoices {
			return true
		}
	}
	return false
}
