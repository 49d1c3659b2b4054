package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // super_admin, stock_manager, cashier
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

// Role codes form a closed set.
const (
	RoleSuperAdmin   = "super_admin"
	RoleStockManager = "stock_manager"
	RoleCashier      = "cashier"
)

// DefaultSignupRole is given to every self-registered account.
const DefaultSignupRole = RoleCashier

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleSuperAdmin,
		Name:        "Super Admin",
		Description: "Full system access including user administration and reports",
	},
	{
		Code:        RoleStockManager,
		Name:        "Stock Manager",
		Description: "Catalog, inventory and purchase order management",
	},
	{
		Code:        RoleCashier,
		Name:        "Cashier",
		Description: "Point of sale",
	},
}

// IsValidRole reports whether code is one of the known roles.
func IsValidRole(code string) bool {
	switch code {
	case RoleSuperAdmin, RoleStockManager, RoleCashier:
		return true
	}
	return false
}

// PrivilegeCodes returns the codes granted to the role.
func (r *Role) PrivilegeCodes() []string {
	codes := make([]string, len(r.Privileges))
	for i, p := range r.Privileges {
		codes[i] = p.Code
	}
	return codes
}
