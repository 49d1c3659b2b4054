package access

import (
	"pharmacy-pos/internal/model"
)

// Screen is a navigable area of the client application.
type Screen string

const (
	ScreenDashboard      Screen = "dashboard"
	ScreenPOS            Screen = "pos"
	ScreenSales          Screen = "sales"
	ScreenInventory      Screen = "inventory"
	ScreenProducts       Screen = "products"
	ScreenCategories     Screen = "categories"
	ScreenSuppliers      Screen = "suppliers"
	ScreenCustomers      Screen = "customers"
	ScreenPurchaseOrders Screen = "purchase_orders"
	ScreenUsers          Screen = "users"
	ScreenReports        Screen = "reports"
)

// AllScreens in menu order.
var AllScreens = []Screen{
	ScreenDashboard, ScreenPOS, ScreenSales, ScreenInventory, ScreenProducts, ScreenCategories,
	ScreenSuppliers, ScreenCustomers, ScreenPurchaseOrders, ScreenUsers, ScreenReports,
}

var roleScreens = map[string][]Screen{
	model.RoleStockManager: {
		ScreenDashboard, ScreenSales, ScreenInventory, ScreenProducts, ScreenCategories,
		ScreenSuppliers, ScreenPurchaseOrders,
	},
	model.RoleCashier: {
		ScreenDashboard, ScreenPOS, ScreenSales, ScreenProducts, ScreenCustomers,
	},
}

// ScreensFor returns the screens a role may open. Unknown roles get none.
func ScreensFor(role string) []Screen {
	screens := roleScreens[role]
	if role == model.RoleSuperAdmin {
		screens = AllScreens
	}
	out := make([]Screen, len(screens))
	copy(out, screens)
	return out
}

// CanOpen reports whether role may open screen.
func CanOpen(role string, screen Screen) bool {
	if role == model.RoleSuperAdmin {
		return true
	}
	for _, s := range roleScreens[role] {
		if s == screen {
			return true
		}
	}
	return false
}

var roleGrants = map[string][]string{
	model.RoleStockManager: {
		model.PrivDashboardSelect,
		model.PrivCategoriesSelect, model.PrivCategoriesWrite,
		model.PrivSuppliersSelect, model.PrivSuppliersWrite,
		model.PrivCustomersSelect,
		model.PrivProductsSelect, model.PrivProductsWrite,
		model.PrivBatchesSelect,
		model.PrivMovementsSelect, model.PrivMovementsInsert,
		model.PrivSalesSelect,
		model.PrivPurchaseSelect, model.PrivPurchaseWrite, model.PrivPurchaseReceive,
	},
	model.RoleCashier: {
		model.PrivDashboardSelect,
		model.PrivCategoriesSelect,
		model.PrivCustomersSelect, model.PrivCustomersWrite,
		model.PrivProductsSelect,
		model.PrivBatchesSelect,
		model.PrivSalesSelect, model.PrivSalesInsert,
	},
}

// GrantsFor returns the privilege codes seeded for role. Super admins hold every privilege.
func GrantsFor(role string) []string {
	if role == model.RoleSuperAdmin {
		codes := make([]string, len(model.DefaultPrivileges))
		for i, p := range model.DefaultPrivileges {
			codes[i] = p.Code
		}
		return codes
	}
	grants := roleGrants[role]
	out := make([]string, len(grants))
	copy(out, grants)
	return out
}

// Scope limits which rows of an owned table a role can read.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwn
	ScopeAll
)

// SalesScope: cashiers only see the sales they rang up.
func SalesScope(role string) Scope {
	switch role {
	case model.RoleSuperAdmin, model.RoleStockManager:
		return ScopeAll
	case model.RoleCashier:
		return ScopeOwn
	}
	return ScopeNone
}

// ProfileScope: only super admins read other users' profiles.
func ProfileScope(role string) Scope {
	switch role {
	case model.RoleSuperAdmin:
		return ScopeAll
	case model.RoleStockManager, model.RoleCashier:
		return ScopeOwn
	}
	return ScopeNone
}
