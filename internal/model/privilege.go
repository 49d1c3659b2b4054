package model

// Privilege represents a permission that can be granted to a role.
// Codes follow "<table>:<action>".
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "sales:insert"
	Name string `gorm:"type:varchar(100)" json:"name"`                     // e.g., "Create Sale"
}

const (
	PrivDashboardSelect = "dashboard:select"

	PrivProfilesSelect = "profiles:select"
	PrivProfilesInsert = "profiles:insert"
	PrivProfilesUpdate = "profiles:update"
	PrivProfilesDelete = "profiles:delete"

	PrivCategoriesSelect = "categories:select"
	PrivCategoriesWrite  = "categories:write"
	PrivSuppliersSelect  = "suppliers:select"
	PrivSuppliersWrite   = "suppliers:write"
	PrivCustomersSelect  = "customers:select"
	PrivCustomersWrite   = "customers:write"
	PrivProductsSelect   = "products:select"
	PrivProductsWrite    = "products:write"

	PrivBatchesSelect   = "product_batches:select"
	PrivMovementsSelect = "inventory_movements:select"
	PrivMovementsInsert = "inventory_movements:insert"
	PrivSalesSelect     = "sales:select"
	PrivSalesInsert     = "sales:insert"
	PrivPurchaseSelect  = "purchase_orders:select"
	PrivPurchaseWrite   = "purchase_orders:write"
	PrivPurchaseReceive = "purchase_orders:receive"
	PrivReportsSelect   = "reports:select"
	PrivRolesSelect     = "roles:select"
)

// DefaultPrivileges for the system
var DefaultPrivileges = []Privilege{
	{Code: PrivDashboardSelect, Name: "View Dashboard"},
	// Profiles
	{Code: PrivProfilesSelect, Name: "View Users"},
	{Code: PrivProfilesInsert, Name: "Create User"},
	{Code: PrivProfilesUpdate, Name: "Update User"},
	{Code: PrivProfilesDelete, Name: "Delete User"},
	// Catalog
	{Code: PrivCategoriesSelect, Name: "View Category"},
	{Code: PrivCategoriesWrite, Name: "Manage Category"},
	{Code: PrivSuppliersSelect, Name: "View Supplier"},
	{Code: PrivSuppliersWrite, Name: "Manage Supplier"},
	{Code: PrivCustomersSelect, Name: "View Customer"},
	{Code: PrivCustomersWrite, Name: "Manage Customer"},
	{Code: PrivProductsSelect, Name: "View Product"},
	{Code: PrivProductsWrite, Name: "Manage Product"},
	// Ledger
	{Code: PrivBatchesSelect, Name: "View Batch"},
	{Code: PrivMovementsSelect, Name: "View Stock Movement"},
	{Code: PrivMovementsInsert, Name: "Adjust Stock"},
	// Sales
	{Code: PrivSalesSelect, Name: "View Sale"},
	{Code: PrivSalesInsert, Name: "Create Sale"},
	// Purchasing
	{Code: PrivPurchaseSelect, Name: "View Purchase Order"},
	{Code: PrivPurchaseWrite, Name: "Manage Purchase Order"},
	{Code: PrivPurchaseReceive, Name: "Receive Purchase Order"},
	// Reports
	{Code: PrivReportsSelect, Name: "Export Reports"},
	{Code: PrivRolesSelect, Name: "View Roles"},
}
