package handler

import (
	"github.com/gofiber/fiber/v2"

	"pharmacy-pos/internal/middleware"
	"pharmacy-pos/internal/model"
)

// Handlers groups every HTTP handler served under /api/v1.
type Handlers struct {
	Auth       *AuthHandler
	Users      *UserHandler
	Roles      *RoleHandler
	Dashboard  *DashboardHandler
	Products   *ProductHandler
	Categories *EntityHandler[model.Category]
	Suppliers  *EntityHandler[model.Supplier]
	Customers  *EntityHandler[model.Customer]
	Inventory  *InventoryHandler
	Sales      *SaleHandler
	Purchases  *PurchaseHandler
	Reports    *ReportHandler
}

// Register mounts the public auth routes and the privilege-gated routes on api.
func (h *Handlers) Register(api fiber.Router, auth middleware.TokenValidator) {
	requireAuth := middleware.RequireAuth(auth)
	can := middleware.RequirePrivilege

	// ============ PUBLIC ROUTES ============
	authGroup := api.Group("/auth")
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/signup", h.Auth.SignUp)
	authGroup.Post("/password-reset/request", h.Auth.ForgotPassword)
	authGroup.Post("/password-reset/confirm", h.Auth.ResetPassword)
	authGroup.Post("/validate-token", h.Auth.ValidateToken)
	authGroup.Post("/logout", requireAuth, h.Auth.Logout)
	authGroup.Post("/change-password", requireAuth, h.Auth.ChangePassword)
	authGroup.Post("/heartbeat", requireAuth, h.Auth.Heartbeat)
	authGroup.Get("/session", requireAuth, h.Auth.Session)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	protected.Get("/dashboard/stats", can(model.PrivDashboardSelect), h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", can(model.PrivDashboardSelect), h.Dashboard.GetStockMovement)

	protected.Get("/me", h.Users.Me)
	protected.Get("/users", can(model.PrivProfilesSelect), h.Users.GetUsers)
	protected.Get("/users/:id", h.Users.GetUser)
	protected.Post("/users", can(model.PrivProfilesInsert), h.Users.CreateUser)
	protected.Put("/users/:id", can(model.PrivProfilesUpdate), h.Users.UpdateUser)
	protected.Delete("/users/:id", can(model.PrivProfilesDelete), h.Users.DeleteUser)

	protected.Get("/roles", can(model.PrivRolesSelect), h.Roles.GetRoles)
	protected.Get("/privileges", can(model.PrivRolesSelect), h.Roles.GetPrivileges)

	entity(protected, "/categories", h.Categories, model.PrivCategoriesSelect, model.PrivCategoriesWrite)
	entity(protected, "/suppliers", h.Suppliers, model.PrivSuppliersSelect, model.PrivSuppliersWrite)
	entity(protected, "/customers", h.Customers, model.PrivCustomersSelect, model.PrivCustomersWrite)

	protected.Get("/products", can(model.PrivProductsSelect), h.Products.GetProducts)
	protected.Get("/products/:id", can(model.PrivProductsSelect), h.Products.GetProduct)
	protected.Post("/products", can(model.PrivProductsWrite), h.Products.CreateProduct)
	protected.Put("/products/:id", can(model.PrivProductsWrite), h.Products.UpdateProduct)
	protected.Delete("/products/:id", can(model.PrivProductsWrite), h.Products.DeleteProduct)

	protected.Get("/inventory/batches", can(model.PrivBatchesSelect), h.Inventory.GetBatches)
	protected.Get("/inventory/batches/:id", can(model.PrivBatchesSelect), h.Inventory.GetBatch)
	protected.Get("/inventory/stock", middleware.RequireAnyPrivilege(model.PrivBatchesSelect, model.PrivProductsSelect), h.Inventory.GetStockLevels)
	protected.Get("/inventory/movements", can(model.PrivMovementsSelect), h.Inventory.GetMovements)
	protected.Post("/inventory/adjustments", can(model.PrivMovementsInsert), h.Inventory.AdjustStock)

	protected.Get("/sales", can(model.PrivSalesSelect), h.Sales.GetSales)
	protected.Get("/sales/:id", can(model.PrivSalesSelect), h.Sales.GetSale)
	protected.Post("/sales", can(model.PrivSalesInsert), h.Sales.CreateSale)

	protected.Get("/purchase-orders", can(model.PrivPurchaseSelect), h.Purchases.GetOrders)
	protected.Get("/purchase-orders/:id", can(model.PrivPurchaseSelect), h.Purchases.GetOrder)
	protected.Post("/purchase-orders", can(model.PrivPurchaseWrite), h.Purchases.CreateOrder)
	protected.Put("/purchase-orders/:id/status", can(model.PrivPurchaseWrite), h.Purchases.UpdateStatus)
	protected.Post("/purchase-orders/:id/receive", can(model.PrivPurchaseReceive), h.Purchases.ReceiveOrder)

	reports := protected.Group("/reports", middleware.RequireRole(model.RoleSuperAdmin))
	reports.Get("/sales.xlsx", can(model.PrivReportsSelect), h.Reports.SalesReport)
}

func entity[T any](r fiber.Router, path string, h *EntityHandler[T], read, write string) {
	r.Get(path, middleware.RequirePrivilege(read), h.List)
	r.Get(path+"/:id", middleware.RequirePrivilege(read), h.Get)
	r.Post(path, middleware.RequirePrivilege(write), h.Create)
	r.Put(path+"/:id", middleware.RequirePrivilege(write), h.Update)
	r.Delete(path+"/:id", middleware.RequirePrivilege(write), h.Delete)
}
