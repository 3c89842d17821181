package main

import (
	"stockhub-backend/internal/access"
	"stockhub-backend/internal/admin"
	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/cart"
	"stockhub-backend/internal/catalog"
	"stockhub-backend/internal/config"
	"stockhub-backend/internal/coupon"
	"stockhub-backend/internal/dashboard"
	"stockhub-backend/internal/events"
	"stockhub-backend/internal/inventory"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/order"
	"stockhub-backend/internal/payment"
	"stockhub-backend/internal/reward"
	"stockhub-backend/internal/sale"
	"stockhub-backend/internal/user"
	"stockhub-backend/internal/wishlist"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type deps struct {
	cfg         *config.Config
	log         *zap.Logger
	db          *gorm.DB
	reports     *sqlx.DB
	store       access.Store
	policy      access.Policy
	invalidator access.Invalidator
	pub         events.Publisher
	logs        *audit.Logger
}

func registerRoutes(app *fiber.App, d deps) {
	accounts := auth.NewGormStore(d.db)
	authSvc := auth.NewService(accounts, d.cfg.JWT.Secret, d.cfg.JWT.TTL)
	orders := order.NewService(d.db, d.pub, d.log, d.cfg.Rewards)
	payments := payment.NewService(d.db, d.pub, d.log)
	stats := dashboard.NewService(d.reports)
	saleReports := sale.NewReports(d.reports)

	can := func(module string, action models.PermissionAction) fiber.Handler {
		return access.RequirePermission(d.policy, module, action)
	}

	api := app.Group("/api")

	// Public
	api.Post("/auth/register", auth.RegisterHandler(authSvc))
	api.Post("/auth/register-tenant", auth.RegisterTenantHandler(authSvc))
	api.Post("/auth/bootstrap-admin", auth.BootstrapAdminHandler(authSvc))
	api.Post("/auth/login", auth.LoginHandler(authSvc))
	api.Get("/categories", catalog.ListCategoriesHandler(d.db))
	api.Get("/products", catalog.ListProductsHandler(d.db))
	// The int constraint keeps /products/manage and /products/export on their gated routes.
	api.Get("/products/:id<int>", catalog.GetProductHandler(d.db))

	protected := api.Group("", auth.JWTMiddleware(d.cfg.JWT.Secret), auth.AccountMiddleware(accounts))

	// Any authenticated caller
	protected.Get("/auth/me", auth.MeHandler(authSvc))
	protected.Put("/auth/password", auth.ChangePasswordHandler(authSvc))
	protected.Put("/users/me", user.UpdateProfileHandler(d.db))
	protected.Post("/users/me/avatar", user.UploadAvatarHandler(d.db, d.cfg.Upload, d.log))
	protected.Get("/roles", access.ListRolesHandler())
	protected.Get("/menus", access.MenusHandler(d.store))

	protected.Get("/cart", cart.GetCartHandler(d.db))
	protected.Post("/cart", cart.AddItemHandler(d.db))
	protected.Post("/cart/quote", order.QuoteHandler(orders))
	protected.Put("/cart/:productId", cart.SetQuantityHandler(d.db))
	protected.Delete("/cart/:productId", cart.RemoveItemHandler(d.db))
	protected.Delete("/cart", cart.ClearHandler(d.db))

	protected.Get("/wishlist", wishlist.ListHandler(d.db))
	protected.Post("/wishlist", wishlist.AddHandler(d.db))
	protected.Delete("/wishlist/:productId", wishlist.RemoveHandler(d.db))

	protected.Post("/coupons/validate", coupon.ValidateCouponHandler(d.db))
	protected.Get("/rewards/me", reward.MyRewardsHandler(d.db, d.cfg.Rewards.PointValue))

	protected.Post("/orders/checkout", order.CheckoutHandler(orders, d.logs))
	protected.Get("/orders/me", order.MyOrdersHandler(orders))
	protected.Get("/orders/me/:code", order.MyOrderHandler(orders))
	protected.Post("/orders/me/:code/cancel", order.CancelMyOrderHandler(orders, d.logs))

	// Permission gated
	protected.Get("/permissions", can(models.ModulePermissions, models.ActionView), access.ListPermissionsHandler(d.store))
	protected.Get("/permissions/:role", can(models.ModulePermissions, models.ActionView), access.GetRolePermissionsHandler(d.store))
	protected.Put("/permissions/:role", can(models.ModulePermissions, models.ActionUpdate),
		access.UpdateRolePermissionsHandler(d.store, d.invalidator, d.logs, d.log))

	protected.Get("/users", can(models.ModuleUsers, models.ActionView), user.ListUsersHandler(d.db))
	protected.Get("/users/:id", can(models.ModuleUsers, models.ActionView), user.GetUserHandler(d.db))
	protected.Post("/users", can(models.ModuleUsers, models.ActionAdd), user.CreateUserHandler(d.db, d.logs))
	protected.Put("/users/:id", can(models.ModuleUsers, models.ActionUpdate), user.UpdateUserHandler(d.db, d.logs))
	protected.Delete("/users/:id", can(models.ModuleUsers, models.ActionDelete), user.DeactivateUserHandler(d.db, d.logs))

	adminRoutes := protected.Group("/admin")
	adminRoutes.Get("/branches", can(models.ModuleBranches, models.ActionView), admin.ListBranchesHandler(d.db))
	adminRoutes.Get("/branches/:id", can(models.ModuleBranches, models.ActionView), admin.GetBranchHandler(d.db))
	adminRoutes.Get("/branches/:id/staff", can(models.ModuleBranches, models.ActionView), admin.ListBranchStaffHandler(d.db))
	adminRoutes.Post("/branches", can(models.ModuleBranches, models.ActionAdd), admin.CreateBranchHandler(d.db, d.logs))
	adminRoutes.Put("/branches/:id", can(models.ModuleBranches, models.ActionUpdate), admin.UpdateBranchHandler(d.db, d.logs))
	adminRoutes.Delete("/branches/:id", can(models.ModuleBranches, models.ActionDelete), admin.DeleteBranchHandler(d.db, d.logs))

	tenants := adminRoutes.Group("/tenants", auth.RequireRole(models.RoleAdmin))
	tenants.Get("/", admin.ListTenantsHandler(d.db))
	tenants.Post("/:id/approve", admin.ApproveTenantHandler(d.db, d.logs))
	tenants.Post("/:id/reject", admin.RejectTenantHandler(d.db, d.logs))

	protected.Post("/categories", can(models.ModuleCategories, models.ActionAdd), catalog.CreateCategoryHandler(d.db, d.logs))
	protected.Put("/categories/:id", can(models.ModuleCategories, models.ActionUpdate), catalog.UpdateCategoryHandler(d.db, d.logs))
	protected.Delete("/categories/:id", can(models.ModuleCategories, models.ActionDelete), catalog.DeleteCategoryHandler(d.db, d.logs))

	protected.Get("/products/manage", can(models.ModuleProducts, models.ActionView), catalog.ManageProductsHandler(d.db))
	protected.Get("/products/export", can(models.ModuleProducts, models.ActionExport), catalog.ExportProductsHandler(d.db))
	protected.Post("/products", can(models.ModuleProducts, models.ActionAdd), catalog.CreateProductHandler(d.db, d.logs))
	protected.Put("/products/:id", can(models.ModuleProducts, models.ActionUpdate), catalog.UpdateProductHandler(d.db, d.logs))
	protected.Delete("/products/:id", can(models.ModuleProducts, models.ActionDelete), catalog.DeleteProductHandler(d.db, d.logs))
	protected.Post("/products/:id/image", can(models.ModuleProducts, models.ActionUpdate),
		catalog.UploadImageHandler(d.db, d.cfg.Upload, d.log))
	protected.Post("/import/products", can(models.ModuleProducts, models.ActionImport),
		catalog.ImportProductsHandler(d.db, d.logs, d.log))

	protected.Get("/inventory", can(models.ModuleInventory, models.ActionView), inventory.ListInventoryHandler(d.db))
	protected.Get("/inventory/low-stock", can(models.ModuleInventory, models.ActionView), inventory.LowStockHandler(d.db))
	protected.Get("/inventory/export", can(models.ModuleInventory, models.ActionExport), inventory.ExportInventoryHandler(d.db))
	protected.Post("/inventory/:productId/adjust", can(models.ModuleInventory, models.ActionUpdate), inventory.AdjustStockHandler(d.db, d.logs))
	protected.Put("/inventory/:productId/reorder-level", can(models.ModuleInventory, models.ActionUpdate),
		inventory.SetReorderLevelHandler(d.db, d.logs))

	protected.Get("/coupons", can(models.ModuleCoupons, models.ActionView), coupon.ListCouponsHandler(d.db))
	protected.Get("/coupons/:id", can(models.ModuleCoupons, models.ActionView), coupon.GetCouponHandler(d.db))
	protected.Post("/coupons", can(models.ModuleCoupons, models.ActionAdd), coupon.CreateCouponHandler(d.db, d.logs))
	protected.Put("/coupons/:id", can(models.ModuleCoupons, models.ActionUpdate), coupon.UpdateCouponHandler(d.db, d.logs))
	protected.Delete("/coupons/:id", can(models.ModuleCoupons, models.ActionDelete), coupon.DeleteCouponHandler(d.db, d.logs))

	protected.Get("/rewards", can(models.ModuleRewards, models.ActionView), reward.ListBalancesHandler(d.db))
	protected.Post("/rewards/adjust", can(models.ModuleRewards, models.ActionUpdate), reward.AdjustHandler(d.db, d.logs))

	protected.Get("/orders", can(models.ModuleOrders, models.ActionView), order.ListOrdersHandler(orders))
	protected.Get("/orders/export", can(models.ModuleOrders, models.ActionExport), order.ExportOrdersHandler(orders))
	protected.Get("/orders/:code", can(models.ModuleOrders, models.ActionView), order.GetOrderHandler(orders))
	protected.Put("/orders/:code/status", can(models.ModuleOrders, models.ActionUpdate), order.UpdateStatusHandler(orders, d.logs))

	protected.Get("/sales", can(models.ModuleSales, models.ActionView), sale.ListSalesHandler(d.db))
	protected.Get("/sales/summary", can(models.ModuleSales, models.ActionView), sale.SummaryHandler(saleReports))
	protected.Get("/sales/export", can(models.ModuleSales, models.ActionExport), sale.ExportSalesHandler(d.db))
	protected.Post("/sales", can(models.ModuleSales, models.ActionAdd), sale.CreateSaleHandler(d.db, d.logs))

	protected.Get("/payments", can(models.ModulePayments, models.ActionView), payment.ListPaymentsHandler(d.db))
	protected.Get("/payments/:code", can(models.ModulePayments, models.ActionView), payment.GetBalanceHandler(payments))
	protected.Post("/payments", can(models.ModulePayments, models.ActionAdd), payment.RecordPaymentHandler(payments, d.logs))

	protected.Get("/dashboard/summary", can(models.ModuleDashboard, models.ActionView), dashboard.SummaryHandler(stats))
	protected.Get("/dashboard/sales-trend", can(models.ModuleDashboard, models.ActionView), dashboard.SalesTrendHandler(stats))
	protected.Get("/dashboard/top-products", can(models.ModuleDashboard, models.ActionView), dashboard.TopProductsHandler(stats))

	protected.Get("/activities", can(models.ModuleActivities, models.ActionView), audit.ListActivitiesHandler(d.db))
}
