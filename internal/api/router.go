package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/api/middleware"
	"github.com/example/sales-desk/internal/auth"
	"github.com/example/sales-desk/internal/domain"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	AuthHandlers    *AuthHandlers
	CatalogHandlers *CatalogHandlers
	OrderHandlers   *OrderHandlers
	JWTService      *auth.JWTService
	Users           middleware.UserLookup
	Logger          *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", cfg.AuthHandlers.Login)
	v1.POST("/auth/logout", cfg.AuthHandlers.Logout)

	authed := v1.Group("")
	authed.Use(middleware.AuthRequired(cfg.JWTService, cfg.Users, log))
	{
		authed.GET("/me", cfg.AuthHandlers.Me)
		authed.GET("/dashboard", cfg.OrderHandlers.Dashboard)

		authed.GET("/orders", cfg.OrderHandlers.ListOrders)
		authed.POST("/orders", cfg.OrderHandlers.CreateOrder)
		authed.GET("/orders/export", cfg.OrderHandlers.Export)
		authed.GET("/orders/:invoice", cfg.OrderHandlers.GetOrder)
		authed.PUT("/orders/:invoice", cfg.OrderHandlers.UpdateOrder)
		authed.PATCH("/orders/:invoice/status", cfg.OrderHandlers.SetStatus)
		authed.DELETE("/orders/:invoice", cfg.OrderHandlers.DeleteOrder)

		authed.GET("/products", cfg.CatalogHandlers.ListProducts)
		authed.GET("/customers", cfg.CatalogHandlers.ListCustomers)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	{
		admin.POST("/products", cfg.CatalogHandlers.CreateProduct)
		admin.PUT("/products/:sku", cfg.CatalogHandlers.UpdateProduct)
		admin.DELETE("/products/:sku", cfg.CatalogHandlers.DeleteProduct)

		admin.POST("/customers", cfg.CatalogHandlers.CreateCustomer)
		admin.PUT("/customers/:phone", cfg.CatalogHandlers.UpdateCustomer)
		admin.DELETE("/customers/:phone", cfg.CatalogHandlers.DeleteCustomer)

		admin.GET("/users", cfg.CatalogHandlers.ListUsers)
		admin.POST("/users", cfg.CatalogHandlers.CreateUser)
		admin.PUT("/users/:id", cfg.CatalogHandlers.UpdateUser)
		admin.DELETE("/users/:id", cfg.CatalogHandlers.DeleteUser)
	}

	return r
}
