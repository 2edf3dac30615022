package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/api/dto"
	"github.com/example/sales-desk/internal/catalog"
	"github.com/example/sales-desk/internal/domain"
)

// CatalogHandlers exposes products, customers and users.
type CatalogHandlers struct {
	catalog *catalog.Service
	log     *zap.Logger
}

func NewCatalogHandlers(catalogSvc *catalog.Service, log *zap.Logger) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalogSvc, log: log}
}

// applyEdit runs an update built from the path key and the request body.
func (h *CatalogHandlers) applyEdit(c *gin.Context, e catalog.Edit) {
	if err := h.catalog.Apply(c.Request.Context(), e); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: e.Target() + " updated"})
}

// ============================================
// Products
// ============================================

func (h *CatalogHandlers) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(products))
}

func (h *CatalogHandlers) CreateProduct(c *gin.Context) {
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	p, err := h.catalog.AddProduct(c.Request.Context(), domain.Product{
		SKU:          req.SKU,
		Name:         req.Name,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandlers) UpdateProduct(c *gin.Context) {
	var e catalog.ProductEdit
	if err := c.ShouldBindJSON(&e); err != nil {
		respondBadRequest(c, err)
		return
	}
	e.SKU = c.Param("sku")
	h.applyEdit(c, e)
}

func (h *CatalogHandlers) DeleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("sku")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "product deleted"})
}

// ============================================
// Customers
// ============================================

func (h *CatalogHandlers) ListCustomers(c *gin.Context) {
	customers, err := h.catalog.ListCustomers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(customers))
}

func (h *CatalogHandlers) CreateCustomer(c *gin.Context) {
	var req dto.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	cust, err := h.catalog.AddCustomer(c.Request.Context(), domain.Customer{
		Phone:   req.Phone,
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, cust)
}

func (h *CatalogHandlers) UpdateCustomer(c *gin.Context) {
	var e catalog.CustomerEdit
	if err := c.ShouldBindJSON(&e); err != nil {
		respondBadRequest(c, err)
		return
	}
	e.Phone = c.Param("phone")
	h.applyEdit(c, e)
}

func (h *CatalogHandlers) DeleteCustomer(c *gin.Context) {
	if err := h.catalog.DeleteCustomer(c.Request.Context(), c.Param("phone")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "customer deleted"})
}

// ============================================
// Users
// ============================================

func (h *CatalogHandlers) ListUsers(c *gin.Context) {
	users, err := h.catalog.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(users))
}

func (h *CatalogHandlers) CreateUser(c *gin.Context) {
	var req catalog.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	u, err := h.catalog.AddUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *CatalogHandlers) UpdateUser(c *gin.Context) {
	var e catalog.UserEdit
	if err := c.ShouldBindJSON(&e); err != nil {
		respondBadRequest(c, err)
		return
	}
	e.ID = c.Param("id")
	h.applyEdit(c, e)
}

func (h *CatalogHandlers) DeleteUser(c *gin.Context) {
	if err := h.catalog.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "user deleted"})
}
