package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/access"
	"github.com/example/sales-desk/internal/api/dto"
	"github.com/example/sales-desk/internal/api/middleware"
	"github.com/example/sales-desk/internal/dashboard"
	"github.com/example/sales-desk/internal/domain"
	"github.com/example/sales-desk/internal/invoice"
	"github.com/example/sales-desk/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// OrderHandlers serves invoices. Writes go through the invoice manager,
// lists and exports are read from the dashboard board.
type OrderHandlers struct {
	invoices *invoice.Manager
	board    *dashboard.Board
	log      *zap.Logger
}

func NewOrderHandlers(invoices *invoice.Manager, board *dashboard.Board, log *zap.Logger) *OrderHandlers {
	return &OrderHandlers{invoices: invoices, board: board, log: log}
}

// actor aborts with 401 when the request carries no user.
func (h *OrderHandlers) actor(c *gin.Context) (domain.User, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
	}
	return actor, ok
}

func (h *OrderHandlers) criteria(c *gin.Context) (access.Criteria, bool) {
	var crit access.Criteria
	if err := c.ShouldBindQuery(&crit); err != nil {
		respondBadRequest(c, err)
		return crit, false
	}
	if err := crit.Validate(); err != nil {
		respondError(c, h.log, err)
		return crit, false
	}
	return crit, true
}

// ListOrders returns the visible orders, newest invoice date first.
// Query: status (code, label or "all"), q (search term).
func (h *OrderHandlers) ListOrders(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	crit, ok := h.criteria(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.NewList(h.board.Orders(actor, crit)))
}

func (h *OrderHandlers) GetOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	o, err := h.invoices.Get(c.Request.Context(), actor, c.Param("invoice"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandlers) CreateOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var sub invoice.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		respondBadRequest(c, err)
		return
	}

	o, err := h.invoices.Create(c.Request.Context(), actor, sub)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *OrderHandlers) UpdateOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var sub invoice.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		respondBadRequest(c, err)
		return
	}

	o, err := h.invoices.Update(c.Request.Context(), actor, c.Param("invoice"), sub)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandlers) SetStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	o, err := h.invoices.SetStatus(c.Request.Context(), actor, c.Param("invoice"), status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandlers) DeleteOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.invoices.Delete(c.Request.Context(), actor, c.Param("invoice")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "invoice deleted"})
}

// Export streams the visible, filtered orders as an xlsx workbook. An empty
// selection answers with a message instead of a file.
func (h *OrderHandlers) Export(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	crit, ok := h.criteria(c)
	if !ok {
		return
	}

	r, ok := h.board.Export(actor, crit)
	if !ok {
		c.JSON(http.StatusOK, dto.MessageResponse{Message: report.EmptyMessage})
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, r); err != nil {
		respondError(c, h.log, err)
		return
	}

	filename := fmt.Sprintf("sales-export-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Dashboard summarizes the visible orders.
func (h *OrderHandlers) Dashboard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	snap := h.board.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"stats":        h.board.Stats(actor),
		"version":      snap.Version,
		"refreshed_at": snap.RefreshedAt,
	})
}
