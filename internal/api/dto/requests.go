package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/sales-desk/internal/domain"
)

// LoginRequest accepts a user id or a display name as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type LoginResponse struct {
	User        domain.User `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

type ProductRequest struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

type CustomerRequest struct {
	Phone   string `json:"phone"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func NewList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}
