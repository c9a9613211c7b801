package models

import "time"

// Order is an immutable snapshot of a cart at checkout time. TotalPrice is
// frozen at creation and never recomputed from product prices.
type Order struct {
	ID                   int64       `json:"id"`
	UserID               int64       `json:"userId"`
	ShippingFirstName    string      `json:"shippingFirstName"`
	ShippingLastName     string      `json:"shippingLastName"`
	ShippingAddress      string      `json:"shippingAddress"`
	CreditCardLastDigits string      `json:"creditCardLastDigits"`
	TotalPrice           float64     `json:"totalPrice"`
	Items                []OrderItem `json:"orderItems"`
	CreatedAt            time.Time   `json:"createdAt"`
}

type CreateOrderRequest struct {
	ShippingFirstName    string `json:"shippingFirstName" validate:"required"`
	ShippingLastName     string `json:"shippingLastName" validate:"required"`
	ShippingAddress      string `json:"shippingAddress" validate:"required"`
	CreditCardLastDigits string `json:"creditCardLastDigits" validate:"required"`
}
