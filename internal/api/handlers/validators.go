package handlers

import (
	"net/http"

	repository "github.com/trellis-commerce/storefront-api/internal/repositories"
	"github.com/trellis-commerce/storefront-api/internal/validation"
)

// Route-level validation middlewares for identifier path parameters: each
// parameter must be a positive integer and reference an existing entity.

func ValidateUserID(users repository.UserRepository) func(next http.Handler) http.HandlerFunc {
	return validation.Middleware(func(r *http.Request) *validation.Chain {
		raw := r.PathValue("userId")

		return validation.NewChain().Field("userId",
			validation.PositiveInt(raw),
			validation.Exists(raw, users.UserExists),
		)
	})
}

func ValidateProductID(products repository.ProductRepository) func(next http.Handler) http.HandlerFunc {
	return validation.Middleware(func(r *http.Request) *validation.Chain {
		raw := r.PathValue("productId")

		return validation.NewChain().Field("productId",
			validation.PositiveInt(raw),
			validation.Exists(raw, products.ProductExists),
		)
	})
}

func ValidateOrderItemID(cart repository.CartRepository) func(next http.Handler) http.HandlerFunc {
	return validation.Middleware(func(r *http.Request) *validation.Chain {
		raw := r.PathValue("orderItemId")

		return validation.NewChain().Field("orderItemId",
			validation.PositiveInt(raw),
			validation.Exists(raw, cart.ItemExists),
		)
	})
}

func ValidateOrderID(orders repository.OrderRepository) func(next http.Handler) http.HandlerFunc {
	return validation.Middleware(func(r *http.Request) *validation.Chain {
		raw := r.PathValue("orderId")

		return validation.NewChain().Field("orderId",
			validation.PositiveInt(raw),
			validation.Exists(raw, orders.OrderExists),
		)
	})
}
