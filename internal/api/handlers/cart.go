package handlers

import (
	"context"
	"net/http"

	"github.com/trellis-commerce/storefront-api/internal/api/middleware"
	"github.com/trellis-commerce/storefront-api/internal/models"
	repository "github.com/trellis-commerce/storefront-api/internal/repositories"
	service "github.com/trellis-commerce/storefront-api/internal/services"
	"github.com/trellis-commerce/storefront-api/internal/utils"
	"github.com/trellis-commerce/storefront-api/internal/utils/response"
	"github.com/trellis-commerce/storefront-api/internal/validation"
	"github.com/go-playground/validator/v10"
)

type CartHandler struct {
	cartService service.CartService
	products    repository.ProductRepository
	validator   *validator.Validate
}

func NewCartHandler(cartService service.CartService, products repository.ProductRepository) *CartHandler {
	return &CartHandler{cartService: cartService, products: products, validator: utils.NewValidator()}
}

func (h *CartHandler) ListCartItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, userID, ok := callerForUser(w, r)
		if !ok {
			return
		}

		items, err := h.cartService.ListCartItems(r.Context(), userID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("listing cart items failed", "userId", userID, "error", err)
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, items)
	}
}

func (h *CartHandler) GetCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := h.ownedItem(w, r)
		if !ok {
			return
		}

		response.Success(w, http.StatusOK, item)
	}
}

func (h *CartHandler) AddCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		_, userID, ok := callerForUser(w, r)
		if !ok {
			return
		}

		var req models.AddCartItemRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		chain := validation.NewChain().Field("productId",
			validation.ExistsBy(func(ctx context.Context) (bool, error) {
				return h.products.ProductExists(ctx, req.ProductID)
			}),
		)
		if !validation.Resolve(w, chain.Run(r.Context())) {
			return
		}

		item, err := h.cartService.AddToCart(r.Context(), userID, &req)
		if err != nil {
			logger.Error("adding cart item failed", "userId", userID, "productId", req.ProductID, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("cart item added", "userId", userID, "orderItemId", item.ID)
		response.Success(w, http.StatusCreated, item)
	}
}

func (h *CartHandler) UpdateCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		item, ok := h.ownedItem(w, r)
		if !ok {
			return
		}

		var req models.UpdateCartItemRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		updated, err := h.cartService.UpdateItem(r.Context(), item.ID, req.Quantity)
		if err != nil {
			logger.Error("updating cart item failed", "orderItemId", item.ID, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("cart item updated", "orderItemId", item.ID)
		response.Success(w, http.StatusOK, updated)
	}
}

func (h *CartHandler) DeleteCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		item, ok := h.ownedItem(w, r)
		if !ok {
			return
		}

		removed, err := h.cartService.RemoveItem(r.Context(), item.ID)
		if err != nil {
			logger.Error("removing cart item failed", "orderItemId", item.ID, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("cart item removed", "orderItemId", item.ID)
		response.Success(w, http.StatusOK, removed)
	}
}

// ownedItem resolves the addressed order item and checks that the caller may
// act on it: self-or-admin against the userId path parameter, then against
// the item's actual owner.
func (h *CartHandler) ownedItem(w http.ResponseWriter, r *http.Request) (*models.OrderItem, bool) {
	claims, _, ok := callerForUser(w, r)
	if !ok {
		return nil, false
	}

	itemID, err := utils.ParseIntParam(r, "orderItemId")
	if err != nil {
		response.Fail(w, http.StatusBadRequest, map[string]string{"orderItemId": "must be a positive integer"})
		return nil, false
	}

	item, err := h.cartService.GetItem(r.Context(), itemID)
	if err != nil {
		middleware.LoggerFromContext(r.Context()).Error("fetching cart item failed", "orderItemId", itemID, "error", err)
		response.Error(w, err)
		return nil, false
	}

	if !claims.CanAccess(item.UserID) {
		middleware.Forbidden(w)
		return nil, false
	}

	return item, true
}
