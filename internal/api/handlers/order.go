package handlers

import (
	"net/http"

	"github.com/trellis-commerce/storefront-api/internal/api/middleware"
	"github.com/trellis-commerce/storefront-api/internal/models"
	service "github.com/trellis-commerce/storefront-api/internal/services"
	"github.com/trellis-commerce/storefront-api/internal/utils"
	"github.com/trellis-commerce/storefront-api/internal/utils/response"
	"github.com/trellis-commerce/storefront-api/internal/validation"
	"github.com/go-playground/validator/v10"
)

type OrderHandler struct {
	orderService service.OrderService
	validator    *validator.Validate
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService, validator: utils.NewValidator()}
}

func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, userID, ok := callerForUser(w, r)
		if !ok {
			return
		}

		orders, err := h.orderService.ListOrdersByUser(r.Context(), userID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("listing orders failed", "userId", userID, "error", err)
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, orders)
	}
}

func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _, ok := callerForUser(w, r)
		if !ok {
			return
		}

		orderID, err := utils.ParseIntParam(r, "orderId")
		if err != nil {
			response.Fail(w, http.StatusBadRequest, map[string]string{"orderId": "must be a positive integer"})
			return
		}

		order, err := h.orderService.GetOrderByID(r.Context(), orderID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("fetching order failed", "orderId", orderID, "error", err)
			response.Error(w, err)
			return
		}

		if !claims.CanAccess(order.UserID) {
			middleware.Forbidden(w)
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

func (h *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		_, userID, ok := callerForUser(w, r)
		if !ok {
			return
		}

		var req models.CreateOrderRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		chain := validation.NewChain().Field("creditCardLastDigits",
			validation.Digits(req.CreditCardLastDigits, 4),
		)
		if !validation.Resolve(w, chain.Run(r.Context())) {
			return
		}

		order, err := h.orderService.CreateOrder(r.Context(), userID, &req)
		if err != nil {
			logger.Error("creating order failed", "userId", userID, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("order created", "orderId", order.ID, "userId", userID, "total", order.TotalPrice)
		response.Success(w, http.StatusCreated, order)
	}
}
