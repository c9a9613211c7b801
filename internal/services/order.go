package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	appErrors "github.com/trellis-commerce/storefront-api/internal/errors"
	"github.com/trellis-commerce/storefront-api/internal/models"
	repository "github.com/trellis-commerce/storefront-api/internal/repositories"
	"github.com/trellis-commerce/storefront-api/pkg/sendgrid"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, req *models.CreateOrderRequest) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
}

type orderService struct {
	orders repository.OrderRepository
	users  repository.UserRepository
	email  sendgrid.EmailSender
}

// NewOrderService wires the order engine. email may be nil when no
// confirmation sender is configured.
func NewOrderService(orders repository.OrderRepository, users repository.UserRepository,
	email sendgrid.EmailSender) OrderService {
	return &orderService{orders: orders, users: users, email: email}
}

// CreateOrder converts the user's cart into an immutable order in one
// transactional unit: the repository locks the cart rows, freezes the total
// as the sum of their totalPrice values and claims them for the new order.
// An empty cart still produces an order with total 0 and no items.
func (s *orderService) CreateOrder(ctx context.Context, userID int64, req *models.CreateOrderRequest) (*models.Order, error) {

	order := &models.Order{
		UserID:               userID,
		ShippingFirstName:    req.ShippingFirstName,
		ShippingLastName:     req.ShippingLastName,
		ShippingAddress:      req.ShippingAddress,
		CreditCardLastDigits: req.CreditCardLastDigits,
	}

	if err := s.orders.CreateFromCart(ctx, order); err != nil {
		return nil, appErrors.DatabaseError("Failed to create order").WithError(err)
	}

	s.sendConfirmation(order)

	return order, nil
}

// sendConfirmation emails the order owner after the commit, best effort. A
// delivery failure is logged and never fails the order.
func (s *orderService) sendConfirmation(order *models.Order) {

	if s.email == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		user, err := s.users.GetUserByID(ctx, order.UserID)
		if err != nil {
			slog.Warn("Order confirmation skipped: owner lookup failed",
				slog.Int64("orderId", order.ID), slog.Any("error", err))

			return
		}

		subject := fmt.Sprintf("Order #%d confirmed", order.ID)
		body := fmt.Sprintf("Your order #%d for a total of %.2f has been placed.", order.ID, order.TotalPrice)

		if err := s.email.Send(ctx, user.Email, subject, body); err != nil {
			slog.Warn("Order confirmation email failed",
				slog.Int64("orderId", order.ID), slog.Any("error", err))
		}
	}()
}

func (s *orderService) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {

	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, appErrors.NotFoundError("not found").WithField("orderId").WithError(err)
	}

	return order, nil
}

func (s *orderService) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {

	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, nil
}
