package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/trellis-commerce/storefront-api/internal/models"
)

type OrderRepository interface {
	// CreateFromCart atomically converts the user's cart into the order:
	// it locks the cart rows, sums their totals into order.TotalPrice,
	// inserts the order and claims the rows by setting order_id. On return
	// the order carries its id, items and frozen total; the cart is empty.
	CreateFromCart(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	OrderExists(ctx context.Context, id int64) (bool, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
	CountOrdersByUser(ctx context.Context, userID int64) (int, error)
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

func (r *orderRepository) CreateFromCart(ctx context.Context, order *models.Order) error {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the cart rows so a concurrent update or checkout cannot change
	// them between the read and the claim below. The claim targets exactly
	// the ids read here; a row inserted after this read is not covered by the
	// lock and must stay in the cart rather than join an order whose total
	// was summed without it.
	lockQuery := `
		SELECT id, product_id, quantity, total_price, created_at, updated_at
		FROM order_items
		WHERE user_id = $1 AND order_id IS NULL
		ORDER BY id
		FOR UPDATE`

	rows, err := tx.QueryContext(dbCtx, lockQuery, order.UserID)
	if err != nil {
		return fmt.Errorf("failed to lock cart items: %w", err)
	}

	var items []models.OrderItem
	var itemIDs []int64
	var total float64

	for rows.Next() {
		item := models.OrderItem{UserID: order.UserID}

		err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.TotalPrice,
			&item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			rows.Close()

			return fmt.Errorf("failed to scan cart item: %w", err)
		}

		total += item.TotalPrice
		items = append(items, item)
		itemIDs = append(itemIDs, item.ID)
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read cart items: %w", err)
	}

	insertQuery := `
		INSERT INTO orders (user_id, shipping_first_name, shipping_last_name,
		                    shipping_address, credit_card_last_digits, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at`

	err = tx.QueryRowContext(dbCtx, insertQuery,
		order.UserID, order.ShippingFirstName, order.ShippingLastName,
		order.ShippingAddress, order.CreditCardLastDigits, total).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if len(items) > 0 {
		claimQuery := `
			UPDATE order_items
			SET order_id = $1, updated_at = NOW()
			WHERE id = ANY($2)`

		if _, err := tx.ExecContext(dbCtx, claimQuery, order.ID, pq.Array(itemIDs)); err != nil {
			return fmt.Errorf("failed to claim cart items: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order creation: %w", err)
	}

	orderID := order.ID
	for i := range items {
		items[i].OrderID = &orderID
	}

	order.TotalPrice = total
	order.Items = items

	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	order := &models.Order{}

	query := `
		SELECT id, user_id, shipping_first_name, shipping_last_name,
		       shipping_address, credit_card_last_digits, total_price, created_at
		FROM orders
		WHERE id = $1`

	err := r.DB.QueryRowContext(dbCtx, query, id).
		Scan(&order.ID, &order.UserID, &order.ShippingFirstName, &order.ShippingLastName,
			&order.ShippingAddress, &order.CreditCardLastDigits, &order.TotalPrice, &order.CreatedAt)
	if err != nil {
		return nil, err
	}

	items, err := r.itemsForOrder(dbCtx, order.ID, order.UserID)
	if err != nil {
		return nil, err
	}

	order.Items = items

	return order, nil
}

func (r *orderRepository) itemsForOrder(ctx context.Context, orderID, userID int64) ([]models.OrderItem, error) {

	query := `
		SELECT id, product_id, quantity, total_price, created_at, updated_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.DB.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem

	for rows.Next() {
		item := models.OrderItem{UserID: userID, OrderID: &orderID}

		err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.TotalPrice,
			&item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *orderRepository) OrderExists(ctx context.Context, id int64) (bool, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	if err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check order existence: %w", err)
	}

	return exists, nil
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, shipping_first_name, shipping_last_name,
		       shipping_address, credit_card_last_digits, total_price, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(dbCtx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order

	for rows.Next() {
		var order models.Order

		err := rows.Scan(&order.ID, &order.UserID, &order.ShippingFirstName,
			&order.ShippingLastName, &order.ShippingAddress,
			&order.CreditCardLastDigits, &order.TotalPrice, &order.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.itemsForOrder(dbCtx, orders[i].ID, userID)
		if err != nil {
			return nil, err
		}

		orders[i].Items = items
	}

	return orders, nil
}

func (r *orderRepository) CountOrdersByUser(ctx context.Context, userID int64) (int, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var count int

	query := `SELECT COUNT(*) FROM orders WHERE user_id = $1`

	if err := r.DB.QueryRowContext(dbCtx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return count, nil
}
