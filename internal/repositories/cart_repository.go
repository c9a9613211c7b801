package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trellis-commerce/storefront-api/internal/models"
)

// CartRepository manages order items still attached to a user's cart
// (order_id IS NULL). Rows claimed by a finalized order are read-only here;
// UpdateItem and DeleteItem return sql.ErrNoRows for rows that are missing
// or already claimed.
type CartRepository interface {
	GetCartItems(ctx context.Context, userID int64) ([]models.OrderItem, error)
	GetItemByID(ctx context.Context, id int64) (*models.OrderItem, error)
	ItemExists(ctx context.Context, id int64) (bool, error)
	FindCartItemByProduct(ctx context.Context, userID, productID int64) (*models.OrderItem, error)
	CreateItem(ctx context.Context, item *models.OrderItem) error
	UpdateItem(ctx context.Context, item *models.OrderItem) error
	DeleteItem(ctx context.Context, id int64) error
}

type cartRepository struct {
	DB *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepository {
	return &cartRepository{DB: db}
}

const orderItemColumns = `
	oi.id, oi.user_id, oi.product_id, oi.quantity, oi.total_price, oi.order_id,
	oi.created_at, oi.updated_at,
	p.id, p.name, p.price, p.description, p.image_url, p.created_at, p.updated_at`

func scanOrderItem(row interface{ Scan(dest ...any) error }) (*models.OrderItem, error) {

	item := &models.OrderItem{Product: &models.Product{}}

	err := row.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity,
		&item.TotalPrice, &item.OrderID, &item.CreatedAt, &item.UpdatedAt,
		&item.Product.ID, &item.Product.Name, &item.Product.Price,
		&item.Product.Description, &item.Product.ImageURL,
		&item.Product.CreatedAt, &item.Product.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *cartRepository) GetCartItems(ctx context.Context, userID int64) ([]models.OrderItem, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + orderItemColumns + `
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.user_id = $1 AND oi.order_id IS NULL
		ORDER BY oi.id`

	rows, err := r.DB.QueryContext(dbCtx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem

	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}

		items = append(items, *item)
	}

	return items, rows.Err()
}

func (r *cartRepository) GetItemByID(ctx context.Context, id int64) (*models.OrderItem, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + orderItemColumns + `
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.id = $1`

	return scanOrderItem(r.DB.QueryRowContext(dbCtx, query, id))
}

func (r *cartRepository) ItemExists(ctx context.Context, id int64) (bool, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM order_items WHERE id = $1)`

	if err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check order item existence: %w", err)
	}

	return exists, nil
}

// FindCartItemByProduct returns the user's cart row for the product, or
// (nil, nil) when the product is not in the cart. This is the merge-decision
// read of add-to-cart.
func (r *cartRepository) FindCartItemByProduct(ctx context.Context, userID, productID int64) (*models.OrderItem, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + orderItemColumns + `
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.user_id = $1 AND oi.product_id = $2 AND oi.order_id IS NULL`

	item, err := scanOrderItem(r.DB.QueryRowContext(dbCtx, query, userID, productID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

func (r *cartRepository) CreateItem(ctx context.Context, item *models.OrderItem) error {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO order_items (user_id, product_id, quantity, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	return r.DB.QueryRowContext(dbCtx, query,
		item.UserID, item.ProductID, item.Quantity, item.TotalPrice).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (r *cartRepository) UpdateItem(ctx context.Context, item *models.OrderItem) error {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	query := `
		UPDATE order_items
		SET quantity = $1, total_price = $2, updated_at = NOW()
		WHERE id = $3 AND order_id IS NULL
		RETURNING updated_at`

	err := r.DB.QueryRowContext(dbCtx, query, item.Quantity, item.TotalPrice, item.ID).
		Scan(&item.UpdatedAt)
	if err != nil {
		// A row claimed by an order is no longer a cart item; surfacing
		// ErrNoRows lets the caller treat it as gone rather than mutate a
		// finalized order's snapshot.
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}

		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, id int64) error {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	result, err := r.DB.ExecContext(dbCtx,
		`DELETE FROM order_items WHERE id = $1 AND order_id IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deleted rows: %w", err)
	}

	if deleted == 0 {
		return sql.ErrNoRows
	}

	return nil
}
