package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	appErrors "github.com/trellis-commerce/storefront-api/internal/errors"
	"github.com/trellis-commerce/storefront-api/internal/models"
	repository "github.com/trellis-commerce/storefront-api/internal/repositories"
)

type CartService interface {
	ListCartItems(ctx context.Context, userID int64) ([]models.OrderItem, error)
	GetItem(ctx context.Context, itemID int64) (*models.OrderItem, error)
	AddToCart(ctx context.Context, userID int64, req *models.AddCartItemRequest) (*models.OrderItem, error)
	UpdateItem(ctx context.Context, itemID int64, quantity int) (*models.OrderItem, error)
	RemoveItem(ctx context.Context, itemID int64) (*models.OrderItem, error)
}

// userLocks serializes cart mutations per user so the read-then-write merge
// of add-to-cart cannot lose a concurrent update for the same user. Entries
// are reference counted and dropped when the last holder releases, so the
// map is bounded by in-flight mutations, not by every user ever seen.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu      sync.Mutex
	holders int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{}
		l.locks[userID] = entry
	}
	entry.holders++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.holders--
		if entry.holders == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

type cartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	locks    *userLocks
}

func NewCartService(repo repository.CartRepository, products repository.ProductRepository) CartService {
	return &cartService{repo: repo, products: products, locks: newUserLocks()}
}

func (s *cartService) ListCartItems(ctx context.Context, userID int64) ([]models.OrderItem, error) {

	items, err := s.repo.GetCartItems(ctx, userID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch cart items").WithError(err)
	}

	return items, nil
}

func (s *cartService) GetItem(ctx context.Context, itemID int64) (*models.OrderItem, error) {

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, appErrors.NotFoundError("not found").WithField("orderItemId").WithError(err)
	}

	return item, nil
}

// AddToCart merges the product into the user's cart. A product already in
// the cart gains quantity and accumulates total price incrementally at the
// product's current price, preserving the price each earlier add was made
// at. A new product gets a fresh item priced at quantity times the current
// price.
func (s *cartService) AddToCart(ctx context.Context, userID int64, req *models.AddCartItemRequest) (*models.OrderItem, error) {

	unlock := s.locks.lock(userID)
	defer unlock()

	product, err := s.products.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, appErrors.NotFoundError("not found").WithField("productId").WithError(err)
	}

	existing, err := s.repo.FindCartItemByProduct(ctx, userID, req.ProductID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to read cart").WithError(err)
	}

	if existing == nil {
		item := &models.OrderItem{
			UserID:     userID,
			ProductID:  req.ProductID,
			Quantity:   req.Quantity,
			TotalPrice: product.Price * float64(req.Quantity),
			Product:    product,
		}

		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, appErrors.DatabaseError("Failed to add item to cart").WithError(err)
		}

		return item, nil
	}

	existing.Quantity += req.Quantity
	existing.TotalPrice += product.Price * float64(req.Quantity)
	existing.Product = product

	if err := s.repo.UpdateItem(ctx, existing); err != nil {
		return nil, appErrors.DatabaseError("Failed to update cart item").WithError(err)
	}

	return existing, nil
}

// UpdateItem sets the quantity and recomputes the total from the product's
// current price. Unlike AddToCart this is a fresh recompute, so a price
// change between the original add and the update is reflected here.
func (s *cartService) UpdateItem(ctx context.Context, itemID int64, quantity int) (*models.OrderItem, error) {

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, appErrors.NotFoundError("not found").WithField("orderItemId").WithError(err)
	}

	unlock := s.locks.lock(item.UserID)
	defer unlock()

	product, err := s.products.GetProductByID(ctx, item.ProductID)
	if err != nil {
		return nil, appErrors.NotFoundError("not found").WithField("productId").WithError(err)
	}

	item.Quantity = quantity
	item.TotalPrice = float64(quantity) * product.Price
	item.Product = product

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		// The row vanished or was claimed by an order between the read and
		// the write. Either way it is no longer a cart item.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("not found").WithField("orderItemId").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to update cart item").WithError(err)
	}

	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, itemID int64) (*models.OrderItem, error) {

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, appErrors.NotFoundError("not found").WithField("orderItemId").WithError(err)
	}

	unlock := s.locks.lock(item.UserID)
	defer unlock()

	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("not found").WithField("orderItemId").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to remove cart item").WithError(err)
	}

	return item, nil
}
