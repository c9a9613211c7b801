package repository_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/trellis-commerce/storefront-api/internal/models"
	repository "github.com/trellis-commerce/storefront-api/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductRepoTest(t *testing.T) (repository.ProductRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return repository.NewProductRepo(db), mock
}

func TestCreateProductRepo(t *testing.T) {
	t.Run("Success - Assigns ID", func(t *testing.T) {
		// Arrange
		repo, mock := setupProductRepoTest(t)
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
			WithArgs("Laptop", 999.99, "Portable workstation", "https://example.com/l.png").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(10), now, now))

		product := &models.Product{
			Name: "Laptop", Price: 999.99,
			Description: "Portable workstation", ImageURL: "https://example.com/l.png",
		}

		// Act
		err := repo.CreateProduct(context.Background(), product)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(10), product.ID)
	})
}

func TestNameTaken(t *testing.T) {
	t.Run("Collision With A Different Product", func(t *testing.T) {
		// Arrange
		repo, mock := setupProductRepoTest(t)
		mock.ExpectQuery(regexp.QuoteMeta("name = $1 AND id <> $2")).
			WithArgs("Laptop", int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		// Act
		taken, err := repo.NameTaken(context.Background(), "Laptop", 0)

		// Assert
		require.NoError(t, err)
		assert.True(t, taken)
	})
}

func TestProductExists(t *testing.T) {
	repo, mock := setupProductRepoTest(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ProductExists(context.Background(), 10)

	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteProductRepo(t *testing.T) {
	t.Run("Missing Row - sql.ErrNoRows", func(t *testing.T) {
		// Arrange
		repo, mock := setupProductRepoTest(t)
		mock.ExpectExec("DELETE FROM products").
			WithArgs(int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		// Act & Assert
		assert.ErrorIs(t, repo.DeleteProduct(context.Background(), 99), sql.ErrNoRows)
	})
}

func TestListProducts(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		repo, mock := setupProductRepoTest(t)
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("FROM products")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "description", "image_url", "created_at", "updated_at"}).
				AddRow(int64(10), "Laptop", 999.99, "Portable workstation", "https://example.com/l.png", now, now).
				AddRow(int64(11), "Mouse", 19.99, "Wireless", "https://example.com/m.png", now, now))

		// Act
		products, err := repo.ListProducts(context.Background())

		// Assert
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "Mouse", products[1].Name)
	})
}
