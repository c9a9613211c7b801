package cache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/trellis-commerce/storefront-api/internal/cache"
	"github.com/trellis-commerce/storefront-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	product := &models.Product{ID: 10, Name: "Laptop", Price: 999.99}
	payload, _ := json.Marshal(product)

	t.Run("Get - Hit Unmarshals Into Value", func(t *testing.T) {
		// Arrange
		client, mock := redismock.NewClientMock()
		c := cache.NewRedisCache(client, time.Minute)
		mock.ExpectGet("product:10").SetVal(string(payload))

		// Act
		var got models.Product
		found, err := c.Get(context.Background(), "product:10", &got)

		// Assert
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Laptop", got.Name)
	})

	t.Run("Get - Miss Reports Not Found Without Error", func(t *testing.T) {
		// Arrange
		client, mock := redismock.NewClientMock()
		c := cache.NewRedisCache(client, time.Minute)
		mock.ExpectGet("product:99").RedisNil()

		// Act
		var got models.Product
		found, err := c.Get(context.Background(), "product:99", &got)

		// Assert
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Set - Marshals And Applies TTL", func(t *testing.T) {
		// Arrange
		client, mock := redismock.NewClientMock()
		c := cache.NewRedisCache(client, time.Minute)
		mock.ExpectSet("product:10", payload, 30*time.Second).SetVal("OK")

		// Act & Assert
		require.NoError(t, c.Set(context.Background(), "product:10", product, 30*time.Second))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Set - Non-Positive TTL Falls Back To Default", func(t *testing.T) {
		// Arrange
		client, mock := redismock.NewClientMock()
		c := cache.NewRedisCache(client, time.Minute)
		mock.ExpectSet("product:10", payload, time.Minute).SetVal("OK")

		// Act & Assert
		require.NoError(t, c.Set(context.Background(), "product:10", product, 0))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete", func(t *testing.T) {
		// Arrange
		client, mock := redismock.NewClientMock()
		c := cache.NewRedisCache(client, time.Minute)
		mock.ExpectDel("product:10").SetVal(1)

		// Act & Assert
		require.NoError(t, c.Delete(context.Background(), "product:10"))
	})
}
