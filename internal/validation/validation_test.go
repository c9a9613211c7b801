package validation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/trellis-commerce/storefront-api/internal/utils/response"
	"github.com/trellis-commerce/storefront-api/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() validation.Check {
	return func(ctx context.Context) (*validation.Failure, error) {
		return nil, nil
	}
}

func failingBadInput(message string) validation.Check {
	return func(ctx context.Context) (*validation.Failure, error) {
		return validation.BadInput(message), nil
	}
}

func failingNotFound() validation.Check {
	return func(ctx context.Context) (*validation.Failure, error) {
		return validation.NotFound(), nil
	}
}

func TestChainRun(t *testing.T) {
	t.Run("Success - All Checks Pass", func(t *testing.T) {
		// Arrange
		chain := validation.NewChain().
			Field("productId", passing(), passing()).
			Field("quantity", passing())

		// Act
		result := chain.Run(context.Background())

		// Assert
		assert.True(t, result.OK())
		status, fields := result.Resolve()
		assert.Equal(t, 0, status)
		assert.Nil(t, fields)
	})

	t.Run("Bail - Checks After First Failure Do Not Run", func(t *testing.T) {
		// Arrange
		var called atomic.Bool
		sentinel := func(ctx context.Context) (*validation.Failure, error) {
			called.Store(true)

			return nil, nil
		}
		chain := validation.NewChain().
			Field("productId", failingBadInput("must be a positive integer"), sentinel)

		// Act
		result := chain.Run(context.Background())

		// Assert
		assert.False(t, result.OK())
		assert.False(t, called.Load())
	})

	t.Run("Aggregation - BadInput Dominates NotFound", func(t *testing.T) {
		// Arrange
		chain := validation.NewChain().
			Field("quantity", failingBadInput("must be a positive integer")).
			Field("productId", failingNotFound())

		// Act
		status, fields := chain.Run(context.Background()).Resolve()

		// Assert
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, map[string]string{"quantity": "must be a positive integer"}, fields)
	})

	t.Run("Aggregation - Multiple BadInput Failures Are All Reported", func(t *testing.T) {
		// Arrange
		chain := validation.NewChain().
			Field("name", failingBadInput("must be a non-empty string")).
			Field("price", failingBadInput("must be a positive float"))

		// Act
		status, fields := chain.Run(context.Background()).Resolve()

		// Assert
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Len(t, fields, 2)
		assert.Equal(t, "must be a non-empty string", fields["name"])
		assert.Equal(t, "must be a positive float", fields["price"])
	})

	t.Run("Aggregation - NotFound Alone Resolves To 404", func(t *testing.T) {
		// Arrange
		chain := validation.NewChain().Field("productId", failingNotFound())

		// Act
		status, fields := chain.Run(context.Background()).Resolve()

		// Assert
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, map[string]string{"productId": "not found"}, fields)
	})

	t.Run("Internal Fault - Lookup Error Surfaces Via Err", func(t *testing.T) {
		// Arrange
		lookupErr := errors.New("connection refused")
		failing := func(ctx context.Context) (*validation.Failure, error) {
			return nil, lookupErr
		}
		chain := validation.NewChain().Field("productId", failing)

		// Act
		result := chain.Run(context.Background())

		// Assert
		assert.ErrorIs(t, result.Err(), lookupErr)
		assert.False(t, result.OK())
	})

	t.Run("Concurrency - Independent Fields All Run", func(t *testing.T) {
		// Arrange
		var ran atomic.Int32
		counting := func(ctx context.Context) (*validation.Failure, error) {
			ran.Add(1)

			return nil, nil
		}
		chain := validation.NewChain().
			Field("a", counting).
			Field("b", counting).
			Field("c", counting)

		// Act
		result := chain.Run(context.Background())

		// Assert
		assert.True(t, result.OK())
		assert.Equal(t, int32(3), ran.Load())
	})
}

func TestMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Pass - Next Handler Invoked", func(t *testing.T) {
		// Arrange
		mw := validation.Middleware(func(r *http.Request) *validation.Chain {
			return validation.NewChain().Field("userId", passing())
		})
		req := httptest.NewRequest(http.MethodGet, "/users/1", nil)
		recorder := httptest.NewRecorder()

		// Act
		mw(next).ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("BadInput - 400 Fail Envelope, Next Not Invoked", func(t *testing.T) {
		// Arrange
		mw := validation.Middleware(func(r *http.Request) *validation.Chain {
			return validation.NewChain().Field("userId", failingBadInput("must be a positive integer"))
		})
		req := httptest.NewRequest(http.MethodGet, "/users/-1", nil)
		recorder := httptest.NewRecorder()

		// Act
		mw(next).ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, recorder.Code)

		var envelope response.Envelope
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
		assert.Equal(t, response.StatusFail, envelope.Status)
		data, ok := envelope.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "must be a positive integer", data["userId"])
	})

	t.Run("NotFound - 404 Fail Envelope", func(t *testing.T) {
		// Arrange
		mw := validation.Middleware(func(r *http.Request) *validation.Chain {
			return validation.NewChain().Field("productId", failingNotFound())
		})
		req := httptest.NewRequest(http.MethodGet, "/products/999", nil)
		recorder := httptest.NewRecorder()

		// Act
		mw(next).ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusNotFound, recorder.Code)

		var envelope response.Envelope
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
		data, ok := envelope.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "not found", data["productId"])
	})

	t.Run("Internal Fault - 500 Error Envelope", func(t *testing.T) {
		// Arrange
		mw := validation.Middleware(func(r *http.Request) *validation.Chain {
			return validation.NewChain().Field("userId", func(ctx context.Context) (*validation.Failure, error) {
				return nil, errors.New("db down")
			})
		})
		req := httptest.NewRequest(http.MethodGet, "/users/1", nil)
		recorder := httptest.NewRecorder()

		// Act
		mw(next).ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)

		var envelope response.Envelope
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
		assert.Equal(t, response.StatusError, envelope.Status)
		assert.NotEmpty(t, envelope.Message)
	})
}
