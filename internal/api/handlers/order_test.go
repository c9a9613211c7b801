package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trellis-commerce/storefront-api/internal/api/handlers"
	"github.com/trellis-commerce/storefront-api/internal/models"
	"github.com/trellis-commerce/storefront-api/internal/services/mocks"
	"github.com/trellis-commerce/storefront-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupOrderTest() (*mocks.OrderService, *handlers.OrderHandler) {
	orderService := new(mocks.OrderService)

	return orderService, handlers.NewOrderHandler(orderService)
}

func orderRequestBody(t *testing.T, digits string) []byte {
	t.Helper()

	body, err := json.Marshal(models.CreateOrderRequest{
		ShippingFirstName:    "Ada",
		ShippingLastName:     "Lovelace",
		ShippingAddress:      "12 Analytical Lane",
		CreditCardLastDigits: digits,
	})
	if err != nil {
		t.Fatalf("marshal order request: %v", err)
	}

	return body
}

func TestCreateOrderHandler(t *testing.T) {
	t.Run("Success - 201 With Snapshot Totals", func(t *testing.T) {
		// Arrange
		orderService, handler := setupOrderTest()
		orderService.On("CreateOrder", mock.Anything, int64(1), mock.AnythingOfType("*models.CreateOrderRequest")).
			Return(&models.Order{ID: 3, UserID: 1, TotalPrice: 350}, nil)

		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/users/1/orders",
			bytes.NewReader(orderRequestBody(t, "4242")),
			1, models.RoleUser, map[string]string{"userId": "1"})
		recorder := httptest.NewRecorder()

		// Act
		handler.CreateOrder().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusCreated, recorder.Code)
		data := envelopeData(t, recorder)
		assert.EqualValues(t, 3, data["id"])
		assert.InDelta(t, 350.0, data["totalPrice"].(float64), 1e-9)
	})

	t.Run("Bad Card Digits - 400", func(t *testing.T) {
		// Arrange
		orderService, handler := setupOrderTest()

		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/users/1/orders",
			bytes.NewReader(orderRequestBody(t, "42a2")),
			1, models.RoleUser, map[string]string{"userId": "1"})
		recorder := httptest.NewRecorder()

		// Act
		handler.CreateOrder().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "must be 4 digits", envelopeData(t, recorder)["creditCardLastDigits"])
		orderService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Missing Shipping Fields - 400 Field Map", func(t *testing.T) {
		// Arrange
		_, handler := setupOrderTest()
		body := []byte(`{"creditCardLastDigits":"4242"}`)

		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/users/1/orders", bytes.NewReader(body),
			1, models.RoleUser, map[string]string{"userId": "1"})
		recorder := httptest.NewRecorder()

		// Act
		handler.CreateOrder().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		data := envelopeData(t, recorder)
		assert.Contains(t, data, "shippingFirstName")
		assert.Contains(t, data, "shippingAddress")
	})

	t.Run("No Identity - 401", func(t *testing.T) {
		// Arrange
		orderService, handler := setupOrderTest()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/users/1/orders",
			bytes.NewReader(orderRequestBody(t, "4242")), map[string]string{"userId": "1"})
		recorder := httptest.NewRecorder()

		// Act
		handler.CreateOrder().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		orderService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGetOrderHandler(t *testing.T) {
	order := &models.Order{ID: 3, UserID: 2, TotalPrice: 350}

	t.Run("Owner - 200", func(t *testing.T) {
		// Arrange
		orderService, handler := setupOrderTest()
		orderService.On("GetOrderByID", mock.Anything, int64(3)).Return(order, nil)

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/users/2/orders/3", nil,
			2, models.RoleUser, map[string]string{"userId": "2", "orderId": "3"})
		recorder := httptest.NewRecorder()

		// Act
		handler.GetOrder().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("Order Owned By Someone Else - 403", func(t *testing.T) {
		// Arrange: user 3 addresses their own collection but the order belongs
		// to user 2.
		orderService, handler := setupOrderTest()
		orderService.On("GetOrderByID", mock.Anything, int64(3)).Return(order, nil)

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/users/3/orders/3", nil,
			3, models.RoleUser, map[string]string{"userId": "3", "orderId": "3"})
		recorder := httptest.NewRecorder()

		// Act
		handler.GetOrder().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusForbidden, recorder.Code)
		assert.Equal(t, "You do not have access to this resource", envelopeData(t, recorder)["auth"])
	})

	t.Run("Admin - 200", func(t *testing.T) {
		// Arrange
		orderService, handler := setupOrderTest()
		orderService.On("GetOrderByID", mock.Anything, int64(3)).Return(order, nil)

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/users/2/orders/3", nil,
			9, models.RoleAdmin, map[string]string{"userId": "2", "orderId": "3"})
		recorder := httptest.NewRecorder()

		// Act
		handler.GetOrder().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestListOrdersHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		orderService, handler := setupOrderTest()
		orderService.On("ListOrdersByUser", mock.Anything, int64(1)).
			Return([]models.Order{{ID: 1, UserID: 1}, {ID: 2, UserID: 1}}, nil)

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/users/1/orders", nil,
			1, models.RoleUser, map[string]string{"userId": "1"})
		recorder := httptest.NewRecorder()

		// Act
		handler.ListOrders().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
		envelope := decodeEnvelope(t, recorder)
		assert.Len(t, envelope.Data, 2)
	})
}
