package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trellis-commerce/storefront-api/internal/api/handlers"
	appErrors "github.com/trellis-commerce/storefront-api/internal/errors"
	"github.com/trellis-commerce/storefront-api/internal/models"
	repoMocks "github.com/trellis-commerce/storefront-api/internal/repositories/mocks"
	"github.com/trellis-commerce/storefront-api/internal/services/mocks"
	"github.com/trellis-commerce/storefront-api/internal/testutils"
	"github.com/trellis-commerce/storefront-api/internal/utils/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupUserTest() (*mocks.UserService, *repoMocks.UserRepository, *handlers.UserHandler) {
	userService := new(mocks.UserService)
	userRepo := new(repoMocks.UserRepository)

	return userService, userRepo, handlers.NewUserHandler(userService, userRepo)
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) response.Envelope {
	t.Helper()

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))

	return envelope
}

func envelopeData(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	data, ok := decodeEnvelope(t, recorder).Data.(map[string]any)
	require.True(t, ok)

	return data
}

func TestRegisterHandler(t *testing.T) {
	t.Run("Success - 201 With Created User", func(t *testing.T) {
		// Arrange
		userService, userRepo, handler := setupUserTest()
		body, _ := json.Marshal(models.RegisterRequest{Email: "new@example.com", Password: "secret123"})

		userRepo.On("EmailTaken", mock.Anything, "new@example.com", int64(0)).Return(false, nil)
		userService.On("Register", mock.Anything, mock.AnythingOfType("*models.RegisterRequest")).
			Return(&models.User{ID: 42, Email: "new@example.com", Role: models.RoleUser}, nil)

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/users/register", bytes.NewReader(body), nil)
		recorder := httptest.NewRecorder()

		// Act
		handler.Register().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusCreated, recorder.Code)
		envelope := decodeEnvelope(t, recorder)
		assert.Equal(t, response.StatusSuccess, envelope.Status)
	})

	t.Run("Taken Email - 400 already used", func(t *testing.T) {
		// Arrange
		userService, userRepo, handler := setupUserTest()
		body, _ := json.Marshal(models.RegisterRequest{Email: "taken@example.com", Password: "secret123"})

		userRepo.On("EmailTaken", mock.Anything, "taken@example.com", int64(0)).Return(true, nil)

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/users/register", bytes.NewReader(body), nil)
		recorder := httptest.NewRecorder()

		// Act
		handler.Register().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "already used", envelopeData(t, recorder)["email"])
		userService.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("Malformed Body - 400 Field Map", func(t *testing.T) {
		// Arrange
		_, _, handler := setupUserTest()
		body := []byte(`{"email":"not-an-email","password":"short"}`)

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/users/register", bytes.NewReader(body), nil)
		recorder := httptest.NewRecorder()

		// Act
		handler.Register().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		data := envelopeData(t, recorder)
		assert.Equal(t, "must be a valid email address", data["email"])
		assert.Equal(t, "must be a string of at least 6 characters", data["password"])
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("Success - 200 With Token And User", func(t *testing.T) {
		// Arrange
		userService, userRepo, handler := setupUserTest()
		body, _ := json.Marshal(models.LoginRequest{Email: "user@example.com", Password: "secret123"})

		userRepo.On("EmailTaken", mock.Anything, "user@example.com", int64(0)).Return(true, nil)
		userService.On("Login", mock.Anything, mock.AnythingOfType("*models.LoginRequest")).
			Return(&models.LoginResult{Token: "signed", User: &models.User{ID: 42}}, nil)

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/users/login", bytes.NewReader(body), nil)
		recorder := httptest.NewRecorder()

		// Act
		handler.Login().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
		data := envelopeData(t, recorder)
		assert.Equal(t, "signed", data["token"])
	})

	t.Run("Unknown Email - 404 Before The Service Runs", func(t *testing.T) {
		// Arrange
		userService, userRepo, handler := setupUserTest()
		body, _ := json.Marshal(models.LoginRequest{Email: "ghost@example.com", Password: "secret123"})

		userRepo.On("EmailTaken", mock.Anything, "ghost@example.com", int64(0)).Return(false, nil)

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/users/login", bytes.NewReader(body), nil)
		recorder := httptest.NewRecorder()

		// Act
		handler.Login().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t, "not found", envelopeData(t, recorder)["email"])
		userService.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})

	t.Run("Wrong Password - 401 Authentication failed", func(t *testing.T) {
		// Arrange
		userService, userRepo, handler := setupUserTest()
		body, _ := json.Marshal(models.LoginRequest{Email: "user@example.com", Password: "wrong-pass"})

		userRepo.On("EmailTaken", mock.Anything, "user@example.com", int64(0)).Return(true, nil)
		userService.On("Login", mock.Anything, mock.Anything).
			Return(nil, appErrors.UnauthorizedError("Authentication failed"))

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/users/login", bytes.NewReader(body), nil)
		recorder := httptest.NewRecorder()

		// Act
		handler.Login().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, "Authentication failed", envelopeData(t, recorder)["auth"])
	})
}

func TestGetUserHandler(t *testing.T) {
	t.Run("Self - 200", func(t *testing.T) {
		// Arrange
		userService, _, handler := setupUserTest()
		userService.On("GetUserByID", mock.Anything, int64(42)).
			Return(&models.User{ID: 42, Email: "user@example.com"}, nil)

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/users/42", nil,
			42, models.RoleUser, map[string]string{"userId": "42"})
		recorder := httptest.NewRecorder()

		// Act
		handler.GetUser().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("Another User's Resource - 403", func(t *testing.T) {
		// Arrange
		userService, _, handler := setupUserTest()

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/users/7", nil,
			42, models.RoleUser, map[string]string{"userId": "7"})
		recorder := httptest.NewRecorder()

		// Act
		handler.GetUser().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusForbidden, recorder.Code)
		assert.Equal(t, "You do not have access to this resource", envelopeData(t, recorder)["auth"])
		userService.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
	})

	t.Run("Admin Reads Another User - 200", func(t *testing.T) {
		// Arrange
		userService, _, handler := setupUserTest()
		userService.On("GetUserByID", mock.Anything, int64(7)).
			Return(&models.User{ID: 7}, nil)

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/users/7", nil,
			1, models.RoleAdmin, map[string]string{"userId": "7"})
		recorder := httptest.NewRecorder()

		// Act
		handler.GetUser().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("No Claims In Context - 401", func(t *testing.T) {
		// Arrange
		_, _, handler := setupUserTest()
		req := testutils.CreateTestRequestWithoutContext(http.MethodGet, "/users/42", nil,
			map[string]string{"userId": "42"})
		recorder := httptest.NewRecorder()

		// Act
		handler.GetUser().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestUpdateUserHandler(t *testing.T) {
	t.Run("Email Collision With Another User - 400", func(t *testing.T) {
		// Arrange
		userService, userRepo, handler := setupUserTest()
		body := []byte(`{"email":"other@example.com"}`)

		userRepo.On("EmailTaken", mock.Anything, "other@example.com", int64(42)).Return(true, nil)

		req := testutils.CreateTestRequestWithContext(http.MethodPut, "/users/42", bytes.NewReader(body),
			42, models.RoleUser, map[string]string{"userId": "42"})
		recorder := httptest.NewRecorder()

		// Act
		handler.UpdateUser().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "user with similar email already exists", envelopeData(t, recorder)["email"])
		userService.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeleteUserHandler(t *testing.T) {
	t.Run("Finalized Orders - 409", func(t *testing.T) {
		// Arrange
		userService, _, handler := setupUserTest()
		userService.On("DeleteUser", mock.Anything, int64(42)).
			Return(nil, appErrors.ConflictError("user has finalized orders and cannot be deleted").WithField("userId"))

		req := testutils.CreateTestRequestWithContext(http.MethodDelete, "/users/42", nil,
			42, models.RoleUser, map[string]string{"userId": "42"})
		recorder := httptest.NewRecorder()

		// Act
		handler.DeleteUser().ServeHTTP(recorder, req)

		// Assert
		assert.Equal(t, http.StatusConflict, recorder.Code)
	})
}
