package handlers

import (
	"context"
	"net/http"

	"github.com/trellis-commerce/storefront-api/internal/api/middleware"
	"github.com/trellis-commerce/storefront-api/internal/models"
	repository "github.com/trellis-commerce/storefront-api/internal/repositories"
	service "github.com/trellis-commerce/storefront-api/internal/services"
	"github.com/trellis-commerce/storefront-api/internal/utils"
	"github.com/trellis-commerce/storefront-api/internal/utils/response"
	"github.com/trellis-commerce/storefront-api/internal/validation"
	"github.com/go-playground/validator/v10"
)

type UserHandler struct {
	userService service.UserService
	users       repository.UserRepository
	validator   *validator.Validate
}

func NewUserHandler(userService service.UserService, users repository.UserRepository) *UserHandler {
	return &UserHandler{userService: userService, users: users, validator: utils.NewValidator()}
}

func (h *UserHandler) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var req models.RegisterRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		chain := validation.NewChain().Field("email",
			validation.Unique(func(ctx context.Context) (bool, error) {
				return h.users.EmailTaken(ctx, req.Email, 0)
			}, "already used"),
		)
		if !validation.Resolve(w, chain.Run(r.Context())) {
			return
		}

		user, err := h.userService.Register(r.Context(), &req)
		if err != nil {
			logger.Error("registration failed", "email", req.Email, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("user registered", "userId", user.ID)
		response.Success(w, http.StatusCreated, user)
	}
}

func (h *UserHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var req models.LoginRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		chain := validation.NewChain().Field("email",
			validation.ExistsBy(func(ctx context.Context) (bool, error) {
				return h.users.EmailTaken(ctx, req.Email, 0)
			}),
		)
		if !validation.Resolve(w, chain.Run(r.Context())) {
			return
		}

		result, err := h.userService.Login(r.Context(), &req)
		if err != nil {
			logger.Warn("login failed", "email", req.Email, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("user logged in", "userId", result.User.ID)
		response.Success(w, http.StatusOK, result)
	}
}

func (h *UserHandler) ListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.userService.ListUsers(r.Context())
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("listing users failed", "error", err)
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, users)
	}
}

func (h *UserHandler) GetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, userID, ok := callerForUser(w, r)
		if !ok {
			return
		}

		user, err := h.userService.GetUserByID(r.Context(), userID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("fetching user failed", "userId", userID, "error", err)
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, user)
	}
}

func (h *UserHandler) UpdateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		_, userID, ok := callerForUser(w, r)
		if !ok {
			return
		}

		var req models.UpdateUserRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		if req.Email != nil {
			chain := validation.NewChain().Field("email",
				validation.Unique(func(ctx context.Context) (bool, error) {
					return h.users.EmailTaken(ctx, *req.Email, userID)
				}, "user with similar email already exists"),
			)
			if !validation.Resolve(w, chain.Run(r.Context())) {
				return
			}
		}

		user, err := h.userService.UpdateUser(r.Context(), userID, &req)
		if err != nil {
			logger.Error("updating user failed", "userId", userID, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("user updated", "userId", userID)
		response.Success(w, http.StatusOK, user)
	}
}

func (h *UserHandler) DeleteUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		_, userID, ok := callerForUser(w, r)
		if !ok {
			return
		}

		user, err := h.userService.DeleteUser(r.Context(), userID)
		if err != nil {
			logger.Error("deleting user failed", "userId", userID, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("user deleted", "userId", userID)
		response.Success(w, http.StatusOK, user)
	}
}

// callerForUser resolves the userId path parameter and applies the
// self-or-admin rule against the authenticated caller.
func callerForUser(w http.ResponseWriter, r *http.Request) (*models.Claims, int64, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, map[string]string{"auth": "Authentication required to access this resource"})
		return nil, 0, false
	}

	userID, err := utils.ParseIntParam(r, "userId")
	if err != nil {
		response.Fail(w, http.StatusBadRequest, map[string]string{"userId": "must be a positive integer"})
		return nil, 0, false
	}

	if !claims.CanAccess(userID) {
		middleware.Forbidden(w)
		return nil, 0, false
	}

	return claims, userID, true
}
