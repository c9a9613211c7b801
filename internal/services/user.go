package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	appErrors "github.com/trellis-commerce/storefront-api/internal/errors"
	"github.com/trellis-commerce/storefront-api/internal/models"
	repository "github.com/trellis-commerce/storefront-api/internal/repositories"
	"github.com/trellis-commerce/storefront-api/internal/token"
	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) (*models.User, error)
}

type userService struct {
	repo    repository.UserRepository
	orders  repository.OrderRepository
	limiter repository.RateLimitRepository
	tokens  *token.Service
}

func NewUserService(repo repository.UserRepository, orders repository.OrderRepository,
	limiter repository.RateLimitRepository, tokens *token.Service) UserService {
	return &userService{repo: repo, orders: orders, limiter: limiter, tokens: tokens}
}

func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.InternalError("Failed to secure password").WithError(err)
	}

	user := &models.User{
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     models.RoleUser,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		// The validation chain already vetted uniqueness; a violation here
		// means a concurrent registration won the race.
		return nil, appErrors.DuplicateEntryError("Email already registered").WithField("email").WithError(err)
	}

	return user, nil
}

func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error) {

	allowed, _, retryAfter, err := s.limiter.CheckLoginRateLimit(ctx, req.Email)
	if err != nil {
		return nil, appErrors.ThirdPartyError("Rate limit check failed").WithError(err)
	}

	if !allowed {
		return nil, appErrors.TooManyRequestsError("Too many login attempts. Please try again later.").
			WithDetail(fmt.Sprintf("retry after %d seconds", retryAfter))
	}

	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("not found").WithField("email")
		}

		return nil, appErrors.DatabaseError("Failed to look up user").WithError(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, appErrors.UnauthorizedError("Authentication failed")
	}

	tokenString, err := s.tokens.Issue(user)
	if err != nil {
		return nil, appErrors.InternalError("Failed to generate authentication token").WithError(err)
	}

	return &models.LoginResult{Token: tokenString, User: user}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, appErrors.NotFoundError("not found").WithField("userId").WithError(err)
	}

	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to list users").WithError(err)
	}

	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.User, error) {

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, appErrors.NotFoundError("not found").WithField("userId").WithError(err)
	}

	if req.Email != nil {
		user.Email = *req.Email
	}

	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.InternalError("Failed to secure password").WithError(err)
		}

		user.Password = string(hashed)
	}

	if user.Profile == nil {
		user.Profile = &models.Profile{UserID: user.ID}
	}

	if req.FirstName != nil {
		user.Profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.Profile.LastName = *req.LastName
	}
	if req.Address != nil {
		user.Profile.Address = *req.Address
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, appErrors.DatabaseError("Failed to update user").WithError(err)
	}

	user.Password = ""

	return user, nil
}

// DeleteUser removes the user and its cart. Users with finalized orders are
// not deletable: orders are immutable records that must keep a valid owner.
func (s *userService) DeleteUser(ctx context.Context, id int64) (*models.User, error) {

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, appErrors.NotFoundError("not found").WithField("userId").WithError(err)
	}

	orderCount, err := s.orders.CountOrdersByUser(ctx, id)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to check user orders").WithError(err)
	}

	if orderCount > 0 {
		return nil, appErrors.ConflictError("user has finalized orders and cannot be deleted").WithField("userId")
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return nil, appErrors.DatabaseError("Failed to delete user").WithError(err)
	}

	slog.Info("User deleted", slog.Int64("userId", id))

	return user, nil
}
