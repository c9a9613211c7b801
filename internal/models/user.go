package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Profile is the 1:1 companion record created empty alongside every user.
type Profile struct {
	UserID    int64  `json:"-"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
}

type User struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Password  string      `json:"-"`
	Role      Role        `json:"role"`
	Profile   *Profile    `json:"profile,omitempty"`
	Cart      []OrderItem `json:"cart,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResult is the data payload of a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type UpdateUserRequest struct {
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=6"`
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,min=1"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,min=1"`
	Address   *string `json:"address,omitempty" validate:"omitempty,min=1"`
}

// Claims is the identity embedded in every issued token.
type Claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// CanAccess is the self-or-admin rule: a caller may act on a resource owned
// by userID iff the caller owns it or carries the admin role.
func (c *Claims) CanAccess(userID int64) bool {
	return c.UserID == userID || c.Role == RoleAdmin
}
