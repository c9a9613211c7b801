package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trellis-commerce/storefront-api/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

// CreateUser inserts the user and its empty 1:1 profile in one transaction.
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (email, password, role, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	if user.Role == "" {
		user.Role = models.RoleUser
	}

	err = tx.QueryRowContext(dbCtx, query, user.Email, user.Password, user.Role).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	profileQuery := `
		INSERT INTO profiles (user_id, first_name, last_name, address)
		VALUES ($1, '', '', '')`

	if _, err := tx.ExecContext(dbCtx, profileQuery, user.ID); err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}

	user.Profile = &models.Profile{UserID: user.ID}

	return nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	user := &models.User{}

	query := `
		SELECT id, email, password, role, created_at, updated_at
		FROM users
		WHERE email = $1`

	err := r.DB.QueryRowContext(dbCtx, query, email).
		Scan(&user.ID, &user.Email, &user.Password, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	user := &models.User{Profile: &models.Profile{UserID: id}}

	query := `
		SELECT u.id, u.email, u.role, u.created_at, u.updated_at,
		       p.first_name, p.last_name, p.address
		FROM users u
		JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1`

	err := r.DB.QueryRowContext(dbCtx, query, id).
		Scan(&user.ID, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt,
			&user.Profile.FirstName, &user.Profile.LastName, &user.Profile.Address)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userRepository) UserExists(ctx context.Context, id int64) (bool, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	if err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// EmailTaken reports whether a different user already holds the email.
func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`

	if err := r.DB.QueryRowContext(dbCtx, query, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}

	return exists, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE users
		SET email = $1, password = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	err = tx.QueryRowContext(dbCtx, query, user.Email, user.Password, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if user.Profile != nil {
		profileQuery := `
			UPDATE profiles
			SET first_name = $1, last_name = $2, address = $3
			WHERE user_id = $4`

		_, err := tx.ExecContext(dbCtx, profileQuery,
			user.Profile.FirstName, user.Profile.LastName, user.Profile.Address, user.ID)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user update: %w", err)
	}

	return nil
}

// DeleteUser removes the user, its profile and any items still in its cart.
// Items already claimed by an order are untouched; callers block deletion
// when finalized orders exist.
func (r *userRepository) DeleteUser(ctx context.Context, id int64) error {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(dbCtx,
		`DELETE FROM order_items WHERE user_id = $1 AND order_id IS NULL`, id); err != nil {
		return fmt.Errorf("failed to delete cart items: %w", err)
	}

	if _, err := tx.ExecContext(dbCtx, `DELETE FROM profiles WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	result, err := tx.ExecContext(dbCtx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deleted rows: %w", err)
	}

	if deleted == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

func (r *userRepository) ListUsers(ctx context.Context) ([]models.User, error) {

	dbCtx, cancel := withQueryTimeout(ctx)
	defer cancel()

	query := `
		SELECT u.id, u.email, u.role, u.created_at, u.updated_at,
		       p.first_name, p.last_name, p.address
		FROM users u
		JOIN profiles p ON p.user_id = u.id
		ORDER BY u.id`

	rows, err := r.DB.QueryContext(dbCtx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User

	for rows.Next() {
		user := models.User{Profile: &models.Profile{}}

		err := rows.Scan(&user.ID, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt,
			&user.Profile.FirstName, &user.Profile.LastName, &user.Profile.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		user.Profile.UserID = user.ID
		users = append(users, user)
	}

	return users, rows.Err()
}
