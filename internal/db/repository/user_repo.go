package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/lib/pq"
)

const userColumns = `id, email, password_hash, first_name, last_name, address, phone_number,
		       avatar_url, is_banned, created_at, updated_at`

// UserRepository handles user data access
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user and their roles by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Roles, err = r.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetByEmail retrieves a user and their roles by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	user.Roles, err = r.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// List retrieves all users with their roles
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
	`

	var users []models.User
	err := r.db.SelectContext(ctx, &users, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var rows []struct {
		UserID uuid.UUID       `db:"user_id"`
		Role   models.UserRole `db:"role"`
	}
	err = r.db.SelectContext(ctx, &rows, `SELECT user_id, role FROM user_roles`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}

	byUser := make(map[uuid.UUID][]models.UserRole, len(users))
	for _, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], row.Role)
	}
	for i := range users {
		users[i].Roles = withDefaultRole(byUser[users[i].ID])
	}

	return users, nil
}

// Create inserts a user together with its roles
func (r *UserRepository) Create(ctx context.Context, user models.User) (*models.User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, address, phone_number, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	var created models.User
	err = tx.GetContext(
		ctx,
		&created,
		query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Address,
		user.PhoneNumber,
		user.AvatarURL,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			err = ErrEmailExists
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	for _, role := range user.Roles {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			created.ID,
			role,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to assign role: %w", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	created.Roles = withDefaultRole(user.Roles)
	return &created, nil
}

// UpdateProfile updates the self-editable profile fields
func (r *UserRepository) UpdateProfile(ctx context.Context, user models.User) (*models.User, error) {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, address = $3, phone_number = $4, avatar_url = $5, updated_at = $6
		WHERE id = $7
		RETURNING ` + userColumns

	var updated models.User
	err := r.db.GetContext(
		ctx,
		&updated,
		query,
		user.FirstName,
		user.LastName,
		user.Address,
		user.PhoneNumber,
		user.AvatarURL,
		time.Now(),
		user.ID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	updated.Roles, err = r.GetRoles(ctx, updated.ID)
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// SetBanned bans or unbans a user
func (r *UserRepository) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	query := `
		UPDATE users
		SET is_banned = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, banned, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update ban flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM users
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetRoles returns the roles stored for a user; [customer] when none are
func (r *UserRepository) GetRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error) {
	var roles []models.UserRole
	err := r.db.SelectContext(
		ctx,
		&roles,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	return withDefaultRole(roles), nil
}

// AddRole grants a role; granting a held role is a no-op
func (r *UserRepository) AddRole(ctx context.Context, userID uuid.UUID, role models.UserRole) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID,
		role,
	)
	if err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}
	return nil
}

// RemoveRole revokes a role
func (r *UserRepository) RemoveRole(ctx context.Context, userID uuid.UUID, role models.UserRole) error {
	result, err := r.db.ExecContext(
		ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role = $2`,
		userID,
		role,
	)
	if err != nil {
		return fmt.Errorf("failed to remove role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func withDefaultRole(roles []models.UserRole) []models.UserRole {
	if len(roles) == 0 {
		return []models.UserRole{models.RoleCustomer}
	}
	return roles
}
