package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kitchenconnect/kitchen-service/internal/models"
)

const dishColumns = `id, chef_id, chef_name, name, description, category, price, prep_minutes,
		       image_url, available, created_at, updated_at`

// DishRepository handles dish catalog data access
type DishRepository struct {
	db *sqlx.DB
}

// NewDishRepository creates a new dish repository
func NewDishRepository(db *sqlx.DB) *DishRepository {
	return &DishRepository{db: db}
}

// GetByID retrieves a dish by ID
func (r *DishRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dish, error) {
	query := `
		SELECT ` + dishColumns + `
		FROM dishes
		WHERE id = $1
	`

	var dish models.Dish
	err := r.db.GetContext(ctx, &dish, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dish: %w", err)
	}

	return &dish, nil
}

// List retrieves dishes matching the filter, ordered by name
func (r *DishRepository) List(ctx context.Context, filter models.DishFilter) ([]models.Dish, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ChefID != nil {
		add("chef_id = $%d", *filter.ChefID)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Search != "" {
		add("name ILIKE $%d", "%"+escapeLike(filter.Search)+"%")
	}
	if filter.AvailableOnly {
		conds = append(conds, "available")
	}

	query := `SELECT ` + dishColumns + ` FROM dishes`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	dishes := []models.Dish{}
	if err := r.db.SelectContext(ctx, &dishes, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}

	return dishes, nil
}

// Create inserts a dish
func (r *DishRepository) Create(ctx context.Context, dish models.Dish) (*models.Dish, error) {
	query := `
		INSERT INTO dishes (chef_id, chef_name, name, description, category, price, prep_minutes, image_url, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + dishColumns

	var created models.Dish
	err := r.db.GetContext(
		ctx,
		&created,
		query,
		dish.ChefID,
		dish.ChefName,
		dish.Name,
		dish.Description,
		dish.Category,
		dish.Price,
		dish.PrepMinutes,
		dish.ImageURL,
		dish.Available,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dish: %w", err)
	}

	return &created, nil
}

// Update rewrites a dish's editable fields
func (r *DishRepository) Update(ctx context.Context, dish models.Dish) (*models.Dish, error) {
	query := `
		UPDATE dishes
		SET name = $1, description = $2, category = $3, price = $4, prep_minutes = $5,
		    image_url = $6, available = $7, updated_at = $8
		WHERE id = $9
		RETURNING ` + dishColumns

	var updated models.Dish
	err := r.db.GetContext(
		ctx,
		&updated,
		query,
		dish.Name,
		dish.Description,
		dish.Category,
		dish.Price,
		dish.PrepMinutes,
		dish.ImageURL,
		dish.Available,
		time.Now(),
		dish.ID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update dish: %w", err)
	}

	return &updated, nil
}

// Delete removes a dish
func (r *DishRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM dishes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dish: %w", err)
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

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
