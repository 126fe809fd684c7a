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

const orderColumns = `id, stage, customer_id, chef_id, driver_id, customer_name, chef_name, driver_name,
		       address, current_location, estimated_delivery_time, total, delivery_fee,
		       placed_at, delivered_at, archived_at, created_at, updated_at`

// OrderRepository handles order data access
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// StageUpdate is a compare-and-swap stage write. The update only lands
// while the row is still at From.
type StageUpdate struct {
	OrderID     uuid.UUID
	From        models.OrderStage
	To          models.OrderStage
	ChangedBy   uuid.UUID
	At          time.Time
	DeliveredAt *time.Time
	// ClaimDriver assigns the driver in the same write (pickup)
	ClaimDriver *uuid.UUID
	DriverName  *string
}

// GetByID retrieves an order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`

	var order models.Order
	err := r.db.GetContext(ctx, &order, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

// List retrieves orders matching the filter, newest first
func (r *OrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Stage != nil {
		add("stage = $%d", *filter.Stage)
	}
	if filter.CustomerID != nil {
		add("customer_id = $%d", *filter.CustomerID)
	}
	if filter.ChefID != nil {
		add("chef_id = $%d", *filter.ChefID)
	}
	if filter.DriverID != nil {
		add("driver_id = $%d", *filter.DriverID)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\t\tORDER BY placed_at DESC LIMIT 100"

	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, nil
}

// ListAvailable retrieves ready orders no driver has claimed yet
func (r *OrderRepository) ListAvailable(ctx context.Context) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE stage = $1 AND driver_id IS NULL
		ORDER BY placed_at ASC
	`

	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, query, models.StageReady)
	if err != nil {
		return nil, fmt.Errorf("failed to list available orders: %w", err)
	}

	return orders, nil
}

// Create inserts a new order
func (r *OrderRepository) Create(ctx context.Context, order models.Order) (*models.Order, error) {
	query := `
		INSERT INTO orders (stage, customer_id, chef_id, customer_name, chef_name, address,
		                    estimated_delivery_time, total, delivery_fee, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + orderColumns

	var created models.Order
	err := r.db.GetContext(
		ctx,
		&created,
		query,
		order.Stage,
		order.CustomerID,
		order.ChefID,
		order.CustomerName,
		order.ChefName,
		order.Address,
		order.EstimatedDeliveryTime,
		order.Total,
		order.DeliveryFee,
		order.PlacedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return &created, nil
}

// UpdateStage commits a stage change and its history row atomically.
// ErrStageConflict is returned when the order is no longer at u.From.
func (r *OrderRepository) UpdateStage(ctx context.Context, u StageUpdate) (*models.Order, error) {
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
		UPDATE orders
		SET stage = $1, updated_at = $2,
		    delivered_at = COALESCE($3, delivered_at),
		    driver_id = COALESCE($4, driver_id),
		    driver_name = COALESCE($5, driver_name)
		WHERE id = $6 AND stage = $7
		RETURNING ` + orderColumns

	var updated models.Order
	err = tx.GetContext(
		ctx,
		&updated,
		query,
		u.To,
		u.At,
		u.DeliveredAt,
		u.ClaimDriver,
		u.DriverName,
		u.OrderID,
		u.From,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrStageConflict
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order stage: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO order_stage_history (order_id, from_stage, to_stage, changed_by, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.OrderID,
		u.From,
		u.To,
		u.ChangedBy,
		u.At,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record stage history: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &updated, nil
}

// History returns the committed transitions of an order, oldest first
func (r *OrderRepository) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStageChange, error) {
	query := `
		SELECT id, order_id, from_stage, to_stage, changed_by, created_at
		FROM order_stage_history
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	var changes []models.OrderStageChange
	err := r.db.SelectContext(ctx, &changes, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage history: %w", err)
	}

	return changes, nil
}

// UpdateLocation sets the current location of an order in transit
func (r *OrderRepository) UpdateLocation(ctx context.Context, id uuid.UUID, location string) error {
	query := `
		UPDATE orders
		SET current_location = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, location, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update order location: %w", err)
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

// ListUnarchivedDelivered returns delivered orders not yet moved into
// completed deliveries
func (r *OrderRepository) ListUnarchivedDelivered(ctx context.Context, limit int) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE stage = $1 AND archived_at IS NULL AND driver_id IS NOT NULL
		ORDER BY delivered_at ASC
		LIMIT $2
	`

	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, query, models.StageDelivered, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivered orders: %w", err)
	}

	return orders, nil
}

// Archive records a completed delivery and stamps the order as archived
func (r *OrderRepository) Archive(ctx context.Context, d models.CompletedDelivery) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO completed_deliveries
		 (order_id, driver_id, customer_name, chef_name, placed_at, delivered_at,
		  delivery_fee, tip, total_earned, archived_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (order_id) DO NOTHING`,
		d.OrderID,
		d.DriverID,
		d.CustomerName,
		d.ChefName,
		d.PlacedAt,
		d.DeliveredAt,
		d.DeliveryFee,
		d.Tip,
		d.TotalEarned,
		d.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert completed delivery: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE orders SET archived_at = $1 WHERE id = $2 AND archived_at IS NULL`,
		d.ArchivedAt,
		d.OrderID,
	)
	if err != nil {
		return fmt.Errorf("failed to stamp archived order: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListCompletedDeliveries returns a driver's archived deliveries, newest first
func (r *OrderRepository) ListCompletedDeliveries(ctx context.Context, driverID uuid.UUID) ([]models.CompletedDelivery, error) {
	query := `
		SELECT order_id, driver_id, customer_name, chef_name, placed_at, delivered_at,
		       delivery_fee, tip, total_earned, archived_at
		FROM completed_deliveries
		WHERE driver_id = $1
		ORDER BY delivered_at DESC
		LIMIT 100
	`

	var deliveries []models.CompletedDelivery
	err := r.db.SelectContext(ctx, &deliveries, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed deliveries: %w", err)
	}

	return deliveries, nil
}

// Earnings sums a driver's earnings since dayStart and weekStart
func (r *OrderRepository) Earnings(ctx context.Context, driverID uuid.UUID, dayStart, weekStart time.Time) (*models.EarningsSummary, error) {
	query := `
		SELECT
		    COALESCE(SUM(total_earned) FILTER (WHERE delivered_at >= $2), 0) AS today,
		    COALESCE(SUM(total_earned) FILTER (WHERE delivered_at >= $3), 0) AS week,
		    COUNT(*) AS total_deliveries
		FROM completed_deliveries
		WHERE driver_id = $1
	`

	var row struct {
		Today           float64 `db:"today"`
		Week            float64 `db:"week"`
		TotalDeliveries int     `db:"total_deliveries"`
	}
	err := r.db.GetContext(ctx, &row, query, driverID, dayStart, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to sum earnings: %w", err)
	}

	return &models.EarningsSummary{
		Today:           row.Today,
		Week:            row.Week,
		TotalDeliveries: row.TotalDeliveries,
	}, nil
}
