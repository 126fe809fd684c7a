package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStage is one of the ordered checkpoints in an order's fulfillment
type OrderStage string

const (
	StagePlaced     OrderStage = "placed"
	StageConfirmed  OrderStage = "confirmed"
	StagePreparing  OrderStage = "preparing"
	StageReady      OrderStage = "ready"
	StagePickedUp   OrderStage = "picked_up"
	StageInDelivery OrderStage = "in_delivery"
	StageDelivered  OrderStage = "delivered"
)

// Order represents a customer order tracked through its stages
type Order struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	Stage                 OrderStage `db:"stage" json:"stage"`
	CustomerID            uuid.UUID  `db:"customer_id" json:"customer_id"`
	ChefID                uuid.UUID  `db:"chef_id" json:"chef_id"`
	DriverID              *uuid.UUID `db:"driver_id" json:"driver_id,omitempty"`
	CustomerName          string     `db:"customer_name" json:"customer_name"`
	ChefName              string     `db:"chef_name" json:"chef_name"`
	DriverName            *string    `db:"driver_name" json:"driver_name,omitempty"`
	Address               string     `db:"address" json:"address"`
	CurrentLocation       *string    `db:"current_location" json:"current_location,omitempty"`
	EstimatedDeliveryTime *string    `db:"estimated_delivery_time" json:"estimated_delivery_time,omitempty"`
	Total                 float64    `db:"total" json:"total"`
	DeliveryFee           float64    `db:"delivery_fee" json:"delivery_fee"`
	PlacedAt              time.Time  `db:"placed_at" json:"placed_at"`
	DeliveredAt           *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	ArchivedAt            *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// OrderStageChange is one committed transition in an order's history
type OrderStageChange struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	OrderID   uuid.UUID  `db:"order_id" json:"order_id"`
	FromStage OrderStage `db:"from_stage" json:"from_stage"`
	ToStage   OrderStage `db:"to_stage" json:"to_stage"`
	ChangedBy uuid.UUID  `db:"changed_by" json:"changed_by"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// OrderFilter narrows order listings; nil fields are not applied
type OrderFilter struct {
	Stage      *OrderStage
	CustomerID *uuid.UUID
	ChefID     *uuid.UUID
	DriverID   *uuid.UUID
}

// CompletedDelivery is an archived delivered order with the driver's earnings
type CompletedDelivery struct {
	OrderID      uuid.UUID  `db:"order_id" json:"order_id"`
	DriverID     *uuid.UUID `db:"driver_id" json:"driver_id,omitempty"`
	CustomerName string     `db:"customer_name" json:"customer_name"`
	ChefName     string     `db:"chef_name" json:"chef_name"`
	PlacedAt     time.Time  `db:"placed_at" json:"placed_at"`
	DeliveredAt  time.Time  `db:"delivered_at" json:"delivered_at"`
	DeliveryFee  float64    `db:"delivery_fee" json:"delivery_fee"`
	Tip          float64    `db:"tip" json:"tip"`
	TotalEarned  float64    `db:"total_earned" json:"total_earned"`
	ArchivedAt   time.Time  `db:"archived_at" json:"archived_at"`
}

// EarningsSummary aggregates a driver's completed deliveries
type EarningsSummary struct {
	Today           float64 `json:"today"`
	Week            float64 `json:"week"`
	TotalDeliveries int     `json:"total_deliveries"`
}

// OrderRequest is used for order creation
type OrderRequest struct {
	ChefID                uuid.UUID `json:"chef_id" validate:"required"`
	ChefName              string    `json:"chef_name" validate:"required,max=200"`
	Address               string    `json:"address" validate:"required,max=255"`
	Total                 float64   `json:"total" validate:"gte=0"`
	DeliveryFee           float64   `json:"delivery_fee" validate:"gte=0"`
	EstimatedDeliveryTime *string   `json:"estimated_delivery_time" validate:"omitempty,max=64"`
}

// AdvanceRequest asks to move an order one stage forward. ExpectedStage is
// the stage the caller last observed.
type AdvanceRequest struct {
	ExpectedStage OrderStage `json:"expected_stage" validate:"required"`
	TargetStage   OrderStage `json:"target_stage" validate:"required"`
}

// LocationRequest updates the free-text location of an order in transit
type LocationRequest struct {
	Location string `json:"location" validate:"required,max=255"`
}
