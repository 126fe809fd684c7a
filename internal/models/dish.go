package models

import (
	"time"

	"github.com/google/uuid"
)

// Dish is a catalog entry offered by a chef's kitchen
type Dish struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ChefID      uuid.UUID `db:"chef_id" json:"chef_id"`
	ChefName    string    `db:"chef_name" json:"chef_name"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Category    string    `db:"category" json:"category"`
	Price       float64   `db:"price" json:"price"`
	PrepMinutes int       `db:"prep_minutes" json:"prep_minutes"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`
	Available   bool      `db:"available" json:"available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DishRequest is used for dish creation/update
type DishRequest struct {
	// ChefID is only honoured for callers creating on a chef's behalf
	ChefID      *uuid.UUID `json:"chef_id"`
	Name        string     `json:"name" validate:"required,min=1,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	Category    string     `json:"category" validate:"required,min=1,max=50"`
	Price       float64    `json:"price" validate:"gte=0"`
	PrepMinutes int        `json:"prep_minutes" validate:"gte=0,lte=600"`
	ImageURL    *string    `json:"image_url" validate:"omitempty,url"`
	Available   bool       `json:"available"`
}

// DishFilter narrows catalog listings; zero fields are not applied
type DishFilter struct {
	ChefID        *uuid.UUID
	Category      string
	Search        string
	AvailableOnly bool
}
