package repository

import (
	"github.com/jmoiron/sqlx"
)

// Factory provides access to all repositories
type Factory struct {
	User    *UserRepository
	Order   *OrderRepository
	Message *MessageRepository
	Dish    *DishRepository
}

// NewFactory creates a new repository factory
func NewFactory(db *sqlx.DB) *Factory {
	return &Factory{
		User:    NewUserRepository(db),
		Order:   NewOrderRepository(db),
		Message: NewMessageRepository(db),
		Dish:    NewDishRepository(db),
	}
}
