package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/db/repository"
	"github.com/kitchenconnect/kitchen-service/internal/lifecycle"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/redisx"
)

// UserStore is the account persistence used by AuthService
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user models.User) (*models.User, error)
	UpdateProfile(ctx context.Context, user models.User) (*models.User, error)
	SetBanned(ctx context.Context, id uuid.UUID, banned bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error)
	AddRole(ctx context.Context, userID uuid.UUID, role models.UserRole) error
	RemoveRole(ctx context.Context, userID uuid.UUID, role models.UserRole) error
}

// OrderStore is the order persistence used by OrderService
type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	ListAvailable(ctx context.Context) ([]models.Order, error)
	Create(ctx context.Context, order models.Order) (*models.Order, error)
	UpdateStage(ctx context.Context, u repository.StageUpdate) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStageChange, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, location string) error
}

// DeliveryStore is the archival persistence used by ArchiveService
type DeliveryStore interface {
	ListUnarchivedDelivered(ctx context.Context, limit int) ([]models.Order, error)
	Archive(ctx context.Context, d models.CompletedDelivery) error
	ListCompletedDeliveries(ctx context.Context, driverID uuid.UUID) ([]models.CompletedDelivery, error)
	Earnings(ctx context.Context, driverID uuid.UUID, dayStart, weekStart time.Time) (*models.EarningsSummary, error)
}

// MessageStore is the messaging persistence used by MessagingService
type MessageStore interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	CreateConversation(ctx context.Context, c models.Conversation) (*models.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	CreateMessage(ctx context.Context, m models.Message) (*models.Message, error)
	CreateWebhookLog(ctx context.Context, l models.WebhookLog) error
}

// DishStore is the catalog persistence used by DishService
type DishStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dish, error)
	List(ctx context.Context, filter models.DishFilter) ([]models.Dish, error)
	Create(ctx context.Context, dish models.Dish) (*models.Dish, error)
	Update(ctx context.Context, dish models.Dish) (*models.Dish, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// StageCache is the read-through stage hint kept in Redis
type StageCache interface {
	Get(ctx context.Context, orderID uuid.UUID) (redisx.StageEntry, bool, error)
	Set(ctx context.Context, orderID uuid.UUID, e redisx.StageEntry) error
}

// Deduper drops redelivered inbound webhooks
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// EventDispatcher fans committed stage events out to notifiers
type EventDispatcher interface {
	Dispatch(evt lifecycle.Event)
}

var (
	_ UserStore       = (*repository.UserRepository)(nil)
	_ OrderStore      = (*repository.OrderRepository)(nil)
	_ DeliveryStore   = (*repository.OrderRepository)(nil)
	_ MessageStore    = (*repository.MessageRepository)(nil)
	_ DishStore       = (*repository.DishRepository)(nil)
	_ StageCache      = (*redisx.StageCache)(nil)
	_ Deduper         = (*redisx.Deduper)(nil)
	_ EventDispatcher = (*lifecycle.Dispatcher)(nil)
)
