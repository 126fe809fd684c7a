package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/db/repository"
	"github.com/kitchenconnect/kitchen-service/internal/lifecycle"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/kitchenconnect/kitchen-service/internal/redisx"
)

func newActor(roles ...models.UserRole) Actor {
	return Actor{ID: uuid.New(), Roles: permissions.NewRoleSet(roles...)}
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uuid.UUID]*models.User{}}
}

func (f *fakeUsers) put(u models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = &u
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) List(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) Create(ctx context.Context, user models.User) (*models.User, error) {
	if _, err := f.GetByEmail(ctx, user.Email); err == nil {
		return nil, repository.ErrEmailExists
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	f.put(user)
	return &user, nil
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, user models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[user.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.FirstName, u.LastName, u.Address, u.PhoneNumber, u.AvatarURL =
		user.FirstName, user.LastName, user.Address, user.PhoneNumber, user.AvatarURL
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsBanned = banned
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) GetRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error) {
	u, err := f.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Roles, nil
}

func (f *fakeUsers) AddRole(ctx context.Context, userID uuid.UUID, role models.UserRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, r := range u.Roles {
		if r == role {
			return nil
		}
	}
	u.Roles = append(u.Roles, role)
	return nil
}

func (f *fakeUsers) RemoveRole(ctx context.Context, userID uuid.UUID, role models.UserRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for i, r := range u.Roles {
		if r == role {
			u.Roles = append(u.Roles[:i], u.Roles[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeOrders struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	history   []models.OrderStageChange
	lastList  models.OrderFilter
	completed []models.CompletedDelivery
	failID    uuid.UUID
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[uuid.UUID]*models.Order{}}
}

func (f *fakeOrders) put(o models.Order) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	f.orders[o.ID] = &o
	cp := o
	return &cp
}

func (f *fakeOrders) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = filter
	var out []models.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrders) ListAvailable(ctx context.Context) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.Stage == models.StageReady && o.DriverID == nil {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) Create(ctx context.Context, order models.Order) (*models.Order, error) {
	return f.put(order), nil
}

func (f *fakeOrders) UpdateStage(ctx context.Context, u repository.StageUpdate) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[u.OrderID]
	if !ok || o.Stage != u.From {
		return nil, repository.ErrStageConflict
	}
	o.Stage = u.To
	o.UpdatedAt = u.At
	if u.DeliveredAt != nil {
		o.DeliveredAt = u.DeliveredAt
	}
	if u.ClaimDriver != nil {
		o.DriverID = u.ClaimDriver
	}
	if u.DriverName != nil {
		o.DriverName = u.DriverName
	}
	f.history = append(f.history, models.OrderStageChange{
		ID:        uuid.New(),
		OrderID:   u.OrderID,
		FromStage: u.From,
		ToStage:   u.To,
		ChangedBy: u.ChangedBy,
		CreatedAt: u.At,
	})
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStageChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OrderStageChange
	for _, h := range f.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeOrders) UpdateLocation(ctx context.Context, id uuid.UUID, location string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.CurrentLocation = &location
	return nil
}

func (f *fakeOrders) ListUnarchivedDelivered(ctx context.Context, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.Stage == models.StageDelivered && o.ArchivedAt == nil && o.DriverID != nil {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) Archive(ctx context.Context, d models.CompletedDelivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.OrderID == f.failID {
		return repository.ErrNotFound
	}
	f.completed = append(f.completed, d)
	at := d.ArchivedAt
	f.orders[d.OrderID].ArchivedAt = &at
	return nil
}

func (f *fakeOrders) ListCompletedDeliveries(ctx context.Context, driverID uuid.UUID) ([]models.CompletedDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CompletedDelivery
	for _, d := range f.completed {
		if d.DriverID != nil && *d.DriverID == driverID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeOrders) Earnings(ctx context.Context, driverID uuid.UUID, dayStart, weekStart time.Time) (*models.EarningsSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := &models.EarningsSummary{}
	for _, d := range f.completed {
		if d.DriverID == nil || *d.DriverID != driverID {
			continue
		}
		sum.TotalDeliveries++
		if !d.DeliveredAt.Before(dayStart) {
			sum.Today += d.TotalEarned
		}
		if !d.DeliveredAt.Before(weekStart) {
			sum.Week += d.TotalEarned
		}
	}
	return sum, nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (f *fakeDispatcher) Dispatch(evt lifecycle.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeCache struct {
	entries map[uuid.UUID]redisx.StageEntry
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[uuid.UUID]redisx.StageEntry{}}
}

func (f *fakeCache) Get(ctx context.Context, id uuid.UUID) (redisx.StageEntry, bool, error) {
	e, ok := f.entries[id]
	return e, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, id uuid.UUID, e redisx.StageEntry) error {
	f.sets++
	f.entries[id] = e
	return nil
}

type fakeMessages struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*models.Conversation
	messages      []models.Message
	logs          []models.WebhookLog
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{conversations: map[uuid.UUID]*models.Conversation{}}
}

func (f *fakeMessages) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Conversation
	for _, c := range f.conversations {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeMessages) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeMessages) CreateConversation(ctx context.Context, c models.Conversation) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.conversations[c.ID] = &c
	cp := c
	return &cp, nil
}

func (f *fakeMessages) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) CreateMessage(ctx context.Context, m models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uuid.New()
	f.messages = append(f.messages, m)
	return &m, nil
}

func (f *fakeMessages) CreateWebhookLog(ctx context.Context, l models.WebhookLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return nil
}

type fakeDishes struct {
	mu     sync.Mutex
	dishes map[uuid.UUID]models.Dish
}

func newFakeDishes() *fakeDishes {
	return &fakeDishes{dishes: map[uuid.UUID]models.Dish{}}
}

func (f *fakeDishes) GetByID(ctx context.Context, id uuid.UUID) (*models.Dish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.dishes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (f *fakeDishes) List(ctx context.Context, filter models.DishFilter) ([]models.Dish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Dish{}
	for _, d := range f.dishes {
		if filter.ChefID != nil && d.ChefID != *filter.ChefID {
			continue
		}
		if filter.Category != "" && d.Category != filter.Category {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDishes) Create(ctx context.Context, d models.Dish) (*models.Dish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = uuid.New()
	f.dishes[d.ID] = d
	return &d, nil
}

func (f *fakeDishes) Update(ctx context.Context, d models.Dish) (*models.Dish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dishes[d.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	f.dishes[d.ID] = d
	return &d, nil
}

func (f *fakeDishes) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dishes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.dishes, id)
	return nil
}
