package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/models"
)

var dishColumnNames = []string{
	"id", "chef_id", "chef_name", "name", "description", "category", "price", "prep_minutes",
	"image_url", "available", "created_at", "updated_at",
}

func dishRows(id, chefID uuid.UUID, name string) *sqlmock.Rows {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(dishColumnNames).AddRow(
		id.String(), chefID.String(), "Chef Bo", name, nil, "Italian", 18.5, 25,
		nil, true, now, now,
	)
}

func TestDishListBuildsFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDishRepository(db)
	chef := uuid.New()

	mock.ExpectQuery(`FROM dishes WHERE chef_id = \$1 AND category = \$2 AND name ILIKE \$3 AND available ORDER BY name`).
		WithArgs(chef, "Italian", `%50\%%`).
		WillReturnRows(dishRows(uuid.New(), chef, "Lasagne"))

	dishes, err := repo.List(context.Background(), models.DishFilter{
		ChefID:        &chef,
		Category:      "Italian",
		Search:        "50%",
		AvailableOnly: true,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dishes) != 1 || dishes[0].Name != "Lasagne" {
		t.Fatalf("unexpected dishes: %+v", dishes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDishListUnfilteredReturnsEmptySlice(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDishRepository(db)

	mock.ExpectQuery(`FROM dishes ORDER BY name`).
		WillReturnRows(sqlmock.NewRows(dishColumnNames))

	dishes, err := repo.List(context.Background(), models.DishFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if dishes == nil || len(dishes) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", dishes)
	}
}

func TestDishCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDishRepository(db)
	id, chef := uuid.New(), uuid.New()

	mock.ExpectQuery("INSERT INTO dishes").
		WithArgs(chef, "Chef Bo", "Ramen", nil, "Japanese", 16.0, 30, nil, true).
		WillReturnRows(dishRows(id, chef, "Ramen"))

	created, err := repo.Create(context.Background(), models.Dish{
		ChefID:      chef,
		ChefName:    "Chef Bo",
		Name:        "Ramen",
		Category:    "Japanese",
		Price:       16,
		PrepMinutes: 30,
		Available:   true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != id {
		t.Fatalf("expected id %s, got %s", id, created.ID)
	}
}

func TestDishUpdateMissingIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDishRepository(db)
	id := uuid.New()

	mock.ExpectQuery("UPDATE dishes").
		WillReturnRows(sqlmock.NewRows(dishColumnNames))

	_, err := repo.Update(context.Background(), models.Dish{ID: id, Name: "x", Category: "y"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDishDeleteMissingIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDishRepository(db)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM dishes").WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
