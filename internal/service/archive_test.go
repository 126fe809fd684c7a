package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/metrics"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func TestTipRoundsToHalf(t *testing.T) {
	tests := []struct {
		total, rate, want float64
	}{
		{42, 0.10, 4},
		{47, 0.10, 4.5},
		{23, 0.10, 2.5},
		{0, 0.10, 0},
		{100, 0.15, 15},
	}
	for _, tt := range tests {
		if got := Tip(tt.total, tt.rate); got != tt.want {
			t.Fatalf("Tip(%v, %v) = %v, want %v", tt.total, tt.rate, got, tt.want)
		}
	}
}

func TestRunOnceArchivesDeliveredOrders(t *testing.T) {
	orders := newFakeOrders()
	driver := uuid.New()
	delivered := time.Now().Add(-time.Hour)
	ok := orders.put(models.Order{Stage: models.StageDelivered, DriverID: &driver, Total: 47, DeliveryFee: 5, DeliveredAt: &delivered})
	failing := orders.put(models.Order{Stage: models.StageDelivered, DriverID: &driver, Total: 10, DeliveryFee: 5, DeliveredAt: &delivered})
	orders.put(models.Order{Stage: models.StageInDelivery, DriverID: &driver})
	orders.failID = failing.ID

	svc := NewArchiveService(orders, 0.10, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	n, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || len(orders.completed) != 1 {
		t.Fatalf("expected 1 archived delivery, got %d", n)
	}

	d := orders.completed[0]
	if d.OrderID != ok.ID || d.Tip != 4.5 || d.TotalEarned != 9.5 || !d.DeliveredAt.Equal(delivered) {
		t.Fatalf("unexpected completed delivery %+v", d)
	}

	// archived orders are not picked up again
	orders.failID = uuid.Nil
	n, _ = svc.RunOnce(context.Background())
	if n != 1 {
		t.Fatalf("expected only the previously failed order, got %d", n)
	}
}

func TestEarningsWindows(t *testing.T) {
	orders := newFakeOrders()
	svc := NewArchiveService(orders, 0.10, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	driver := newActor(models.RoleDriver)
	orders.completed = []models.CompletedDelivery{
		{DriverID: &driver.ID, DeliveredAt: now.Add(-time.Hour), TotalEarned: 10},
		{DriverID: &driver.ID, DeliveredAt: now.AddDate(0, 0, -3), TotalEarned: 7},
		{DriverID: &driver.ID, DeliveredAt: now.AddDate(0, 0, -10), TotalEarned: 100},
	}

	sum, err := svc.Earnings(context.Background(), driver)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Today != 10 || sum.Week != 17 || sum.TotalDeliveries != 3 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	if _, err := svc.Earnings(context.Background(), newActor(models.RoleChef)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc := NewArchiveService(newFakeOrders(), 0.10, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	if err := svc.Start(context.Background(), "every now and then"); err == nil {
		t.Fatal("expected schedule error")
	}
	svc.Stop()
}
