package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kitchenconnect/kitchen-service/internal/metrics"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const archiveBatch = 200

// ArchiveService moves delivered orders into completed deliveries and
// reports driver earnings
type ArchiveService struct {
	store   DeliveryStore
	tipRate float64
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time

	cron *cron.Cron
}

func NewArchiveService(store DeliveryStore, tipRate float64, m *metrics.Metrics, log zerolog.Logger) *ArchiveService {
	return &ArchiveService{
		store:   store,
		tipRate: tipRate,
		metrics: m,
		log:     log.With().Str("component", "archive").Logger(),
		now:     time.Now,
	}
}

// Tip is rate of total rounded to the nearest 0.5
func Tip(total, rate float64) float64 {
	return math.Round(total*rate*2) / 2
}

// Start runs the archival pass on schedule (standard cron spec or
// descriptors such as "@every 1m")
func (s *ArchiveService) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error().Err(err).Msg("archive run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid archive schedule %q: %w", schedule, err)
	}

	s.cron = c
	c.Start()
	s.log.Info().Str("schedule", schedule).Msg("archive job scheduled")
	return nil
}

// Stop waits for a running pass to finish
func (s *ArchiveService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce archives one batch of delivered orders and returns how many were
// archived. A failing order is logged and left for the next run.
func (s *ArchiveService) RunOnce(ctx context.Context) (int, error) {
	orders, err := s.store.ListUnarchivedDelivered(ctx, archiveBatch)
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, o := range orders {
		d := s.completed(o)
		if err := s.store.Archive(ctx, d); err != nil {
			s.log.Error().Err(err).Str("order_id", o.ID.String()).Msg("failed to archive order")
			continue
		}
		archived++
	}

	if archived > 0 {
		s.metrics.IncArchived(archived)
		s.log.Info().Int("count", archived).Msg("archived delivered orders")
	}
	return archived, nil
}

func (s *ArchiveService) completed(o models.Order) models.CompletedDelivery {
	delivered := o.UpdatedAt
	if o.DeliveredAt != nil {
		delivered = *o.DeliveredAt
	}
	tip := Tip(o.Total, s.tipRate)

	return models.CompletedDelivery{
		OrderID:      o.ID,
		DriverID:     o.DriverID,
		CustomerName: o.CustomerName,
		ChefName:     o.ChefName,
		PlacedAt:     o.PlacedAt,
		DeliveredAt:  delivered,
		DeliveryFee:  o.DeliveryFee,
		Tip:          tip,
		TotalEarned:  o.DeliveryFee + tip,
		ArchivedAt:   s.now(),
	}
}

// CompletedDeliveries lists the calling driver's archived deliveries
func (s *ArchiveService) CompletedDeliveries(ctx context.Context, actor Actor) ([]models.CompletedDelivery, error) {
	if !actor.Roles.Has(models.RoleDriver) {
		return nil, ErrForbidden
	}
	return s.store.ListCompletedDeliveries(ctx, actor.ID)
}

// Earnings sums the calling driver's earnings for today and the last 7 days
func (s *ArchiveService) Earnings(ctx context.Context, actor Actor) (*models.EarningsSummary, error) {
	if !actor.Roles.Has(models.RoleDriver) {
		return nil, ErrForbidden
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.AddDate(0, 0, -7)

	return s.store.Earnings(ctx, actor.ID, dayStart, weekStart)
}
