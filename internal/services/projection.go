// Package services orchestrates the scheduling engine over stored
// records: loading a family's obligations and cards, building the
// upcoming-due projection, and fanning the result out to consumers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/amqp"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/schedule"
)

// ObligationStore is the read side the projection needs. Rows arrive
// already scoped to one family and filtered to active.
type ObligationStore interface {
	ListFamilies(ctx context.Context) ([]core.Family, error)
	ListActiveObligations(ctx context.Context, familyID string) ([]core.RecurringObligation, error)
	ListActiveCreditCards(ctx context.Context, familyID string) ([]core.CreditCardAccount, error)
}

// SnapshotPublisher pushes a finished projection to downstream
// consumers. *amqp.Client satisfies it.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, msg *amqp.ProjectionSnapshotMessage) error
}

// ProjectionService builds upcoming-due projections from stored records.
// The projection itself is never persisted: obligations and cards stay
// the source of truth and every call recomputes from them.
type ProjectionService struct {
	store       ObligationStore
	publisher   SnapshotPublisher
	daysAhead   int
	concurrency int
}

func NewProjectionService(store ObligationStore, publisher SnapshotPublisher, daysAhead, concurrency int) *ProjectionService {
	if daysAhead <= 0 {
		daysAhead = 30
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ProjectionService{
		store:       store,
		publisher:   publisher,
		daysAhead:   daysAhead,
		concurrency: concurrency,
	}
}

// BuildForFamily computes one family's projection for the given
// reference date.
func (s *ProjectionService) BuildForFamily(ctx context.Context, familyID string, reference time.Time) ([]schedule.UpcomingDue, error) {
	obligations, err := s.store.ListActiveObligations(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	cards, err := s.store.ListActiveCreditCards(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	return schedule.BuildUpcoming(s.daysAhead, obligations, cards, reference), nil
}

// ProcessAll rebuilds and publishes the projection for every family.
// Families are independent, so the fan-out runs them in parallel with a
// bounded group; a failing family is logged and skipped rather than
// aborting the rest. Returns the number of snapshots published.
func (s *ProjectionService) ProcessAll(ctx context.Context, reference time.Time) (int, error) {
	families, err := s.store.ListFamilies(ctx)
	if err != nil {
		return 0, fmt.Errorf("list families: %w", err)
	}

	slog.InfoContext(ctx, "Rebuilding projections",
		"families", len(families),
		"reference_date", reference.Format("2006-01-02"),
		"days_ahead", s.daysAhead)

	var (
		mu        sync.Mutex
		published int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, fam := range families {
		g.Go(func() error {
			dues, err := s.BuildForFamily(gctx, fam.ID, reference)
			if err != nil {
				slog.ErrorContext(gctx, "Projection build failed",
					"family_id", fam.ID,
					"error", err)
				return nil
			}

			if err := s.publish(gctx, fam.ID, reference, dues); err != nil {
				slog.ErrorContext(gctx, "Snapshot publish failed",
					"family_id", fam.ID,
					"error", err)
				return nil
			}

			mu.Lock()
			published++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return published, err
	}

	slog.InfoContext(ctx, "Projection rebuild complete",
		"families", len(families),
		"published", published)
	return published, nil
}

func (s *ProjectionService) publish(ctx context.Context, familyID string, reference time.Time, dues []schedule.UpcomingDue) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "No snapshot publisher configured, skipping publish", "family_id", familyID)
		return nil
	}
	return s.publisher.PublishSnapshot(ctx, amqp.NewProjectionSnapshotMessage(familyID, reference, dues))
}
