package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/amqp"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"
)

type fakeStore struct {
	families    []core.Family
	obligations map[string][]core.RecurringObligation
	cards       map[string][]core.CreditCardAccount
	failFamily  string
}

func (f *fakeStore) ListFamilies(ctx context.Context) ([]core.Family, error) {
	return f.families, nil
}

func (f *fakeStore) ListActiveObligations(ctx context.Context, familyID string) ([]core.RecurringObligation, error) {
	if familyID == f.failFamily {
		return nil, errors.New("storage unavailable")
	}
	return f.obligations[familyID], nil
}

func (f *fakeStore) ListActiveCreditCards(ctx context.Context, familyID string) ([]core.CreditCardAccount, error) {
	return f.cards[familyID], nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []*amqp.ProjectionSnapshotMessage
}

func (f *fakePublisher) PublishSnapshot(ctx context.Context, msg *amqp.ProjectionSnapshotMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func testObligation(id, familyID string, day int) core.RecurringObligation {
	return core.RecurringObligation{
		ID:         id,
		FamilyID:   familyID,
		Name:       "obligation " + id,
		Direction:  core.DirectionExpense,
		Amount:     core.Money{Cents: 10000},
		DayOfMonth: day,
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
	}
}

func TestBuildForFamily(t *testing.T) {
	store := &fakeStore{
		obligations: map[string][]core.RecurringObligation{
			"fam-1": {testObligation("ob-1", "fam-1", 15)},
		},
		cards: map[string][]core.CreditCardAccount{
			"fam-1": {{ID: "card-1", FamilyID: "fam-1", Name: "Visa", ClosingDay: 5, DueDay: 12, IsActive: true}},
		},
	}
	svc := NewProjectionService(store, nil, 30, 2)

	got, err := svc.BuildForFamily(context.Background(), "fam-1", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].SourceID != "card-1" || got[1].SourceID != "ob-1" {
		t.Errorf("order = %s, %s", got[0].SourceID, got[1].SourceID)
	}
}

func TestProcessAllPublishesPerFamily(t *testing.T) {
	store := &fakeStore{
		families: []core.Family{{ID: "fam-1"}, {ID: "fam-2"}, {ID: "fam-3"}},
		obligations: map[string][]core.RecurringObligation{
			"fam-1": {testObligation("ob-1", "fam-1", 15)},
			"fam-2": {testObligation("ob-2", "fam-2", 20)},
			"fam-3": {testObligation("ob-3", "fam-3", 25)},
		},
	}
	pub := &fakePublisher{}
	svc := NewProjectionService(store, pub, 30, 2)

	published, err := svc.ProcessAll(context.Background(), time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if published != 3 || len(pub.messages) != 3 {
		t.Fatalf("published = %d, messages = %d, want 3", published, len(pub.messages))
	}

	seen := make(map[string]bool)
	for _, msg := range pub.messages {
		seen[msg.FamilyID] = true
		if len(msg.Items) != 1 {
			t.Errorf("family %s snapshot has %d items, want 1", msg.FamilyID, len(msg.Items))
		}
	}
	if len(seen) != 3 {
		t.Errorf("families seen = %v", seen)
	}
}

func TestProcessAllSkipsFailingFamily(t *testing.T) {
	store := &fakeStore{
		families: []core.Family{{ID: "fam-ok"}, {ID: "fam-broken"}},
		obligations: map[string][]core.RecurringObligation{
			"fam-ok": {testObligation("ob-1", "fam-ok", 15)},
		},
		failFamily: "fam-broken",
	}
	pub := &fakePublisher{}
	svc := NewProjectionService(store, pub, 30, 2)

	published, err := svc.ProcessAll(context.Background(), time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if published != 1 {
		t.Errorf("published = %d, want 1", published)
	}
	if len(pub.messages) != 1 || pub.messages[0].FamilyID != "fam-ok" {
		t.Errorf("messages = %+v", pub.messages)
	}
}
