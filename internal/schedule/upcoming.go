package schedule

import (
	"sort"
	"time"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"
)

const (
	TypeFixed      ObligationType = "fixed"
	TypeCreditCard ObligationType = "creditCard"
	TypeFinancing  ObligationType = "financing"
)

const (
	SourceRecurring  DueSource = "recurring"
	SourceCreditCard DueSource = "creditCard"
)

type (
	ObligationType string
	DueSource      string

	// UpcomingDue is an ephemeral projection row. It is recomputed on
	// every call and never persisted as authoritative state; the
	// obligation or card record remains the source of truth.
	UpcomingDue struct {
		ID           string         `json:"id"`
		Name         string         `json:"name"`
		Type         ObligationType `json:"type"`
		Amount       core.Amount    `json:"amount"`
		DueDate      time.Time      `json:"dueDate"`
		DaysUntilDue int            `json:"daysUntilDue"`
		Status       Status         `json:"status"`
		Source       DueSource      `json:"source"`
		SourceID     string         `json:"sourceId"`
	}
)

// BuildUpcoming projects a family's recurring expense obligations and
// credit cards onto the next daysAhead days, sorted by proximity.
//
// Records with a day of month outside 1..31 are incomplete configuration,
// not computation failures: they are skipped silently. Card amounts are
// always pending here because the invoice total depends on transactions
// this engine does not see.
//
// Ordering is by daysUntilDue ascending; ties break by SourceID
// ascending, then recurring entries before cards, so the result is
// reproducible regardless of how the inputs were fetched.
func BuildUpcoming(daysAhead int, obligations []core.RecurringObligation, cards []core.CreditCardAccount, reference time.Time) []UpcomingDue {
	ref := midnightUTC(reference)
	horizon := ref.AddDate(0, 0, daysAhead)

	dues := make([]UpcomingDue, 0, len(obligations)+len(cards))

	for _, o := range obligations {
		if !o.IsActive || o.Direction != core.DirectionExpense {
			continue
		}
		if o.DayOfMonth < 1 || o.DayOfMonth > 31 {
			continue
		}
		dueDate := NextOccurrence(o.DayOfMonth, ref)
		if dueDate.After(horizon) {
			continue
		}
		if !o.StartDate.IsZero() && dueDate.Before(midnightUTC(o.StartDate)) {
			continue
		}
		if !o.EndDate.IsZero() && dueDate.After(midnightUTC(o.EndDate)) {
			continue
		}
		days := DaysBetween(ref, dueDate)
		dues = append(dues, UpcomingDue{
			ID:           o.ID,
			Name:         o.Name,
			Type:         TypeFixed,
			Amount:       core.AmountKnown(o.Amount.Cents),
			DueDate:      dueDate,
			DaysUntilDue: days,
			Status:       Classify(days),
			Source:       SourceRecurring,
			SourceID:     o.ID,
		})
	}

	for _, c := range cards {
		if !c.IsActive {
			continue
		}
		if c.DueDay < 1 || c.DueDay > 31 {
			continue
		}
		dueDate := NextOccurrence(c.DueDay, ref)
		if dueDate.After(horizon) {
			continue
		}
		days := DaysBetween(ref, dueDate)
		dues = append(dues, UpcomingDue{
			ID:           c.ID,
			Name:         c.Name,
			Type:         TypeCreditCard,
			Amount:       core.AmountPending(),
			DueDate:      dueDate,
			DaysUntilDue: days,
			Status:       Classify(days),
			Source:       SourceCreditCard,
			SourceID:     c.ID,
		})
	}

	sort.Slice(dues, func(i, j int) bool {
		if dues[i].DaysUntilDue != dues[j].DaysUntilDue {
			return dues[i].DaysUntilDue < dues[j].DaysUntilDue
		}
		if dues[i].SourceID != dues[j].SourceID {
			return dues[i].SourceID < dues[j].SourceID
		}
		return dues[i].Source == SourceRecurring && dues[j].Source == SourceCreditCard
	})
	return dues
}
