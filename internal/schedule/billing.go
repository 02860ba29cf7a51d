package schedule

import "time"

const (
	// CycleClosingSoon: the statement is still accumulating charges.
	CycleClosingSoon CycleStatus = "closing_soon"
	// CycleClosed: the statement amount is fixed, payment pending.
	CycleClosed CycleStatus = "closed"
	// CycleDueSoon: statement closed and payment is imminent.
	CycleDueSoon CycleStatus = "due_soon"
)

type CycleStatus string

// CardCycle describes where a credit card sits in its billing cycle
// relative to a reference date.
type CardCycle struct {
	ClosingDate      time.Time
	DueDate          time.Time
	DaysUntilClosing int
	DaysUntilDue     int
	Status           CycleStatus
}

// ResolveCycle computes the next closing and due dates for a card and
// classifies the cycle state. When the next due date precedes the next
// closing date the current statement has already closed: charges made
// now belong to the following invoice while the closed one awaits
// payment.
func ResolveCycle(closingDay, dueDay int, reference time.Time) CardCycle {
	closing := NextOccurrence(closingDay, reference)
	due := NextOccurrence(dueDay, reference)

	cycle := CardCycle{
		ClosingDate:      closing,
		DueDate:          due,
		DaysUntilClosing: DaysBetween(reference, closing),
		DaysUntilDue:     DaysBetween(reference, due),
	}

	if due.Before(closing) {
		if cycle.DaysUntilDue <= 3 {
			cycle.Status = CycleDueSoon
		} else {
			cycle.Status = CycleClosed
		}
		return cycle
	}
	cycle.Status = CycleClosingSoon
	return cycle
}
