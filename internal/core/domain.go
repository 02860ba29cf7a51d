package core

import (
	"errors"
	"strings"
	"time"
)

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

const (
	// CashBasis counts an amount when the money actually moves.
	CashBasis AccountingRegime = "cash"
	// AccrualBasis counts an amount when the economic event occurs.
	AccrualBasis AccountingRegime = "accrual"
)

const (
	CashDateField  DateField = "cash_date"
	EventDateField DateField = "event_date"
)

type (
	Direction        string
	AccountingRegime string

	// DateField selects which transaction date governs an aggregation.
	DateField string

	// Family is the scoping unit for every record in the system.
	// Regime is set once by an administrator and changes rarely.
	Family struct {
		ID            string
		Name          string
		Regime        AccountingRegime
		MonthlyIncome Money
		IFPercentage  float64 // discretionary margin, percent of monthly income
	}

	// RecurringObligation is a bill or income event expected on a fixed
	// day of the month. Read-only to the scheduling engine.
	RecurringObligation struct {
		ID              string
		FamilyID        string
		Name            string
		Direction       Direction
		Amount          Money
		DayOfMonth      int
		StartDate       time.Time
		EndDate         time.Time // zero when open-ended
		IsActive        bool
		LinkedAccountID string
		LinkedCardID    string
	}

	// CreditCardAccount carries the closing/due day pair that defines the
	// card's billing cycle. Read-only to the scheduling engine.
	CreditCardAccount struct {
		ID          string
		FamilyID    string
		Name        string
		ClosingDay  int
		DueDay      int
		CreditLimit Money // zero when no limit is configured
		IsActive    bool
	}

	// InstallmentGroup is a single purchase split into N scheduled
	// payments whose values sum exactly to the purchase amount.
	InstallmentGroup struct {
		ID                  string
		FamilyID            string
		Description         string
		TotalAmount         Money
		InstallmentsTotal   int
		InstallmentValue    Money // base value; the last installment absorbs rounding
		FirstDueDate        time.Time
		ParentTransactionID string
	}

	// Transaction is a caller-supplied row for regime-sensitive
	// aggregation. CashDate and EventDate commonly differ for card
	// purchases and cheques.
	Transaction struct {
		ID        string
		FamilyID  string
		Name      string
		Direction Direction
		Amount    Money
		Category  string
		CashDate  time.Time
		EventDate time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidDay       = errors.New("invalid day of month")
	ErrInvalidRegime    = errors.New("invalid accounting regime")
	ErrEmptyName        = errors.New("empty name")
)

func (d Direction) Validate() error {
	switch d {
	case DirectionIncome, DirectionExpense:
		return nil
	default:
		return ErrInvalidDirection
	}
}

func (r AccountingRegime) Validate() error {
	switch r {
	case CashBasis, AccrualBasis:
		return nil
	default:
		return ErrInvalidRegime
	}
}

// Of returns the transaction date the field selects. Consumers must use
// this accessor instead of reading CashDate or EventDate directly, so a
// family's regime resolves to one field everywhere.
func (f DateField) Of(t Transaction) time.Time {
	if f == EventDateField {
		return t.EventDate
	}
	return t.CashDate
}

func (o RecurringObligation) Validate() error {
	if len(strings.TrimSpace(o.Name)) == 0 {
		return ErrEmptyName
	}
	if err := o.Direction.Validate(); err != nil {
		return err
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if o.DayOfMonth < 1 || o.DayOfMonth > 31 {
		return ErrInvalidDay
	}
	if o.StartDate.IsZero() {
		return errors.New("start date cannot be zero")
	}
	if !o.EndDate.IsZero() && o.EndDate.Before(o.StartDate) {
		return errors.New("end date must not precede start date")
	}
	return nil
}

func (c CreditCardAccount) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return ErrInvalidDay
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDay
	}
	return nil
}
