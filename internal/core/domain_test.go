package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecurringObligationValidate(t *testing.T) {
	valid := RecurringObligation{
		Name:       "Rent",
		Direction:  DirectionExpense,
		Amount:     Money{Cents: 150000},
		DayOfMonth: 5,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid obligation should validate, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*RecurringObligation)
	}{
		{"empty name", func(o *RecurringObligation) { o.Name = "  " }},
		{"bad direction", func(o *RecurringObligation) { o.Direction = "transfer" }},
		{"zero amount", func(o *RecurringObligation) { o.Amount = Money{} }},
		{"day zero", func(o *RecurringObligation) { o.DayOfMonth = 0 }},
		{"day 32", func(o *RecurringObligation) { o.DayOfMonth = 32 }},
		{"zero start", func(o *RecurringObligation) { o.StartDate = time.Time{} }},
		{"end before start", func(o *RecurringObligation) {
			o.EndDate = o.StartDate.AddDate(0, 0, -1)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			if err := o.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDateFieldOf(t *testing.T) {
	tx := Transaction{
		CashDate:  time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		EventDate: time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC),
	}
	if got := CashDateField.Of(tx); !got.Equal(tx.CashDate) {
		t.Errorf("CashDateField.Of = %v, want %v", got, tx.CashDate)
	}
	if got := EventDateField.Of(tx); !got.Equal(tx.EventDate) {
		t.Errorf("EventDateField.Of = %v, want %v", got, tx.EventDate)
	}
}

func TestAmountStates(t *testing.T) {
	known := AmountKnown(2500)
	if v, ok := known.Known(); !ok || v != 2500 {
		t.Errorf("AmountKnown(2500).Known() = %d, %v", v, ok)
	}
	if known.IsPending() {
		t.Error("known amount must not be pending")
	}

	pending := AmountPending()
	if _, ok := pending.Known(); ok {
		t.Error("pending amount must not report a value")
	}

	// Known zero and pending must survive a JSON round trip as distinct states.
	for _, a := range []Amount{AmountKnown(0), AmountPending()} {
		data, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back Amount
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if back.IsPending() != a.IsPending() {
			t.Errorf("round trip changed pending state: %s", data)
		}
	}
}
