package schedule

import (
	"testing"
	"time"
)

func TestResolveCycle(t *testing.T) {
	// Card closes on the 25th, payment due on the 5th.
	const closingDay, dueDay = 25, 5

	tests := []struct {
		name             string
		reference        time.Time
		wantClosing      time.Time
		wantDue          time.Time
		wantDaysClosing  int
		wantDaysUntilDue int
		wantStatus       CycleStatus
	}{
		{
			name:             "statement still accumulating",
			reference:        date(2026, 3, 10),
			wantClosing:      date(2026, 3, 25),
			wantDue:          date(2026, 4, 5),
			wantDaysClosing:  15,
			wantDaysUntilDue: 26,
			wantStatus:       CycleClosingSoon,
		},
		{
			name:             "closed with payment well ahead",
			reference:        date(2026, 3, 26),
			wantClosing:      date(2026, 4, 25),
			wantDue:          date(2026, 4, 5),
			wantDaysClosing:  30,
			wantDaysUntilDue: 10,
			wantStatus:       CycleClosed,
		},
		{
			name:             "closed and payment imminent",
			reference:        date(2026, 4, 2),
			wantClosing:      date(2026, 4, 25),
			wantDue:          date(2026, 4, 5),
			wantDaysClosing:  23,
			wantDaysUntilDue: 3,
			wantStatus:       CycleDueSoon,
		},
		{
			name:             "due today",
			reference:        date(2026, 4, 5),
			wantClosing:      date(2026, 4, 25),
			wantDue:          date(2026, 4, 5),
			wantDaysClosing:  20,
			wantDaysUntilDue: 0,
			wantStatus:       CycleDueSoon,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCycle(closingDay, dueDay, tt.reference)
			if !got.ClosingDate.Equal(tt.wantClosing) {
				t.Errorf("ClosingDate = %v, want %v", got.ClosingDate, tt.wantClosing)
			}
			if !got.DueDate.Equal(tt.wantDue) {
				t.Errorf("DueDate = %v, want %v", got.DueDate, tt.wantDue)
			}
			if got.DaysUntilClosing != tt.wantDaysClosing {
				t.Errorf("DaysUntilClosing = %d, want %d", got.DaysUntilClosing, tt.wantDaysClosing)
			}
			if got.DaysUntilDue != tt.wantDaysUntilDue {
				t.Errorf("DaysUntilDue = %d, want %d", got.DaysUntilDue, tt.wantDaysUntilDue)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestResolveCycleClampsClosingDay(t *testing.T) {
	got := ResolveCycle(31, 10, date(2026, 2, 20))
	if !got.ClosingDate.Equal(date(2026, 2, 28)) {
		t.Errorf("ClosingDate = %v, want clamped 2026-02-28", got.ClosingDate)
	}
	if got.Status != CycleClosingSoon {
		t.Errorf("Status = %q, want %q", got.Status, CycleClosingSoon)
	}
}
