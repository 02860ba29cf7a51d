package schedule

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		daysUntilDue int
		want         Status
	}{
		{-30, StatusOverdue},
		{-1, StatusOverdue},
		{0, StatusUrgent},
		{1, StatusAttention},
		{2, StatusAttention},
		{3, StatusAttention},
		{4, StatusOK},
		{90, StatusOK},
	}
	for _, tt := range tests {
		if got := Classify(tt.daysUntilDue); got != tt.want {
			t.Errorf("Classify(%d) = %q, want %q", tt.daysUntilDue, got, tt.want)
		}
	}
}
