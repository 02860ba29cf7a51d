package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"0.99", 99, false},
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{"", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"0", 0, true},
		{"abc", 0, true},
		{"1.2.3", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDecimalToCents(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDecimalToCents(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Errorf("positive money should validate, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Error("zero money should not validate")
	}
	if err := (Money{Cents: -100}).Validate(); err == nil {
		t.Error("negative money should not validate")
	}
}
