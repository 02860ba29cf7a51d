package budget

import (
	"testing"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"
)

func subs(amounts ...int64) []SubcategoryAmount {
	out := make([]SubcategoryAmount, len(amounts))
	for i, a := range amounts {
		out[i] = SubcategoryAmount{
			SubcategoryID: string(rune('a' + i)),
			Amount:        core.Money{Cents: a},
		}
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		amounts  []int64
		wantOK   bool
		wantDiff int64
		wantKind ValidationKind
	}{
		{"exact match", 100000, []int64{40000, 60000}, true, 0, KindOK},
		{"one cent over within tolerance", 100000, []int64{40000, 60001}, true, 1, KindOK},
		{"one cent under within tolerance", 100000, []int64{40000, 59999}, true, -1, KindOK},
		{"over", 100000, []int64{40000, 65000}, false, 5000, KindOver},
		{"under", 100000, []int64{40000, 50000}, false, -10000, KindUnder},
		{"no subcategories under full total", 100000, nil, false, -100000, KindUnder},
		{"empty against zero", 0, nil, true, 0, KindOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(core.Money{Cents: tt.total}, subs(tt.amounts...))
			if got.IsValid != tt.wantOK || got.Difference != tt.wantDiff || got.Kind != tt.wantKind {
				t.Errorf("Validate = {%v %d %q}, want {%v %d %q}",
					got.IsValid, got.Difference, got.Kind, tt.wantOK, tt.wantDiff, tt.wantKind)
			}
		})
	}
}

func TestRedistributeProportional(t *testing.T) {
	t.Run("scales proportionally", func(t *testing.T) {
		got := RedistributeProportional(subs(40000, 60000), core.Money{Cents: 50000})
		want := []int64{20000, 30000}
		checkAmounts(t, got, want, 50000)
	})

	t.Run("rounding leftover lands on last", func(t *testing.T) {
		got := RedistributeProportional(subs(100, 100, 100), core.Money{Cents: 100})
		// 100/3 rounds to 33 each; last takes the leftover 34.
		checkAmounts(t, got, []int64{33, 33, 34}, 100)
	})

	t.Run("zero current sum splits evenly with remainder first", func(t *testing.T) {
		got := RedistributeProportional(subs(0, 0, 0), core.Money{Cents: 100})
		checkAmounts(t, got, []int64{34, 33, 33}, 100)
	})

	t.Run("order is stable", func(t *testing.T) {
		got := RedistributeProportional(subs(10000, 20000, 30000), core.Money{Cents: 30000})
		wantIDs := []string{"a", "b", "c"}
		for i, s := range got {
			if s.SubcategoryID != wantIDs[i] {
				t.Errorf("position %d = %s, want %s", i, s.SubcategoryID, wantIDs[i])
			}
		}
		checkAmounts(t, got, []int64{5000, 10000, 15000}, 30000)
	})

	t.Run("empty input", func(t *testing.T) {
		if got := RedistributeProportional(nil, core.Money{Cents: 100}); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})

	t.Run("large amounts do not overflow the scaling product", func(t *testing.T) {
		// 4e9 * 4e9 cents exceeds int64 as a raw product; the shares
		// must still come out exact.
		got := RedistributeProportional(subs(4_000_000_000, 4_000_000_000), core.Money{Cents: 4_000_000_000})
		checkAmounts(t, got, []int64{2_000_000_000, 2_000_000_000}, 4_000_000_000)
	})
}

func TestRedistributeProportionalExactSum(t *testing.T) {
	cases := []struct {
		amounts  []int64
		newTotal int64
	}{
		{[]int64{1, 1, 1}, 100},
		{[]int64{333, 333, 334}, 1000},
		{[]int64{12345, 678, 9}, 54321},
		{[]int64{7}, 13},
		{[]int64{50, 50}, 33},
	}
	for _, c := range cases {
		got := RedistributeProportional(subs(c.amounts...), core.Money{Cents: c.newTotal})
		var sum int64
		for _, s := range got {
			sum += s.Amount.Cents
		}
		if sum != c.newTotal {
			t.Errorf("amounts %v -> total %d: sum = %d", c.amounts, c.newTotal, sum)
		}
	}
}

func checkAmounts(t *testing.T, got []SubcategoryAmount, want []int64, wantSum int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d elements, want %d", len(got), len(want))
	}
	var sum int64
	for i, s := range got {
		if s.Amount.Cents != want[i] {
			t.Errorf("position %d = %d cents, want %d", i, s.Amount.Cents, want[i])
		}
		sum += s.Amount.Cents
	}
	if sum != wantSum {
		t.Errorf("sum = %d, want %d", sum, wantSum)
	}
}

func TestCalculateIFAdjustment(t *testing.T) {
	money := func(c int64) core.Money { return core.Money{Cents: c} }

	t.Run("no adjustment needed", func(t *testing.T) {
		got := CalculateIFAdjustment(money(100000), money(90000), 5, money(1000000))
		if got.RequiresConfirmation {
			t.Error("decrease must not require confirmation")
		}
		if got.NewCategoryTotal.Cents != 100000 || got.NewIFPercentage != 5 {
			t.Errorf("totals changed: %+v", got)
		}
	})

	t.Run("rejected when margin would go negative", func(t *testing.T) {
		// Increase of 200.00 is 2% of a 10000.00 income, above the 1% margin.
		got := CalculateIFAdjustment(money(100000), money(120000), 1, money(1000000))
		if !got.RequiresConfirmation {
			t.Fatal("expected rejection")
		}
		if got.NewCategoryTotal.Cents != 100000 || got.NewIFPercentage != 1 {
			t.Errorf("rejected adjustment must echo inputs unchanged: %+v", got)
		}
		if got.Message == "" {
			t.Error("rejection must carry a message")
		}
	})

	t.Run("accepted within margin", func(t *testing.T) {
		got := CalculateIFAdjustment(money(100000), money(120000), 5, money(1000000))
		if got.RequiresConfirmation {
			t.Fatalf("expected acceptance, got %+v", got)
		}
		if got.NewCategoryTotal.Cents != 120000 {
			t.Errorf("NewCategoryTotal = %d, want 120000", got.NewCategoryTotal.Cents)
		}
		if got.NewIFPercentage != 3 {
			t.Errorf("NewIFPercentage = %v, want 3", got.NewIFPercentage)
		}
	})

	t.Run("rejected without income", func(t *testing.T) {
		got := CalculateIFAdjustment(money(100000), money(120000), 5, money(0))
		if !got.RequiresConfirmation {
			t.Fatal("expected rejection when income is unset")
		}
	})
}
