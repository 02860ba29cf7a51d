// Package budget reconciles subcategory budget amounts against their
// category total and computes how a category increase draws on the
// family's discretionary margin (the "IF" percentage). Every outcome,
// including mismatches and rejections, is a structured result: these are
// expected user-facing states, not errors.
package budget

import (
	"fmt"
	"math/big"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"
)

const (
	KindOK    ValidationKind = "ok"
	KindOver  ValidationKind = "over"
	KindUnder ValidationKind = "under"
)

// Sub/category sums are allowed to differ by one cent before the split
// is flagged, absorbing a single rounding step.
const sumToleranceCents = 1

type (
	ValidationKind string

	// SubcategoryAmount pairs a subcategory with its budgeted amount.
	// Slices keep caller order; redistribution is order-stable.
	SubcategoryAmount struct {
		SubcategoryID string
		Amount        core.Money
	}

	// ValidationResult reports whether subcategory amounts match the
	// category total. Difference is subcategory sum minus total, in cents.
	ValidationResult struct {
		IsValid    bool
		Difference int64
		Kind       ValidationKind
	}

	// IFAdjustment is the outcome of financing a category increase from
	// the discretionary margin. When RequiresConfirmation is set the
	// adjustment was rejected and the totals echo the inputs unchanged.
	IFAdjustment struct {
		NewCategoryTotal     core.Money
		NewIFPercentage      float64
		RequiresConfirmation bool
		Message              string
	}
)

// Validate checks subcategory amounts against the category total.
func Validate(categoryTotal core.Money, subs []SubcategoryAmount) ValidationResult {
	var sum int64
	for _, s := range subs {
		sum += s.Amount.Cents
	}
	diff := sum - categoryTotal.Cents

	result := ValidationResult{Difference: diff}
	switch {
	case diff > sumToleranceCents:
		result.Kind = KindOver
	case diff < -sumToleranceCents:
		result.Kind = KindUnder
	default:
		result.IsValid = true
		result.Kind = KindOK
	}
	return result
}

// RedistributeProportional rescales subcategory amounts so they sum to
// newTotal exactly. Amounts keep their relative proportions, each
// rounded half-up to the cent, with the cumulative rounding leftover
// assigned to the last element. When the current sum is zero there is no
// proportion to keep: the total is split evenly and the remainder goes
// to the first element. Input order is preserved.
func RedistributeProportional(subs []SubcategoryAmount, newTotal core.Money) []SubcategoryAmount {
	if len(subs) == 0 {
		return nil
	}

	var currentSum int64
	for _, s := range subs {
		currentSum += s.Amount.Cents
	}

	out := make([]SubcategoryAmount, len(subs))

	if currentSum == 0 {
		n := int64(len(subs))
		each := newTotal.Cents / n
		remainder := newTotal.Cents - each*n
		for i, s := range subs {
			value := each
			if i == 0 {
				value += remainder
			}
			out[i] = SubcategoryAmount{SubcategoryID: s.SubcategoryID, Amount: core.Money{Cents: value}}
		}
		return out
	}

	var assigned int64
	for i, s := range subs {
		value := roundedShare(s.Amount.Cents, newTotal.Cents, currentSum)
		if i == len(subs)-1 {
			value = newTotal.Cents - assigned
		}
		assigned += value
		out[i] = SubcategoryAmount{SubcategoryID: s.SubcategoryID, Amount: core.Money{Cents: value}}
	}
	return out
}

// roundedShare computes amount*newTotal/currentSum with half-up
// rounding. The intermediate product can exceed int64 for large cent
// values, so it is carried in a big.Int; the result itself fits.
func roundedShare(amount, newTotal, currentSum int64) int64 {
	scaled := new(big.Int).Mul(big.NewInt(amount), big.NewInt(newTotal))
	half := big.NewInt(currentSum / 2)
	if scaled.Sign() < 0 {
		scaled.Sub(scaled, half)
	} else {
		scaled.Add(scaled, half)
	}
	return scaled.Quo(scaled, big.NewInt(currentSum)).Int64()
}

// CalculateIFAdjustment decides whether raising a category's subcategory
// total beyond the category budget can be financed from the family's
// discretionary margin. The increase, expressed as a percentage of
// monthly income, is deducted from the current IF percentage; the margin
// can never go negative.
func CalculateIFAdjustment(categoryTotal, newSubTotal core.Money, currentIFPct float64, monthlyIncome core.Money) IFAdjustment {
	if newSubTotal.Cents <= categoryTotal.Cents {
		return IFAdjustment{
			NewCategoryTotal: categoryTotal,
			NewIFPercentage:  currentIFPct,
		}
	}

	increase := newSubTotal.Cents - categoryTotal.Cents

	if monthlyIncome.Cents <= 0 {
		return IFAdjustment{
			NewCategoryTotal:     categoryTotal,
			NewIFPercentage:      currentIFPct,
			RequiresConfirmation: true,
			Message:              "monthly income is not set; the increase cannot be financed from the margin",
		}
	}

	increasePct := float64(increase) / float64(monthlyIncome.Cents) * 100
	newIFPct := currentIFPct - increasePct

	if newIFPct < 0 {
		return IFAdjustment{
			NewCategoryTotal:     categoryTotal,
			NewIFPercentage:      currentIFPct,
			RequiresConfirmation: true,
			Message: fmt.Sprintf(
				"increase of %.2f%% of monthly income exceeds the available margin of %.2f%%",
				increasePct, currentIFPct),
		}
	}

	return IFAdjustment{
		NewCategoryTotal: newSubTotal,
		NewIFPercentage:  newIFPct,
		Message: fmt.Sprintf(
			"increase consumes %.2f%% of monthly income, leaving a margin of %.2f%%",
			increasePct, newIFPct),
	}
}
