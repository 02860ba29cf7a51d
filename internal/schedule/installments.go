package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"
)

const (
	MinInstallments = 2
	MaxInstallments = 48
)

// ErrInvalidInstallmentInput reports an unusable amortization request.
// No partial schedule is ever returned alongside it.
var ErrInvalidInstallmentInput = errors.New("invalid installment input")

// Installment is one scheduled payment of a financed purchase.
type Installment struct {
	Number  int // 1-based
	Amount  core.Money
	DueDate time.Time
}

// GenerateInstallments splits a total into count monthly payments
// starting at firstDue. The base value is the half-up rounded quotient
// in cents; the rounding remainder, positive or negative, is absorbed by
// the last installment so the schedule sums to the total exactly. Due
// dates advance by calendar months with day-of-month clamping, so a
// purchase on the 31st never drifts across short months.
func GenerateInstallments(total core.Money, count int, firstDue time.Time) ([]Installment, error) {
	if total.Cents <= 0 {
		return nil, fmt.Errorf("%w: total must be positive, got %d cents", ErrInvalidInstallmentInput, total.Cents)
	}
	if count < MinInstallments || count > MaxInstallments {
		return nil, fmt.Errorf("%w: installments must be in [%d,%d], got %d",
			ErrInvalidInstallmentInput, MinInstallments, MaxInstallments, count)
	}

	n := int64(count)
	base := total.Cents / n
	if 2*(total.Cents%n) >= n {
		base++
	}
	remainder := total.Cents - base*n

	schedule := make([]Installment, count)
	for k := 0; k < count; k++ {
		value := base
		if k == count-1 {
			value += remainder
		}
		schedule[k] = Installment{
			Number:  k + 1,
			Amount:  core.Money{Cents: value},
			DueDate: AddMonthsClamped(midnightUTC(firstDue), k),
		}
	}
	return schedule, nil
}
