package schedule

import "github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"

// DateFieldFor resolves which transaction date governs aggregation under
// an accounting regime: cash basis counts when money moves, accrual
// basis counts when the economic event occurred. This is the only place
// the choice is made; components that need a date receive the resolved
// field and never pick one themselves. Mixing fields across two views of
// the same family double-counts or drops transactions whose cash and
// event dates fall in different months.
//
// Unrecognized regime values resolve as cash basis.
func DateFieldFor(regime core.AccountingRegime) core.DateField {
	if regime == core.AccrualBasis {
		return core.EventDateField
	}
	return core.CashDateField
}
