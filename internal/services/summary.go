package services

import (
	"sort"
	"time"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/schedule"
)

type (
	// MonthlySummary aggregates one month of transactions under a single
	// accounting regime.
	MonthlySummary struct {
		Year       int
		Month      int
		Regime     core.AccountingRegime
		Income     core.Money
		Expense    core.Money
		ByCategory []CategoryTotal
	}

	CategoryTotal struct {
		Name   string
		Amount core.Money
	}
)

// SummarizeMonth totals the transactions that fall in the given month
// under the family's regime. The governing date is resolved once through
// schedule.DateFieldFor; no other date access happens here, so cash and
// accrual views of the same family can never be mixed within one result.
func SummarizeMonth(regime core.AccountingRegime, txs []core.Transaction, year int, month time.Month) MonthlySummary {
	field := schedule.DateFieldFor(regime)

	summary := MonthlySummary{
		Year:   year,
		Month:  int(month),
		Regime: regime,
	}

	byCategory := make(map[string]int64)
	for _, tx := range txs {
		d := field.Of(tx)
		if d.Year() != year || d.Month() != month {
			continue
		}
		switch tx.Direction {
		case core.DirectionIncome:
			summary.Income.Cents += tx.Amount.Cents
		case core.DirectionExpense:
			summary.Expense.Cents += tx.Amount.Cents
			byCategory[tx.Category] += tx.Amount.Cents
		}
	}

	summary.ByCategory = make([]CategoryTotal, 0, len(byCategory))
	for name, cents := range byCategory {
		summary.ByCategory = append(summary.ByCategory, CategoryTotal{
			Name:   name,
			Amount: core.Money{Cents: cents},
		})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		if summary.ByCategory[i].Amount.Cents != summary.ByCategory[j].Amount.Cents {
			return summary.ByCategory[i].Amount.Cents > summary.ByCategory[j].Amount.Cents
		}
		return summary.ByCategory[i].Name < summary.ByCategory[j].Name
	})

	return summary
}
