package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/budget"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/schedule"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateFamily(ctx context.Context, f core.Family) (core.Family, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if err := f.Regime.Validate(); err != nil {
		return core.Family{}, err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO families (id, name, regime, monthly_income_cents, if_percentage)
		 VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.Name, string(f.Regime), f.MonthlyIncome.Cents, f.IFPercentage)
	if err != nil {
		return core.Family{}, fmt.Errorf("create family: %w", err)
	}

	slog.InfoContext(ctx, "Family created", "id", f.ID, "name", f.Name, "regime", f.Regime)
	return f, nil
}

func (r *SQLiteRepository) GetFamily(ctx context.Context, id string) (core.Family, error) {
	var f core.Family
	var regime string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, regime, monthly_income_cents, if_percentage
		 FROM families WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &regime, &f.MonthlyIncome.Cents, &f.IFPercentage)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Family{}, fmt.Errorf("family %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Family{}, fmt.Errorf("get family: %w", err)
	}
	f.Regime = core.AccountingRegime(regime)
	return f, nil
}

func (r *SQLiteRepository) ListFamilies(ctx context.Context) ([]core.Family, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, regime, monthly_income_cents, if_percentage
		 FROM families ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []core.Family
	for rows.Next() {
		var f core.Family
		var regime string
		if err := rows.Scan(&f.ID, &f.Name, &regime, &f.MonthlyIncome.Cents, &f.IFPercentage); err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		f.Regime = core.AccountingRegime(regime)
		families = append(families, f)
	}
	return families, rows.Err()
}

func (r *SQLiteRepository) CreateObligation(ctx context.Context, o core.RecurringObligation) (core.RecurringObligation, error) {
	if err := o.Validate(); err != nil {
		return core.RecurringObligation{}, err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	var endDate any
	if !o.EndDate.IsZero() {
		endDate = o.EndDate
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_obligations
		 (id, family_id, name, direction, amount_cents, day_of_month,
		  start_date, end_date, is_active, linked_account_id, linked_card_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.FamilyID, o.Name, string(o.Direction), o.Amount.Cents, o.DayOfMonth,
		o.StartDate, endDate, o.IsActive, o.LinkedAccountID, o.LinkedCardID)
	if err != nil {
		return core.RecurringObligation{}, fmt.Errorf("create obligation: %w", err)
	}

	slog.InfoContext(ctx, "Recurring obligation created",
		"id", o.ID,
		"family_id", o.FamilyID,
		"name", o.Name,
		"day_of_month", o.DayOfMonth,
		"amount_cents", o.Amount.Cents)
	return o, nil
}

func (r *SQLiteRepository) ListActiveObligations(ctx context.Context, familyID string) ([]core.RecurringObligation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, family_id, name, direction, amount_cents, day_of_month,
		        start_date, end_date, is_active, linked_account_id, linked_card_id
		 FROM recurring_obligations
		 WHERE family_id = ? AND is_active = 1
		 ORDER BY day_of_month, name`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []core.RecurringObligation
	for rows.Next() {
		var o core.RecurringObligation
		var direction string
		var endDate sql.NullTime
		if err := rows.Scan(&o.ID, &o.FamilyID, &o.Name, &direction, &o.Amount.Cents,
			&o.DayOfMonth, &o.StartDate, &endDate, &o.IsActive,
			&o.LinkedAccountID, &o.LinkedCardID); err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		o.Direction = core.Direction(direction)
		if endDate.Valid {
			o.EndDate = endDate.Time
		}
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

func (r *SQLiteRepository) CreateCreditCard(ctx context.Context, c core.CreditCardAccount) (core.CreditCardAccount, error) {
	if err := c.Validate(); err != nil {
		return core.CreditCardAccount{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_cards
		 (id, family_id, name, closing_day, due_day, credit_limit_cents, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FamilyID, c.Name, c.ClosingDay, c.DueDay, c.CreditLimit.Cents, c.IsActive)
	if err != nil {
		return core.CreditCardAccount{}, fmt.Errorf("create credit card: %w", err)
	}

	slog.InfoContext(ctx, "Credit card created",
		"id", c.ID,
		"family_id", c.FamilyID,
		"name", c.Name,
		"closing_day", c.ClosingDay,
		"due_day", c.DueDay)
	return c, nil
}

func (r *SQLiteRepository) GetCreditCard(ctx context.Context, id string) (core.CreditCardAccount, error) {
	var c core.CreditCardAccount
	err := r.db.QueryRowContext(ctx,
		`SELECT id, family_id, name, closing_day, due_day, credit_limit_cents, is_active
		 FROM credit_cards WHERE id = ?`, id).
		Scan(&c.ID, &c.FamilyID, &c.Name, &c.ClosingDay, &c.DueDay,
			&c.CreditLimit.Cents, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CreditCardAccount{}, fmt.Errorf("credit card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.CreditCardAccount{}, fmt.Errorf("get credit card: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListActiveCreditCards(ctx context.Context, familyID string) ([]core.CreditCardAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, family_id, name, closing_day, due_day, credit_limit_cents, is_active
		 FROM credit_cards
		 WHERE family_id = ? AND is_active = 1
		 ORDER BY name`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []core.CreditCardAccount
	for rows.Next() {
		var c core.CreditCardAccount
		if err := rows.Scan(&c.ID, &c.FamilyID, &c.Name, &c.ClosingDay, &c.DueDay,
			&c.CreditLimit.Cents, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// SaveInstallmentGroup persists a group and its generated installments in
// one transaction, so a partial plan can never be observed.
func (r *SQLiteRepository) SaveInstallmentGroup(ctx context.Context, g core.InstallmentGroup, installments []schedule.Installment) (core.InstallmentGroup, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.InstallmentGroup{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO installment_groups
		 (id, family_id, description, total_amount_cents, installments_total,
		  installment_value_cents, first_due_date, parent_transaction_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.FamilyID, g.Description, g.TotalAmount.Cents, g.InstallmentsTotal,
		g.InstallmentValue.Cents, g.FirstDueDate, g.ParentTransactionID)
	if err != nil {
		return core.InstallmentGroup{}, fmt.Errorf("create installment group: %w", err)
	}

	for _, inst := range installments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO installments (id, group_id, number, amount_cents, due_date)
			 VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), g.ID, inst.Number, inst.Amount.Cents, inst.DueDate)
		if err != nil {
			return core.InstallmentGroup{}, fmt.Errorf("create installment %d: %w", inst.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.InstallmentGroup{}, fmt.Errorf("commit tx: %w", err)
	}

	slog.InfoContext(ctx, "Installment group saved",
		"id", g.ID,
		"family_id", g.FamilyID,
		"total_cents", g.TotalAmount.Cents,
		"installments", len(installments))
	return g, nil
}

func (r *SQLiteRepository) ListInstallments(ctx context.Context, groupID string) ([]schedule.Installment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT number, amount_cents, due_date
		 FROM installments WHERE group_id = ? ORDER BY number`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	var installments []schedule.Installment
	for rows.Next() {
		var inst schedule.Installment
		if err := rows.Scan(&inst.Number, &inst.Amount.Cents, &inst.DueDate); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Direction.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, family_id, name, direction, amount_cents, category, cash_date, event_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.FamilyID, t.Name, string(t.Direction), t.Amount.Cents,
		t.Category, t.CashDate, t.EventDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns a family's transactions whose cash or event
// date falls in [from, to). Both date fields are matched so a regime
// switch never hides rows from the aggregation window.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, familyID string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, family_id, name, direction, amount_cents, category, cash_date, event_date
		 FROM transactions
		 WHERE family_id = ?
		   AND ((cash_date >= ? AND cash_date < ?) OR (event_date >= ? AND event_date < ?))
		 ORDER BY cash_date`, familyID, from, to, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var direction string
		if err := rows.Scan(&t.ID, &t.FamilyID, &t.Name, &direction, &t.Amount.Cents,
			&t.Category, &t.CashDate, &t.EventDate); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Direction = core.Direction(direction)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) GetCategoryBudget(ctx context.Context, familyID, category string) (core.Money, []budget.SubcategoryAmount, error) {
	var budgetID string
	var total core.Money
	err := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents FROM category_budgets
		 WHERE family_id = ? AND category = ?`, familyID, category).
		Scan(&budgetID, &total.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, nil, fmt.Errorf("category budget %s/%s: %w", familyID, category, ErrNotFound)
	}
	if err != nil {
		return core.Money{}, nil, fmt.Errorf("get category budget: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT subcategory, amount_cents FROM subcategory_budgets
		 WHERE category_budget_id = ? ORDER BY subcategory`, budgetID)
	if err != nil {
		return core.Money{}, nil, fmt.Errorf("list subcategory budgets: %w", err)
	}
	defer rows.Close()

	var subs []budget.SubcategoryAmount
	for rows.Next() {
		var s budget.SubcategoryAmount
		if err := rows.Scan(&s.SubcategoryID, &s.Amount.Cents); err != nil {
			return core.Money{}, nil, fmt.Errorf("scan subcategory budget: %w", err)
		}
		subs = append(subs, s)
	}
	return total, subs, rows.Err()
}

// SaveCategoryBudget upserts a category total and replaces its
// subcategory split atomically.
func (r *SQLiteRepository) SaveCategoryBudget(ctx context.Context, familyID, category string, total core.Money, subs []budget.SubcategoryAmount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var budgetID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM category_budgets WHERE family_id = ? AND category = ?`,
		familyID, category).Scan(&budgetID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		budgetID = uuid.NewString()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO category_budgets (id, family_id, category, amount_cents)
			 VALUES (?, ?, ?, ?)`, budgetID, familyID, category, total.Cents)
		if err != nil {
			return fmt.Errorf("create category budget: %w", err)
		}
	case err != nil:
		return fmt.Errorf("find category budget: %w", err)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE category_budgets SET amount_cents = ? WHERE id = ?`,
			total.Cents, budgetID)
		if err != nil {
			return fmt.Errorf("update category budget: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM subcategory_budgets WHERE category_budget_id = ?`, budgetID); err != nil {
		return fmt.Errorf("clear subcategory budgets: %w", err)
	}
	for _, s := range subs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO subcategory_budgets (id, category_budget_id, subcategory, amount_cents)
			 VALUES (?, ?, ?, ?)`,
			uuid.NewString(), budgetID, s.SubcategoryID, s.Amount.Cents)
		if err != nil {
			return fmt.Errorf("create subcategory budget: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	slog.InfoContext(ctx, "Category budget saved",
		"family_id", familyID,
		"category", category,
		"total_cents", total.Cents,
		"subcategories", len(subs))
	return nil
}

// UpdateFamilyBudgetProfile persists the income and margin pair after an
// accepted IF adjustment.
func (r *SQLiteRepository) UpdateFamilyBudgetProfile(ctx context.Context, familyID string, monthlyIncome core.Money, ifPercentage float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE families SET monthly_income_cents = ?, if_percentage = ? WHERE id = ?`,
		monthlyIncome.Cents, ifPercentage, familyID)
	if err != nil {
		return fmt.Errorf("update family budget profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("family %s: %w", familyID, ErrNotFound)
	}
	return nil
}
