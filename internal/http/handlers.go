package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/budget"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/schedule"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/services"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/storage"
)

func familyTag(familyID string) string {
	return "family:" + familyID
}

// handleUpcomingDues serves GET /api/upcoming-dues?family_id=&days=&reference=.
func (s *Server) handleUpcomingDues(w http.ResponseWriter, r *http.Request) {
	familyID := strings.TrimSpace(r.URL.Query().Get("family_id"))
	if familyID == "" {
		writeError(w, http.StatusBadRequest, "family_id is required")
		return
	}

	days := 30
	if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeError(w, http.StatusBadRequest, "days must be an integer between 1 and 365")
			return
		}
		days = n
	}

	reference, err := parseReference(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("%s|%s|%d", familyID, reference.Format("2006-01-02"), days)
	if dues, ok := s.projectionCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, dues)
		return
	}

	obligations, err := s.store.ListActiveObligations(r.Context(), familyID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Listing obligations failed", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load obligations")
		return
	}
	cards, err := s.store.ListActiveCreditCards(r.Context(), familyID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Listing credit cards failed", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load credit cards")
		return
	}

	dues := schedule.BuildUpcoming(days, obligations, cards, reference)
	s.projectionCache.Put(cacheKey, dues, s.cacheTTL, familyTag(familyID))
	writeJSON(w, http.StatusOK, dues)
}

// handleCardCycle serves GET /api/card-cycle?card_id=&reference=.
func (s *Server) handleCardCycle(w http.ResponseWriter, r *http.Request) {
	cardID := strings.TrimSpace(r.URL.Query().Get("card_id"))
	if cardID == "" {
		writeError(w, http.StatusBadRequest, "card_id is required")
		return
	}

	reference, err := parseReference(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, err := s.store.GetCreditCard(r.Context(), cardID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "credit card not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load credit card")
		return
	}

	cycle := schedule.ResolveCycle(card.ClosingDay, card.DueDay, reference)
	writeJSON(w, http.StatusOK, map[string]any{
		"cardId":           card.ID,
		"name":             card.Name,
		"closingDate":      cycle.ClosingDate.Format("2006-01-02"),
		"dueDate":          cycle.DueDate.Format("2006-01-02"),
		"daysUntilClosing": cycle.DaysUntilClosing,
		"daysUntilDue":     cycle.DaysUntilDue,
		"status":           cycle.Status,
	})
}

// handleMonthlySummary serves GET /api/monthly-summary?family_id=&year=&month=.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	familyID := strings.TrimSpace(r.URL.Query().Get("family_id"))
	if familyID == "" {
		writeError(w, http.StatusBadRequest, "family_id is required")
		return
	}
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	family, err := s.store.GetFamily(r.Context(), familyID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "family not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load family")
		return
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	txs, err := s.store.ListTransactions(r.Context(), familyID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	summary := services.SummarizeMonth(family.Regime, txs, year, time.Month(month))
	writeJSON(w, http.StatusOK, summary)
}

type createFamilyRequest struct {
	Name          string  `json:"name"`
	Regime        string  `json:"regime"`
	MonthlyIncome string  `json:"monthlyIncome"`
	IFPercentage  float64 `json:"ifPercentage"`
}

func (s *Server) handleCreateFamily(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	family := core.Family{
		Name:         sanitizeInput(req.Name),
		Regime:       core.AccountingRegime(req.Regime),
		IFPercentage: req.IFPercentage,
	}
	if family.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if family.Regime == "" {
		family.Regime = core.CashBasis
	}
	if req.MonthlyIncome != "" {
		cents, err := core.ParseDecimalToCents(req.MonthlyIncome)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid monthlyIncome: "+err.Error())
			return
		}
		family.MonthlyIncome = core.Money{Cents: cents}
	}

	created, err := s.store.CreateFamily(r.Context(), family)
	if err != nil {
		if errors.Is(err, core.ErrInvalidRegime) {
			writeError(w, http.StatusBadRequest, "regime must be 'cash' or 'accrual'")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create family")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type createObligationRequest struct {
	FamilyID   string `json:"familyId"`
	Name       string `json:"name"`
	Direction  string `json:"direction"`
	Amount     string `json:"amount"`
	DayOfMonth int    `json:"dayOfMonth"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request) {
	var req createObligationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FamilyID == "" {
		writeError(w, http.StatusBadRequest, "familyId is required")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
		return
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate: expected YYYY-MM-DD")
		return
	}
	var endDate time.Time
	if req.EndDate != "" {
		endDate, err = time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate: expected YYYY-MM-DD")
			return
		}
	}

	obligation := core.RecurringObligation{
		FamilyID:   req.FamilyID,
		Name:       sanitizeInput(req.Name),
		Direction:  core.Direction(req.Direction),
		Amount:     core.Money{Cents: cents},
		DayOfMonth: req.DayOfMonth,
		StartDate:  startDate,
		EndDate:    endDate,
		IsActive:   true,
	}

	created, err := s.store.CreateObligation(r.Context(), obligation)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create obligation")
		return
	}

	s.projectionCache.Invalidate(familyTag(req.FamilyID))
	writeJSON(w, http.StatusCreated, created)
}

type createCreditCardRequest struct {
	FamilyID    string `json:"familyId"`
	Name        string `json:"name"`
	ClosingDay  int    `json:"closingDay"`
	DueDay      int    `json:"dueDay"`
	CreditLimit string `json:"creditLimit"`
}

func (s *Server) handleCreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var req createCreditCardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FamilyID == "" {
		writeError(w, http.StatusBadRequest, "familyId is required")
		return
	}

	card := core.CreditCardAccount{
		FamilyID:   req.FamilyID,
		Name:       sanitizeInput(req.Name),
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
		IsActive:   true,
	}
	if req.CreditLimit != "" {
		cents, err := core.ParseDecimalToCents(req.CreditLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid creditLimit: "+err.Error())
			return
		}
		card.CreditLimit = core.Money{Cents: cents}
	}

	created, err := s.store.CreateCreditCard(r.Context(), card)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create credit card")
		return
	}

	s.projectionCache.Invalidate(familyTag(req.FamilyID))
	writeJSON(w, http.StatusCreated, created)
}

type installmentRequest struct {
	FamilyID     string `json:"familyId,omitempty"`
	Description  string `json:"description,omitempty"`
	Total        string `json:"total"`
	Installments int    `json:"installments"`
	FirstDueDate string `json:"firstDueDate"`
}

type installmentResponse struct {
	GroupID      string            `json:"groupId,omitempty"`
	TotalCents   int64             `json:"totalCents"`
	Installments []installmentItem `json:"installments"`
}

type installmentItem struct {
	Number  int    `json:"number"`
	Cents   int64  `json:"cents"`
	DueDate string `json:"dueDate"`
}

func (s *Server) parseInstallmentRequest(r *http.Request) (installmentRequest, core.Money, time.Time, []schedule.Installment, error) {
	var req installmentRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, core.Money{}, time.Time{}, nil, err
	}

	cents, err := core.ParseDecimalToCents(req.Total)
	if err != nil {
		return req, core.Money{}, time.Time{}, nil, fmt.Errorf("invalid total: %w", err)
	}
	total := core.Money{Cents: cents}

	firstDue, err := time.Parse("2006-01-02", req.FirstDueDate)
	if err != nil {
		return req, core.Money{}, time.Time{}, nil, fmt.Errorf("invalid firstDueDate: expected YYYY-MM-DD")
	}

	installments, err := schedule.GenerateInstallments(total, req.Installments, firstDue)
	if err != nil {
		return req, core.Money{}, time.Time{}, nil, err
	}
	return req, total, firstDue, installments, nil
}

// handleInstallmentPreview computes a schedule without persisting it.
func (s *Server) handleInstallmentPreview(w http.ResponseWriter, r *http.Request) {
	_, total, _, installments, err := s.parseInstallmentRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentResponse("", total, installments))
}

// handleCreateInstallments persists a financed purchase as a group plus
// its exact-sum schedule.
func (s *Server) handleCreateInstallments(w http.ResponseWriter, r *http.Request) {
	req, total, firstDue, installments, err := s.parseInstallmentRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FamilyID == "" {
		writeError(w, http.StatusBadRequest, "familyId is required")
		return
	}

	group := core.InstallmentGroup{
		FamilyID:          req.FamilyID,
		Description:       sanitizeInput(req.Description),
		TotalAmount:       total,
		InstallmentsTotal: len(installments),
		InstallmentValue:  installments[0].Amount,
		FirstDueDate:      firstDue,
	}

	saved, err := s.store.SaveInstallmentGroup(r.Context(), group, installments)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save installment group")
		return
	}

	s.projectionCache.Invalidate(familyTag(req.FamilyID))
	writeJSON(w, http.StatusCreated, toInstallmentResponse(saved.ID, total, installments))
}

// handleListInstallments serves GET /api/installments?group_id=.
func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	groupID := strings.TrimSpace(r.URL.Query().Get("group_id"))
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "group_id is required")
		return
	}

	installments, err := s.store.ListInstallments(r.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load installments")
		return
	}

	var total core.Money
	for _, inst := range installments {
		total.Cents += inst.Amount.Cents
	}
	writeJSON(w, http.StatusOK, toInstallmentResponse(groupID, total, installments))
}

type createTransactionRequest struct {
	FamilyID  string `json:"familyId"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	Category  string `json:"category"`
	CashDate  string `json:"cashDate"`
	EventDate string `json:"eventDate"`
}

// handleCreateTransaction records a dated movement. When only one of
// the two dates is supplied the other defaults to it, covering the
// common case where money moves the day the event happens.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FamilyID == "" {
		writeError(w, http.StatusBadRequest, "familyId is required")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
		return
	}

	var cashDate, eventDate time.Time
	if req.CashDate != "" {
		cashDate, err = time.Parse("2006-01-02", req.CashDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cashDate: expected YYYY-MM-DD")
			return
		}
	}
	if req.EventDate != "" {
		eventDate, err = time.Parse("2006-01-02", req.EventDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid eventDate: expected YYYY-MM-DD")
			return
		}
	}
	if cashDate.IsZero() && eventDate.IsZero() {
		writeError(w, http.StatusBadRequest, "at least one of cashDate and eventDate is required")
		return
	}
	if cashDate.IsZero() {
		cashDate = eventDate
	}
	if eventDate.IsZero() {
		eventDate = cashDate
	}

	tx := core.Transaction{
		FamilyID:  req.FamilyID,
		Name:      sanitizeInput(req.Name),
		Direction: core.Direction(req.Direction),
		Amount:    core.Money{Cents: cents},
		Category:  sanitizeInput(req.Category),
		CashDate:  cashDate,
		EventDate: eventDate,
	}

	created, err := s.store.CreateTransaction(r.Context(), tx)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func toInstallmentResponse(groupID string, total core.Money, installments []schedule.Installment) installmentResponse {
	resp := installmentResponse{
		GroupID:      groupID,
		TotalCents:   total.Cents,
		Installments: make([]installmentItem, len(installments)),
	}
	for i, inst := range installments {
		resp.Installments[i] = installmentItem{
			Number:  inst.Number,
			Cents:   inst.Amount.Cents,
			DueDate: inst.DueDate.Format("2006-01-02"),
		}
	}
	return resp
}

type subcategoryPayload struct {
	SubcategoryID string `json:"subcategoryId"`
	Cents         int64  `json:"cents"`
}

// handleGetBudget serves GET /api/budgets?family_id=&category=.
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	familyID := strings.TrimSpace(r.URL.Query().Get("family_id"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if familyID == "" || category == "" {
		writeError(w, http.StatusBadRequest, "family_id and category are required")
		return
	}

	total, subs, err := s.store.GetCategoryBudget(r.Context(), familyID, category)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "category budget not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load category budget")
		return
	}

	items := make([]subcategoryPayload, len(subs))
	for i, sub := range subs {
		items[i] = subcategoryPayload{SubcategoryID: sub.SubcategoryID, Cents: sub.Amount.Cents}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"familyId":      familyID,
		"category":      category,
		"totalCents":    total.Cents,
		"subcategories": items,
	})
}

type saveBudgetRequest struct {
	FamilyID      string               `json:"familyId"`
	Category      string               `json:"category"`
	TotalCents    int64                `json:"totalCents"`
	Subcategories []subcategoryPayload `json:"subcategories"`
}

// handleSaveBudget persists a category budget and its subcategory split.
// A split that does not reconcile with the total is rejected before
// anything is written.
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var req saveBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FamilyID == "" || strings.TrimSpace(req.Category) == "" {
		writeError(w, http.StatusBadRequest, "familyId and category are required")
		return
	}
	if req.TotalCents < 0 {
		writeError(w, http.StatusBadRequest, "totalCents must not be negative")
		return
	}

	total := core.Money{Cents: req.TotalCents}
	subs := toSubcategoryAmounts(req.Subcategories)

	result := budget.Validate(total, subs)
	if !result.IsValid {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "subcategory amounts do not reconcile with the category total",
			"difference": result.Difference,
			"kind":       result.Kind,
		})
		return
	}

	if err := s.store.SaveCategoryBudget(r.Context(), req.FamilyID, sanitizeInput(req.Category), total, subs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save category budget")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"familyId":   req.FamilyID,
		"category":   req.Category,
		"totalCents": req.TotalCents,
	})
}

type budgetValidateRequest struct {
	CategoryTotalCents int64                `json:"categoryTotalCents"`
	Subcategories      []subcategoryPayload `json:"subcategories"`
}

func (s *Server) handleBudgetValidate(w http.ResponseWriter, r *http.Request) {
	var req budgetValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := budget.Validate(core.Money{Cents: req.CategoryTotalCents}, toSubcategoryAmounts(req.Subcategories))
	writeJSON(w, http.StatusOK, map[string]any{
		"isValid":    result.IsValid,
		"difference": result.Difference,
		"kind":       result.Kind,
	})
}

type budgetRedistributeRequest struct {
	NewTotalCents int64                `json:"newTotalCents"`
	Subcategories []subcategoryPayload `json:"subcategories"`
}

func (s *Server) handleBudgetRedistribute(w http.ResponseWriter, r *http.Request) {
	var req budgetRedistributeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Subcategories) == 0 {
		writeError(w, http.StatusBadRequest, "subcategories cannot be empty")
		return
	}
	if req.NewTotalCents < 0 {
		writeError(w, http.StatusBadRequest, "newTotalCents must not be negative")
		return
	}

	out := budget.RedistributeProportional(toSubcategoryAmounts(req.Subcategories), core.Money{Cents: req.NewTotalCents})
	items := make([]subcategoryPayload, len(out))
	for i, sub := range out {
		items[i] = subcategoryPayload{SubcategoryID: sub.SubcategoryID, Cents: sub.Amount.Cents}
	}
	writeJSON(w, http.StatusOK, map[string]any{"subcategories": items})
}

type ifAdjustmentRequest struct {
	FamilyID           string `json:"familyId"`
	CategoryTotalCents int64  `json:"categoryTotalCents"`
	NewSubTotalCents   int64  `json:"newSubTotalCents"`
	Confirm            bool   `json:"confirm"`
}

// handleIFAdjustment computes whether a category increase fits in the
// family's discretionary margin. The new margin is persisted only when
// the adjustment is accepted and the caller set confirm.
func (s *Server) handleIFAdjustment(w http.ResponseWriter, r *http.Request) {
	var req ifAdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FamilyID == "" {
		writeError(w, http.StatusBadRequest, "familyId is required")
		return
	}

	family, err := s.store.GetFamily(r.Context(), req.FamilyID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "family not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load family")
		return
	}

	adj := budget.CalculateIFAdjustment(
		core.Money{Cents: req.CategoryTotalCents},
		core.Money{Cents: req.NewSubTotalCents},
		family.IFPercentage,
		family.MonthlyIncome,
	)

	if !adj.RequiresConfirmation && req.Confirm && adj.NewIFPercentage != family.IFPercentage {
		if err := s.store.UpdateFamilyBudgetProfile(r.Context(), family.ID, family.MonthlyIncome, adj.NewIFPercentage); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist margin adjustment")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"newCategoryTotalCents": adj.NewCategoryTotal.Cents,
		"newIfPercentage":       adj.NewIFPercentage,
		"requiresConfirmation":  adj.RequiresConfirmation,
		"message":               adj.Message,
	})
}

func toSubcategoryAmounts(items []subcategoryPayload) []budget.SubcategoryAmount {
	subs := make([]budget.SubcategoryAmount, len(items))
	for i, item := range items {
		subs[i] = budget.SubcategoryAmount{
			SubcategoryID: item.SubcategoryID,
			Amount:        core.Money{Cents: item.Cents},
		}
	}
	return subs
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidDirection) ||
		errors.Is(err, core.ErrInvalidDay) ||
		errors.Is(err, core.ErrInvalidRegime) ||
		errors.Is(err, core.ErrEmptyName)
}
