package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ibvrd/cadastro-server/internal/models"
	"github.com/ibvrd/cadastro-server/internal/repository"
	"github.com/ibvrd/cadastro-server/internal/validator"
)

// LedgerService defines the business logic around the financial ledger
type LedgerService interface {
	AddExpense(ctx context.Context, input models.ExpenseInput) (*models.Expense, error)
	DeleteExpense(ctx context.Context, id int64) (bool, error)
	AddContribution(ctx context.Context, input models.ContributionInput) (*models.Contribution, error)
	DeleteContribution(ctx context.Context, id int64) (bool, error)
	ExpensesByMonth(ctx context.Context, monthYear string) ([]models.Expense, error)
	ContributionsByMonth(ctx context.Context, monthYear string) ([]models.Contribution, error)
	MonthlySummary(ctx context.Context, monthYear string) (*models.MonthlySummary, error)
	CategoryTotals(ctx context.Context, monthYear string) ([]models.CategoryTotal, error)
	AvailableMonths(ctx context.Context) ([]string, error)
	PeriodReport(ctx context.Context, from, to string) (*models.PeriodReport, error)
}

// DefaultLedgerService implements the LedgerService interface
type DefaultLedgerService struct {
	repo repository.Repository
}

// NewLedgerService creates a new DefaultLedgerService
func NewLedgerService(repo repository.Repository) LedgerService {
	return &DefaultLedgerService{
		repo: repo,
	}
}

func (s *DefaultLedgerService) AddExpense(ctx context.Context, input models.ExpenseInput) (*models.Expense, error) {
	if input.Date == "" || !validator.ValidateDate(input.Date) {
		return nil, &ValidationError{"Data inválida. Use o formato DD/MM/AAAA."}
	}

	input.Category = strings.TrimSpace(input.Category)
	if input.Category == "" {
		return nil, &ValidationError{"A categoria é obrigatória."}
	}

	if !input.Amount.IsPositive() {
		return nil, &ValidationError{"O valor deve ser maior que zero."}
	}

	e := &models.Expense{
		Date:        input.Date,
		Category:    input.Category,
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		MonthYear:   validator.MonthYear(input.Date),
	}

	if err := s.repo.AddExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("error adding expense: %w", err)
	}

	return e, nil
}

func (s *DefaultLedgerService) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	found, err := s.repo.DeleteExpense(ctx, id)
	if err != nil {
		return false, fmt.Errorf("error deleting expense: %w", err)
	}
	return found, nil
}

func (s *DefaultLedgerService) AddContribution(ctx context.Context, input models.ContributionInput) (*models.Contribution, error) {
	if input.Date == "" || !validator.ValidateDate(input.Date) {
		return nil, &ValidationError{"Data inválida. Use o formato DD/MM/AAAA."}
	}

	input.Type = strings.TrimSpace(input.Type)
	if input.Type == "" {
		return nil, &ValidationError{"O tipo da contribuição é obrigatório."}
	}

	if !input.Amount.IsPositive() {
		return nil, &ValidationError{"O valor deve ser maior que zero."}
	}

	c := &models.Contribution{
		Date:        input.Date,
		Type:        input.Type,
		Contributor: strings.TrimSpace(input.Contributor),
		Amount:      input.Amount,
		MonthYear:   validator.MonthYear(input.Date),
	}

	if err := s.repo.AddContribution(ctx, c); err != nil {
		return nil, fmt.Errorf("error adding contribution: %w", err)
	}

	return c, nil
}

func (s *DefaultLedgerService) DeleteContribution(ctx context.Context, id int64) (bool, error) {
	found, err := s.repo.DeleteContribution(ctx, id)
	if err != nil {
		return false, fmt.Errorf("error deleting contribution: %w", err)
	}
	return found, nil
}

func (s *DefaultLedgerService) ExpensesByMonth(ctx context.Context, monthYear string) ([]models.Expense, error) {
	if !validator.ValidateMonthYear(monthYear) {
		return nil, &ValidationError{"Mês inválido. Use o formato MM/AAAA."}
	}

	expenses, err := s.repo.ExpensesByMonth(ctx, monthYear)
	if err != nil {
		return nil, fmt.Errorf("error listing expenses: %w", err)
	}
	return expenses, nil
}

func (s *DefaultLedgerService) ContributionsByMonth(ctx context.Context, monthYear string) ([]models.Contribution, error) {
	if !validator.ValidateMonthYear(monthYear) {
		return nil, &ValidationError{"Mês inválido. Use o formato MM/AAAA."}
	}

	contributions, err := s.repo.ContributionsByMonth(ctx, monthYear)
	if err != nil {
		return nil, fmt.Errorf("error listing contributions: %w", err)
	}
	return contributions, nil
}

// MonthlySummary totals one MM/YYYY bucket. The balance is contributions
// minus expenses and may be negative.
func (s *DefaultLedgerService) MonthlySummary(ctx context.Context, monthYear string) (*models.MonthlySummary, error) {
	if !validator.ValidateMonthYear(monthYear) {
		return nil, &ValidationError{"Mês inválido. Use o formato MM/AAAA."}
	}

	expenses, err := s.repo.MonthlyExpenses(ctx, monthYear)
	if err != nil {
		return nil, fmt.Errorf("error totaling expenses: %w", err)
	}

	contributions, err := s.repo.MonthlyContributions(ctx, monthYear)
	if err != nil {
		return nil, fmt.Errorf("error totaling contributions: %w", err)
	}

	return &models.MonthlySummary{
		MonthYear:     monthYear,
		Expenses:      expenses,
		Contributions: contributions,
		Balance:       contributions.Sub(expenses),
	}, nil
}

func (s *DefaultLedgerService) CategoryTotals(ctx context.Context, monthYear string) ([]models.CategoryTotal, error) {
	if !validator.ValidateMonthYear(monthYear) {
		return nil, &ValidationError{"Mês inválido. Use o formato MM/AAAA."}
	}

	totals, err := s.repo.CategoryTotals(ctx, monthYear)
	if err != nil {
		return nil, fmt.Errorf("error totaling categories: %w", err)
	}
	return totals, nil
}

func (s *DefaultLedgerService) AvailableMonths(ctx context.Context) ([]string, error) {
	months, err := s.repo.AvailableMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing months: %w", err)
	}
	return months, nil
}

// PeriodReport builds a chronological statement between two inclusive
// dates, with a running balance per movement. Contributions entered on
// the same day come before expenses.
func (s *DefaultLedgerService) PeriodReport(ctx context.Context, from, to string) (*models.PeriodReport, error) {
	fromDate, err := validator.ParseDate(from)
	if err != nil {
		return nil, &ValidationError{"Data inicial inválida. Use o formato DD/MM/AAAA."}
	}
	toDate, err := validator.ParseDate(to)
	if err != nil {
		return nil, &ValidationError{"Data final inválida. Use o formato DD/MM/AAAA."}
	}
	if fromDate.After(toDate) {
		return nil, &ValidationError{"Período inválido: a data inicial é posterior à final."}
	}

	expenses, err := s.repo.ExpensesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("error listing expenses: %w", err)
	}
	contributions, err := s.repo.ContributionsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("error listing contributions: %w", err)
	}

	report := &models.PeriodReport{From: from, To: to, Entries: []models.LedgerEntry{}}
	balance := report.Balance

	ci, ei := 0, 0
	for ci < len(contributions) || ei < len(expenses) {
		takeContribution := ei >= len(expenses)
		if !takeContribution && ci < len(contributions) {
			cd, _ := validator.ParseDate(contributions[ci].Date)
			ed, _ := validator.ParseDate(expenses[ei].Date)
			takeContribution = !cd.After(ed)
		}

		var entry models.LedgerEntry
		if takeContribution {
			c := contributions[ci]
			ci++
			balance = balance.Add(c.Amount)
			report.TotalContributions = report.TotalContributions.Add(c.Amount)
			entry = models.LedgerEntry{
				Date:        c.Date,
				Kind:        "contribution",
				Description: describeContribution(c),
				Amount:      c.Amount,
				Balance:     balance,
			}
		} else {
			e := expenses[ei]
			ei++
			balance = balance.Sub(e.Amount)
			report.TotalExpenses = report.TotalExpenses.Add(e.Amount)
			entry = models.LedgerEntry{
				Date:        e.Date,
				Kind:        "expense",
				Description: describeExpense(e),
				Amount:      e.Amount,
				Balance:     balance,
			}
		}
		report.Entries = append(report.Entries, entry)
	}

	report.Balance = balance
	return report, nil
}

func describeExpense(e models.Expense) string {
	if e.Description != "" {
		return fmt.Sprintf("%s - %s", e.Category, e.Description)
	}
	return e.Category
}

func describeContribution(c models.Contribution) string {
	if c.Contributor != "" {
		return fmt.Sprintf("%s - %s", c.Type, c.Contributor)
	}
	return c.Type
}
