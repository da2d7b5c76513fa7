package models

import "github.com/shopspring/decimal"

// PessoaInput carries the fields accepted when creating or updating a
// member. Required-field and format checks happen in the service layer so
// the messages reach the client in Portuguese.
type PessoaInput struct {
	Nome           string `json:"nome"`
	CPF            string `json:"cpf"`
	Telefone       string `json:"telefone"`
	Cidade         string `json:"cidade"`
	Bairro         string `json:"bairro"`
	DataNascimento string `json:"data_nascimento"`
	Email          string `json:"email"`
	RedeSocial     string `json:"rede_social"`
	Observacoes    string `json:"observacoes"`
}

// EventoInput carries the fields accepted when creating or updating an event.
type EventoInput struct {
	Titulo      string `json:"titulo"`
	Descricao   string `json:"descricao"`
	DataEvento  string `json:"data_evento"`
	Tipo        string `json:"tipo"`
	Local       string `json:"local"`
	Responsavel string `json:"responsavel"`
}

// ExpenseInput carries the fields accepted when registering an expense.
type ExpenseInput struct {
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// ContributionInput carries the fields accepted when registering a contribution.
type ContributionInput struct {
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Contributor string          `json:"contributor"`
	Amount      decimal.Decimal `json:"amount"`
}

// PessoaFilter narrows a member search. Empty fields are ignored.
// MesAniversario is a month number ("1".."12" or zero padded).
type PessoaFilter struct {
	Nome            string `json:"nome"`
	CPF             string `json:"cpf"`
	Cidade          string `json:"cidade"`
	MesAniversario  string `json:"mes_aniversario"`
	IncluirInativos bool   `json:"incluir_inativos"`
}

// EventoFilter narrows an event search. Date bounds are DD/MM/YYYY and
// inclusive.
type EventoFilter struct {
	Tipo            string `json:"tipo"`
	DataInicio      string `json:"data_inicio"`
	DataFim         string `json:"data_fim"`
	IncluirInativos bool   `json:"incluir_inativos"`
}

// Statistics aggregates the dashboard counters.
type Statistics struct {
	TotalPessoas       int `json:"total_pessoas"`
	AniversariantesMes int `json:"aniversariantes_mes"`
	TotalEventos       int `json:"total_eventos"`
	EventosProximos    int `json:"eventos_proximos"`
	TotalCidades       int `json:"total_cidades"`
}

// DuplicateCPF reports an active CPF shared by more than one record.
type DuplicateCPF struct {
	CPF   string `db:"cpf" json:"cpf"`
	Count int    `db:"count" json:"count"`
}

// MonthlySummary totals one MM/YYYY ledger bucket.
type MonthlySummary struct {
	MonthYear     string          `json:"month_year"`
	Expenses      decimal.Decimal `json:"expenses"`
	Contributions decimal.Decimal `json:"contributions"`
	Balance       decimal.Decimal `json:"balance"`
}

// CategoryTotal is one row of a per-category expense breakdown.
type CategoryTotal struct {
	Category string          `db:"category" json:"category"`
	Total    decimal.Decimal `db:"total" json:"total"`
}

// LedgerEntry is one movement inside a period report, with the running
// balance after the movement is applied.
type LedgerEntry struct {
	Date        string          `json:"date"`
	Kind        string          `json:"kind"` // "expense" or "contribution"
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
}

// PeriodReport is a chronological statement between two dates.
type PeriodReport struct {
	From               string          `json:"from"`
	To                 string          `json:"to"`
	Entries            []LedgerEntry   `json:"entries"`
	TotalExpenses      decimal.Decimal `json:"total_expenses"`
	TotalContributions decimal.Decimal `json:"total_contributions"`
	Balance            decimal.Decimal `json:"balance"`
}

// BackupInfo describes one backup file on disk.
type BackupInfo struct {
	File      string `json:"file"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
}

// RestoreRequest names the backup file to restore.
type RestoreRequest struct {
	Arquivo string `json:"arquivo" binding:"required"`
}

// MessageResponse is a simple confirmation payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
