package models

import "github.com/shopspring/decimal"

// Pessoa represents a member record. Dates are kept as DD/MM/YYYY strings and
// timestamps as DD/MM/YYYY HH:MM:SS strings, mirroring the persisted format.
type Pessoa struct {
	ID              int64  `db:"id" json:"id"`
	Nome            string `db:"nome" json:"nome"`
	CPF             string `db:"cpf" json:"cpf"` // digits only once stored
	Telefone        string `db:"telefone" json:"telefone"`
	Cidade          string `db:"cidade" json:"cidade"`
	Bairro          string `db:"bairro" json:"bairro"`
	DataNascimento  string `db:"data_nascimento" json:"data_nascimento"`
	Email           string `db:"email" json:"email"`
	RedeSocial      string `db:"rede_social" json:"rede_social"`
	Observacoes     string `db:"observacoes" json:"observacoes"`
	Status          Status `db:"ativo" json:"ativo"`
	DataCadastro    string `db:"data_cadastro" json:"data_cadastro"`
	DataAtualizacao string `db:"data_atualizacao" json:"data_atualizacao"`
}

// Evento represents a scheduled event.
type Evento struct {
	ID           int64  `db:"id" json:"id"`
	Titulo       string `db:"titulo" json:"titulo"`
	Descricao    string `db:"descricao" json:"descricao"`
	DataEvento   string `db:"data_evento" json:"data_evento"`
	Tipo         string `db:"tipo" json:"tipo"`
	Local        string `db:"local" json:"local"`
	Responsavel  string `db:"responsavel" json:"responsavel"`
	Status       Status `db:"ativo" json:"ativo"`
	CriadoEm     string `db:"criado_em" json:"criado_em"`
	AtualizadoEm string `db:"atualizado_em" json:"atualizado_em"`
}

// Expense is a ledger outflow. MonthYear is the MM/YYYY bucket derived from
// Date and must always match it.
type Expense struct {
	ID          int64           `db:"id" json:"id"`
	Date        string          `db:"date" json:"date"`
	Category    string          `db:"category" json:"category"`
	Description string          `db:"description" json:"description"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	MonthYear   string          `db:"month_year" json:"month_year"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
}

// Contribution is a ledger inflow (tithe, offering, donation...).
type Contribution struct {
	ID          int64           `db:"id" json:"id"`
	Date        string          `db:"date" json:"date"`
	Type        string          `db:"type" json:"type"`
	Contributor string          `db:"contributor" json:"contributor"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	MonthYear   string          `db:"month_year" json:"month_year"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
}

// ConfigEntry is a persisted key-value setting (e.g. the last_backup stamp).
type ConfigEntry struct {
	Chave        string `db:"chave" json:"chave"`
	Valor        string `db:"valor" json:"valor"`
	AtualizadoEm string `db:"atualizado_em" json:"atualizado_em"`
}
