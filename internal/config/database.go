package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite locks the whole file on write, keep a single connection
	db.SetMaxOpenConns(1)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create pessoas table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pessoas (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nome TEXT NOT NULL,
			cpf TEXT DEFAULT '',
			telefone TEXT DEFAULT '',
			cidade TEXT DEFAULT '',
			bairro TEXT DEFAULT '',
			data_nascimento TEXT DEFAULT '',
			email TEXT DEFAULT '',
			rede_social TEXT DEFAULT '',
			observacoes TEXT DEFAULT '',
			ativo INTEGER DEFAULT 1,
			data_cadastro TEXT NOT NULL,
			data_atualizacao TEXT DEFAULT ''
		)
	`)
	if err != nil {
		return err
	}

	// Create eventos table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS eventos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			titulo TEXT NOT NULL,
			descricao TEXT DEFAULT '',
			data_evento TEXT NOT NULL,
			tipo TEXT DEFAULT 'geral',
			local TEXT DEFAULT '',
			responsavel TEXT DEFAULT '',
			ativo INTEGER DEFAULT 1,
			criado_em TEXT NOT NULL,
			atualizado_em TEXT DEFAULT ''
		)
	`)
	if err != nil {
		return err
	}

	// Create config table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS config (
			chave TEXT PRIMARY KEY,
			valor TEXT DEFAULT '',
			atualizado_em TEXT DEFAULT ''
		)
	`)
	if err != nil {
		return err
	}

	// Create expenses table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT DEFAULT '',
			amount REAL NOT NULL,
			month_year TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	// Create contributions table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS contributions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			type TEXT NOT NULL,
			contributor TEXT DEFAULT '',
			amount REAL NOT NULL,
			month_year TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	// Uniqueness of CPF applies to active rows only, so a soft-deleted
	// record never blocks a new registration with the same CPF.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_pessoas_cpf_ativo
		ON pessoas(cpf) WHERE ativo = 1 AND cpf != ''
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_pessoas_nome ON pessoas(nome)",
		"CREATE INDEX IF NOT EXISTS idx_pessoas_cidade ON pessoas(cidade)",
		"CREATE INDEX IF NOT EXISTS idx_pessoas_ativo ON pessoas(ativo)",
		"CREATE INDEX IF NOT EXISTS idx_eventos_data ON eventos(data_evento)",
		"CREATE INDEX IF NOT EXISTS idx_eventos_tipo ON eventos(tipo)",
		"CREATE INDEX IF NOT EXISTS idx_eventos_ativo ON eventos(ativo)",
		"CREATE INDEX IF NOT EXISTS idx_expenses_month ON expenses(month_year)",
		"CREATE INDEX IF NOT EXISTS idx_contributions_month ON contributions(month_year)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
