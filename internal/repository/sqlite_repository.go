package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ibvrd/cadastro-server/internal/models"
	"github.com/ibvrd/cadastro-server/internal/validator"
)

// ErrDuplicateCPF is returned when an insert or update collides with the
// unique index over active CPFs.
var ErrDuplicateCPF = errors.New("cpf já cadastrado em registro ativo")

// Repository interface defines the methods that any repository implementation must satisfy.
// Callers pass CPFs already normalized to bare digits; dates are DD/MM/YYYY strings.
type Repository interface {
	// Pessoa operations
	AddPessoa(ctx context.Context, p *models.Pessoa) error
	UpdatePessoa(ctx context.Context, p *models.Pessoa) (bool, error)
	DeletePessoa(ctx context.Context, id int64) (bool, error)
	RemovePessoa(ctx context.Context, id int64) (bool, error)
	GetPessoaByID(ctx context.Context, id int64) (*models.Pessoa, error)
	SearchPessoas(ctx context.Context, filter models.PessoaFilter) ([]models.Pessoa, error)
	CPFExists(ctx context.Context, cpf string, excludeID int64) (bool, error)
	GetAniversariantes(ctx context.Context, month string) ([]models.Pessoa, error)
	GetCidades(ctx context.Context) ([]string, error)
	GetDuplicateCPFs(ctx context.Context) ([]models.DuplicateCPF, error)

	// Evento operations
	AddEvento(ctx context.Context, e *models.Evento) error
	UpdateEvento(ctx context.Context, e *models.Evento) (bool, error)
	DeleteEvento(ctx context.Context, id int64) (bool, error)
	GetEventoByID(ctx context.Context, id int64) (*models.Evento, error)
	SearchEventos(ctx context.Context, filter models.EventoFilter) ([]models.Evento, error)

	// Ledger operations
	AddExpense(ctx context.Context, e *models.Expense) error
	DeleteExpense(ctx context.Context, id int64) (bool, error)
	AddContribution(ctx context.Context, c *models.Contribution) error
	DeleteContribution(ctx context.Context, id int64) (bool, error)
	ExpensesByMonth(ctx context.Context, monthYear string) ([]models.Expense, error)
	ContributionsByMonth(ctx context.Context, monthYear string) ([]models.Contribution, error)
	MonthlyExpenses(ctx context.Context, monthYear string) (decimal.Decimal, error)
	MonthlyContributions(ctx context.Context, monthYear string) (decimal.Decimal, error)
	CategoryTotals(ctx context.Context, monthYear string) ([]models.CategoryTotal, error)
	AvailableMonths(ctx context.Context) ([]string, error)
	ExpensesBetween(ctx context.Context, from, to string) ([]models.Expense, error)
	ContributionsBetween(ctx context.Context, from, to string) ([]models.Contribution, error)

	// Aggregates
	GetStatistics(ctx context.Context, now time.Time) (*models.Statistics, error)

	// Config operations
	GetConfig(ctx context.Context, chave string) (string, error)
	SetConfig(ctx context.Context, chave, valor string) error
}

// SQLiteRepository implements the Repository interface using SQLite
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *SQLiteRepository) GetDB() *sqlx.DB {
	return r.db
}

// isUniqueViolation reports whether err comes from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// dateExpr recomposes a DD/MM/YYYY text column into an ISO date SQLite
// can compare. Invalid values collapse to NULL and fall out of ranges.
func dateExpr(column string) string {
	return "date(substr(" + column + ", 7, 4) || '-' || substr(" + column + ", 4, 2) || '-' || substr(" + column + ", 1, 2))"
}

// isoDate converts a DD/MM/YYYY string to YYYY-MM-DD for comparison
// against dateExpr. Unparseable input is passed through unchanged.
func isoDate(d string) string {
	t, err := validator.ParseDate(d)
	if err != nil {
		return d
	}
	return t.Format("2006-01-02")
}

// padMonth left-pads a month number to two digits ("7" -> "07").
func padMonth(m string) string {
	if len(m) == 1 {
		return "0" + m
	}
	return m
}

// Pessoa repository methods

func (r *SQLiteRepository) AddPessoa(ctx context.Context, p *models.Pessoa) error {
	query := `
		INSERT INTO pessoas (nome, cpf, telefone, cidade, bairro, data_nascimento,
			email, rede_social, observacoes, ativo, data_cadastro, data_atualizacao)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	p.Status = models.Ativo
	p.DataCadastro = validator.FormatDateTime(time.Now())

	res, err := r.db.ExecContext(ctx, query,
		p.Nome, p.CPF, p.Telefone, p.Cidade, p.Bairro, p.DataNascimento,
		p.Email, p.RedeSocial, p.Observacoes, p.Status, p.DataCadastro, p.DataAtualizacao)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCPF
		}
		return err
	}

	p.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepository) UpdatePessoa(ctx context.Context, p *models.Pessoa) (bool, error) {
	query := `
		UPDATE pessoas
		SET nome = ?, cpf = ?, telefone = ?, cidade = ?, bairro = ?,
			data_nascimento = ?, email = ?, rede_social = ?, observacoes = ?,
			data_atualizacao = ?
		WHERE id = ?
	`

	p.DataAtualizacao = validator.FormatDateTime(time.Now())

	res, err := r.db.ExecContext(ctx, query,
		p.Nome, p.CPF, p.Telefone, p.Cidade, p.Bairro, p.DataNascimento,
		p.Email, p.RedeSocial, p.Observacoes, p.DataAtualizacao, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicateCPF
		}
		return false, err
	}

	rows, err := res.RowsAffected()
	return rows > 0, err
}

// DeletePessoa deactivates a record. The row stays in place so history and
// exports of inactive people keep working.
func (r *SQLiteRepository) DeletePessoa(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE pessoas SET ativo = 0, data_atualizacao = ? WHERE id = ? AND ativo = 1`

	res, err := r.db.ExecContext(ctx, query, validator.FormatDateTime(time.Now()), id)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	return rows > 0, err
}

// RemovePessoa drops the row for good, whatever its active state. Used
// by the explicit permanent-delete path.
func (r *SQLiteRepository) RemovePessoa(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pessoas WHERE id = ?`, id)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (r *SQLiteRepository) GetPessoaByID(ctx context.Context, id int64) (*models.Pessoa, error) {
	query := `SELECT * FROM pessoas WHERE id = ?`

	var p models.Pessoa
	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Pessoa not found
		}
		return nil, err
	}

	return &p, nil
}

func (r *SQLiteRepository) SearchPessoas(ctx context.Context, filter models.PessoaFilter) ([]models.Pessoa, error) {
	query := `SELECT * FROM pessoas WHERE 1=1`
	args := []interface{}{}

	if !filter.IncluirInativos {
		query += ` AND ativo = 1`
	}
	if filter.Nome != "" {
		query += ` AND nome LIKE ?`
		args = append(args, "%"+filter.Nome+"%")
	}
	if filter.CPF != "" {
		query += ` AND cpf LIKE ?`
		args = append(args, "%"+filter.CPF+"%")
	}
	if filter.Cidade != "" {
		query += ` AND cidade LIKE ?`
		args = append(args, "%"+filter.Cidade+"%")
	}
	if filter.MesAniversario != "" {
		query += ` AND substr(data_nascimento, 4, 2) = ?`
		args = append(args, padMonth(filter.MesAniversario))
	}

	query += ` ORDER BY nome`

	var pessoas []models.Pessoa
	err := r.db.SelectContext(ctx, &pessoas, query, args...)
	if err != nil {
		return nil, err
	}

	return pessoas, nil
}

func (r *SQLiteRepository) CPFExists(ctx context.Context, cpf string, excludeID int64) (bool, error) {
	query := `SELECT COUNT(*) FROM pessoas WHERE cpf = ? AND ativo = 1`
	args := []interface{}{cpf}

	if excludeID > 0 {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}

	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// GetAniversariantes lists active people born in the given month (two digit
// string), ordered by day of month and then name.
func (r *SQLiteRepository) GetAniversariantes(ctx context.Context, month string) ([]models.Pessoa, error) {
	query := `
		SELECT * FROM pessoas
		WHERE ativo = 1
			AND data_nascimento IS NOT NULL AND data_nascimento != ''
			AND substr(data_nascimento, 4, 2) = ?
		ORDER BY substr(data_nascimento, 1, 2), nome
	`

	var pessoas []models.Pessoa
	err := r.db.SelectContext(ctx, &pessoas, query, padMonth(month))
	if err != nil {
		return nil, err
	}

	return pessoas, nil
}

func (r *SQLiteRepository) GetCidades(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT cidade FROM pessoas
		WHERE ativo = 1 AND cidade IS NOT NULL AND cidade != ''
		ORDER BY cidade
	`

	var cidades []string
	err := r.db.SelectContext(ctx, &cidades, query)
	if err != nil {
		return nil, err
	}

	return cidades, nil
}

// GetDuplicateCPFs reports CPFs held by more than one active record. The
// unique index normally prevents this, but data restored from older
// backups may predate it.
func (r *SQLiteRepository) GetDuplicateCPFs(ctx context.Context) ([]models.DuplicateCPF, error) {
	query := `
		SELECT cpf, COUNT(*) AS count FROM pessoas
		WHERE ativo = 1 AND cpf IS NOT NULL AND cpf != ''
		GROUP BY cpf
		HAVING COUNT(*) > 1
		ORDER BY cpf
	`

	var dups []models.DuplicateCPF
	err := r.db.SelectContext(ctx, &dups, query)
	if err != nil {
		return nil, err
	}

	return dups, nil
}

// Evento repository methods

func (r *SQLiteRepository) AddEvento(ctx context.Context, e *models.Evento) error {
	query := `
		INSERT INTO eventos (titulo, descricao, data_evento, tipo, local,
			responsavel, ativo, criado_em, atualizado_em)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	e.Status = models.Ativo
	e.CriadoEm = validator.FormatDateTime(time.Now())

	res, err := r.db.ExecContext(ctx, query,
		e.Titulo, e.Descricao, e.DataEvento, e.Tipo, e.Local,
		e.Responsavel, e.Status, e.CriadoEm, e.AtualizadoEm)
	if err != nil {
		return err
	}

	e.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepository) UpdateEvento(ctx context.Context, e *models.Evento) (bool, error) {
	query := `
		UPDATE eventos
		SET titulo = ?, descricao = ?, data_evento = ?, tipo = ?, local = ?,
			responsavel = ?, atualizado_em = ?
		WHERE id = ?
	`

	e.AtualizadoEm = validator.FormatDateTime(time.Now())

	res, err := r.db.ExecContext(ctx, query,
		e.Titulo, e.Descricao, e.DataEvento, e.Tipo, e.Local,
		e.Responsavel, e.AtualizadoEm, e.ID)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (r *SQLiteRepository) DeleteEvento(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE eventos SET ativo = 0, atualizado_em = ? WHERE id = ? AND ativo = 1`

	res, err := r.db.ExecContext(ctx, query, validator.FormatDateTime(time.Now()), id)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (r *SQLiteRepository) GetEventoByID(ctx context.Context, id int64) (*models.Evento, error) {
	query := `SELECT * FROM eventos WHERE id = ?`

	var e models.Evento
	err := r.db.GetContext(ctx, &e, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Evento not found
		}
		return nil, err
	}

	return &e, nil
}

// SearchEventos filters by type and inclusive date bounds. Events are
// listed most recent first.
func (r *SQLiteRepository) SearchEventos(ctx context.Context, filter models.EventoFilter) ([]models.Evento, error) {
	query := `SELECT * FROM eventos WHERE 1=1`
	args := []interface{}{}

	if !filter.IncluirInativos {
		query += ` AND ativo = 1`
	}
	if filter.Tipo != "" {
		query += ` AND tipo = ?`
		args = append(args, filter.Tipo)
	}
	if filter.DataInicio != "" {
		query += ` AND ` + dateExpr("data_evento") + ` >= date(?)`
		args = append(args, isoDate(filter.DataInicio))
	}
	if filter.DataFim != "" {
		query += ` AND ` + dateExpr("data_evento") + ` <= date(?)`
		args = append(args, isoDate(filter.DataFim))
	}

	query += `
		ORDER BY substr(data_evento, 7, 4) DESC,
			substr(data_evento, 4, 2) DESC,
			substr(data_evento, 1, 2) DESC
	`

	var eventos []models.Evento
	err := r.db.SelectContext(ctx, &eventos, query, args...)
	if err != nil {
		return nil, err
	}

	return eventos, nil
}

// Ledger repository methods

func (r *SQLiteRepository) AddExpense(ctx context.Context, e *models.Expense) error {
	query := `
		INSERT INTO expenses (date, category, description, amount, month_year)
		VALUES (?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		e.Date, e.Category, e.Description, e.Amount, e.MonthYear)
	if err != nil {
		return err
	}

	e.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (r *SQLiteRepository) AddContribution(ctx context.Context, c *models.Contribution) error {
	query := `
		INSERT INTO contributions (date, type, contributor, amount, month_year)
		VALUES (?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		c.Date, c.Type, c.Contributor, c.Amount, c.MonthYear)
	if err != nil {
		return err
	}

	c.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepository) DeleteContribution(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contributions WHERE id = ?`, id)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	return rows > 0, err
}

// ExpensesByMonth lists one month's expenses, newest day first. All rows
// in a bucket share MM/YYYY, so the day substring orders them alone.
func (r *SQLiteRepository) ExpensesByMonth(ctx context.Context, monthYear string) ([]models.Expense, error) {
	query := `
		SELECT * FROM expenses
		WHERE month_year = ?
		ORDER BY substr(date, 1, 2) DESC, id DESC
	`

	var expenses []models.Expense
	err := r.db.SelectContext(ctx, &expenses, query, monthYear)
	if err != nil {
		return nil, err
	}

	return expenses, nil
}

func (r *SQLiteRepository) ContributionsByMonth(ctx context.Context, monthYear string) ([]models.Contribution, error) {
	query := `
		SELECT * FROM contributions
		WHERE month_year = ?
		ORDER BY substr(date, 1, 2) DESC, id DESC
	`

	var contributions []models.Contribution
	err := r.db.SelectContext(ctx, &contributions, query, monthYear)
	if err != nil {
		return nil, err
	}

	return contributions, nil
}

func (r *SQLiteRepository) MonthlyExpenses(ctx context.Context, monthYear string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE month_year = ?`

	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, query, monthYear)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (r *SQLiteRepository) MonthlyContributions(ctx context.Context, monthYear string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM contributions WHERE month_year = ?`

	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, query, monthYear)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (r *SQLiteRepository) CategoryTotals(ctx context.Context, monthYear string) ([]models.CategoryTotal, error) {
	query := `
		SELECT category, COALESCE(SUM(amount), 0) AS total
		FROM expenses
		WHERE month_year = ?
		GROUP BY category
		ORDER BY total DESC
	`

	var totals []models.CategoryTotal
	err := r.db.SelectContext(ctx, &totals, query, monthYear)
	if err != nil {
		return nil, err
	}

	return totals, nil
}

// AvailableMonths lists every MM/YYYY bucket with at least one movement,
// newest first.
func (r *SQLiteRepository) AvailableMonths(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT month_year FROM (
			SELECT month_year FROM expenses
			UNION
			SELECT month_year FROM contributions
		)
		ORDER BY substr(month_year, 4, 4) DESC, substr(month_year, 1, 2) DESC
	`

	var months []string
	err := r.db.SelectContext(ctx, &months, query)
	if err != nil {
		return nil, err
	}

	return months, nil
}

func (r *SQLiteRepository) ExpensesBetween(ctx context.Context, from, to string) ([]models.Expense, error) {
	query := `
		SELECT * FROM expenses
		WHERE ` + dateExpr("date") + ` BETWEEN date(?) AND date(?)
		ORDER BY substr(date, 7, 4), substr(date, 4, 2), substr(date, 1, 2), id
	`

	var expenses []models.Expense
	err := r.db.SelectContext(ctx, &expenses, query, isoDate(from), isoDate(to))
	if err != nil {
		return nil, err
	}

	return expenses, nil
}

func (r *SQLiteRepository) ContributionsBetween(ctx context.Context, from, to string) ([]models.Contribution, error) {
	query := `
		SELECT * FROM contributions
		WHERE ` + dateExpr("date") + ` BETWEEN date(?) AND date(?)
		ORDER BY substr(date, 7, 4), substr(date, 4, 2), substr(date, 1, 2), id
	`

	var contributions []models.Contribution
	err := r.db.SelectContext(ctx, &contributions, query, isoDate(from), isoDate(to))
	if err != nil {
		return nil, err
	}

	return contributions, nil
}

// GetStatistics gathers the dashboard counters inside one transaction so
// they describe a single snapshot.
func (r *SQLiteRepository) GetStatistics(ctx context.Context, now time.Time) (*models.Statistics, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	stats := &models.Statistics{}

	err = tx.GetContext(ctx, &stats.TotalPessoas,
		`SELECT COUNT(*) FROM pessoas WHERE ativo = 1`)
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &stats.AniversariantesMes, `
		SELECT COUNT(*) FROM pessoas
		WHERE ativo = 1
			AND data_nascimento IS NOT NULL AND data_nascimento != ''
			AND substr(data_nascimento, 4, 2) = ?
	`, now.Format("01"))
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &stats.TotalEventos,
		`SELECT COUNT(*) FROM eventos WHERE ativo = 1`)
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &stats.EventosProximos, `
		SELECT COUNT(*) FROM eventos
		WHERE ativo = 1
			AND `+dateExpr("data_evento")+` BETWEEN date(?) AND date(?)
	`, now.Format("2006-01-02"), now.AddDate(0, 0, 30).Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &stats.TotalCidades, `
		SELECT COUNT(DISTINCT cidade) FROM pessoas
		WHERE ativo = 1 AND cidade IS NOT NULL AND cidade != ''
	`)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return stats, nil
}

// Config repository methods

func (r *SQLiteRepository) GetConfig(ctx context.Context, chave string) (string, error) {
	query := `SELECT valor FROM config WHERE chave = ?`

	var valor string
	err := r.db.GetContext(ctx, &valor, query, chave)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil // Key not set
		}
		return "", err
	}

	return valor, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, chave, valor string) error {
	query := `INSERT OR REPLACE INTO config (chave, valor, atualizado_em) VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, chave, valor, validator.FormatDateTime(time.Now()))
	return err
}
