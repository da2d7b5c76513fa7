package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibvrd/cadastro-server/internal/config"
	"github.com/ibvrd/cadastro-server/internal/models"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	}
	db, err := config.SetupDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSQLiteRepository(db)
}

func addPessoa(t *testing.T, repo *SQLiteRepository, nome, cpf, cidade, nascimento string) *models.Pessoa {
	t.Helper()

	p := &models.Pessoa{
		Nome:           nome,
		CPF:            cpf,
		Cidade:         cidade,
		DataNascimento: nascimento,
	}
	require.NoError(t, repo.AddPessoa(context.Background(), p))
	return p
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)),
		"expected %s, got %s", want, got.String())
}

func TestAddAndGetPessoa(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	p := &models.Pessoa{
		Nome:           "Maria Souza",
		CPF:            "11144477735",
		Telefone:       "11987654321",
		Cidade:         "Volta Redonda",
		Bairro:         "Retiro",
		DataNascimento: "15/07/1990",
		Email:          "maria@exemplo.com",
	}
	require.NoError(t, repo.AddPessoa(ctx, p))

	assert.NotZero(t, p.ID)
	assert.Equal(t, models.Ativo, p.Status)
	assert.NotEmpty(t, p.DataCadastro)

	got, err := repo.GetPessoaByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Maria Souza", got.Nome)
	assert.Equal(t, "11144477735", got.CPF)
	assert.Equal(t, "Volta Redonda", got.Cidade)
	assert.Equal(t, models.Ativo, got.Status)
	assert.Empty(t, got.DataAtualizacao)
}

func TestGetPessoaByIDNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.GetPessoaByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdatePessoa(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	p := addPessoa(t, repo, "João Pereira", "12345678909", "Barra Mansa", "")

	p.Cidade = "Resende"
	p.Telefone = "24999998888"
	found, err := repo.UpdatePessoa(ctx, p)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEmpty(t, p.DataAtualizacao)

	got, err := repo.GetPessoaByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Resende", got.Cidade)
	assert.Equal(t, "24999998888", got.Telefone)

	missing := &models.Pessoa{ID: 999, Nome: "Ninguém"}
	found, err = repo.UpdatePessoa(ctx, missing)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeletePessoaIsSoft(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	p := addPessoa(t, repo, "Ana Lima", "52998224725", "Volta Redonda", "")

	found, err := repo.DeletePessoa(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, found)

	// the row survives, flagged inactive
	got, err := repo.GetPessoaByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.Inativo, got.Status)

	// deleting again reports not found
	found, err = repo.DeletePessoa(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRemovePessoa(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	p := addPessoa(t, repo, "Ana Lima", "52998224725", "", "")

	// removal works on inactive rows too
	_, err := repo.DeletePessoa(ctx, p.ID)
	require.NoError(t, err)

	found, err := repo.RemovePessoa(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := repo.GetPessoaByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	found, err = repo.RemovePessoa(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDuplicateCPFBlockedWhileActive(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first := addPessoa(t, repo, "Maria Souza", "11144477735", "", "")

	dup := &models.Pessoa{Nome: "Outra Maria", CPF: "11144477735"}
	err := repo.AddPessoa(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateCPF)

	// once the holder is deactivated the CPF is free again
	found, err := repo.DeletePessoa(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, repo.AddPessoa(ctx, dup))
	assert.NotZero(t, dup.ID)
}

func TestCPFExists(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	p := addPessoa(t, repo, "Maria Souza", "11144477735", "", "")

	exists, err := repo.CPFExists(ctx, "11144477735", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	// the record itself is excluded when updating
	exists, err = repo.CPFExists(ctx, "11144477735", p.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.CPFExists(ctx, "12345678909", 0)
	require.NoError(t, err)
	assert.False(t, exists)

	// inactive records do not hold a CPF
	_, err = repo.DeletePessoa(ctx, p.ID)
	require.NoError(t, err)
	exists, err = repo.CPFExists(ctx, "11144477735", 0)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSearchPessoas(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	addPessoa(t, repo, "Carlos Dias", "", "Volta Redonda", "02/07/1980")
	addPessoa(t, repo, "Ana Lima", "", "Resende", "20/07/1992")
	addPessoa(t, repo, "Beatriz Costa", "", "Volta Redonda", "05/01/1975")
	inativa := addPessoa(t, repo, "Zilda Arantes", "", "Volta Redonda", "")
	_, err := repo.DeletePessoa(ctx, inativa.ID)
	require.NoError(t, err)

	t.Run("no filter returns active ordered by name", func(t *testing.T) {
		got, err := repo.SearchPessoas(ctx, models.PessoaFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "Ana Lima", got[0].Nome)
		assert.Equal(t, "Beatriz Costa", got[1].Nome)
		assert.Equal(t, "Carlos Dias", got[2].Nome)
	})

	t.Run("name filter is a substring match", func(t *testing.T) {
		got, err := repo.SearchPessoas(ctx, models.PessoaFilter{Nome: "li"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Ana Lima", got[0].Nome)
	})

	t.Run("city filter", func(t *testing.T) {
		got, err := repo.SearchPessoas(ctx, models.PessoaFilter{Cidade: "Volta"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("birth month filter pads single digit", func(t *testing.T) {
		got, err := repo.SearchPessoas(ctx, models.PessoaFilter{MesAniversario: "7"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Ana Lima", got[0].Nome)
		assert.Equal(t, "Carlos Dias", got[1].Nome)
	})

	t.Run("filters narrow each other", func(t *testing.T) {
		got, err := repo.SearchPessoas(ctx, models.PessoaFilter{Cidade: "Volta", MesAniversario: "07"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Carlos Dias", got[0].Nome)
	})

	t.Run("inactive records come back on request", func(t *testing.T) {
		got, err := repo.SearchPessoas(ctx, models.PessoaFilter{IncluirInativos: true})
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})
}

func TestGetAniversariantes(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	addPessoa(t, repo, "Zeca Braga", "", "", "02/07/1980")
	addPessoa(t, repo, "Ana Lima", "", "", "20/07/1992")
	addPessoa(t, repo, "Beto Mota", "", "", "02/07/2001")
	addPessoa(t, repo, "Carla Nunes", "", "", "10/08/1999")
	addPessoa(t, repo, "Duda Prado", "", "", "")
	fora := addPessoa(t, repo, "Eva Rocha", "", "", "05/07/1960")
	_, err := repo.DeletePessoa(ctx, fora.ID)
	require.NoError(t, err)

	got, err := repo.GetAniversariantes(ctx, "07")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// day of month first, name breaks ties
	assert.Equal(t, "Beto Mota", got[0].Nome)
	assert.Equal(t, "Zeca Braga", got[1].Nome)
	assert.Equal(t, "Ana Lima", got[2].Nome)
}

func TestGetCidades(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	addPessoa(t, repo, "A", "", "Volta Redonda", "")
	addPessoa(t, repo, "B", "", "Barra Mansa", "")
	addPessoa(t, repo, "C", "", "Volta Redonda", "")
	addPessoa(t, repo, "D", "", "", "")
	inativa := addPessoa(t, repo, "E", "", "Angra dos Reis", "")
	_, err := repo.DeletePessoa(ctx, inativa.ID)
	require.NoError(t, err)

	cidades, err := repo.GetCidades(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Barra Mansa", "Volta Redonda"}, cidades)
}

func TestGetDuplicateCPFs(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	// databases restored from before the unique index can hold duplicates
	_, err := repo.GetDB().Exec(`DROP INDEX uq_pessoas_cpf_ativo`)
	require.NoError(t, err)

	addPessoa(t, repo, "Maria Souza", "11144477735", "", "")
	addPessoa(t, repo, "Maria Sousa", "11144477735", "", "")
	addPessoa(t, repo, "João Pereira", "12345678909", "", "")
	inativa := addPessoa(t, repo, "Pedro Paulo", "12345678909", "", "")
	_, err = repo.DeletePessoa(ctx, inativa.ID)
	require.NoError(t, err)

	dups, err := repo.GetDuplicateCPFs(ctx)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "11144477735", dups[0].CPF)
	assert.Equal(t, 2, dups[0].Count)
}

func TestEventoCRUD(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	e := &models.Evento{
		Titulo:      "Culto de Páscoa",
		DataEvento:  "31/03/2024",
		Tipo:        "culto",
		Local:       "Templo central",
		Responsavel: "Pr. Marcos",
	}
	require.NoError(t, repo.AddEvento(ctx, e))
	assert.NotZero(t, e.ID)
	assert.NotEmpty(t, e.CriadoEm)

	got, err := repo.GetEventoByID(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Culto de Páscoa", got.Titulo)
	assert.Equal(t, models.Ativo, got.Status)

	e.Local = "Salão anexo"
	found, err := repo.UpdateEvento(ctx, e)
	require.NoError(t, err)
	assert.True(t, found)

	got, err = repo.GetEventoByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Salão anexo", got.Local)
	assert.NotEmpty(t, got.AtualizadoEm)

	found, err = repo.DeleteEvento(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, found)

	got, err = repo.GetEventoByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Inativo, got.Status)

	found, err = repo.DeleteEvento(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSearchEventos(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	add := func(titulo, data, tipo string) {
		require.NoError(t, repo.AddEvento(ctx, &models.Evento{Titulo: titulo, DataEvento: data, Tipo: tipo}))
	}
	add("Culto de janeiro", "07/01/2024", "culto")
	add("Reunião de março", "05/03/2024", "reuniao")
	add("Culto de março", "31/03/2024", "culto")
	add("Festa junina", "15/06/2024", "geral")

	t.Run("recent first", func(t *testing.T) {
		got, err := repo.SearchEventos(ctx, models.EventoFilter{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "Festa junina", got[0].Titulo)
		assert.Equal(t, "Culto de março", got[1].Titulo)
		assert.Equal(t, "Reunião de março", got[2].Titulo)
		assert.Equal(t, "Culto de janeiro", got[3].Titulo)
	})

	t.Run("type filter is exact", func(t *testing.T) {
		got, err := repo.SearchEventos(ctx, models.EventoFilter{Tipo: "culto"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("date bounds are inclusive", func(t *testing.T) {
		got, err := repo.SearchEventos(ctx, models.EventoFilter{
			DataInicio: "05/03/2024",
			DataFim:    "31/03/2024",
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Culto de março", got[0].Titulo)
		assert.Equal(t, "Reunião de março", got[1].Titulo)
	})

	t.Run("open ended lower bound", func(t *testing.T) {
		got, err := repo.SearchEventos(ctx, models.EventoFilter{DataInicio: "01/04/2024"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Festa junina", got[0].Titulo)
	})
}

func TestLedgerMonthlyTotals(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	exp := &models.Expense{
		Date:      "05/03/2024",
		Category:  "Luz",
		Amount:    decimal.RequireFromString("150.00"),
		MonthYear: "03/2024",
	}
	require.NoError(t, repo.AddExpense(ctx, exp))
	assert.NotZero(t, exp.ID)

	con := &models.Contribution{
		Date:      "10/03/2024",
		Type:      "Dízimo",
		Amount:    decimal.RequireFromString("500.00"),
		MonthYear: "03/2024",
	}
	require.NoError(t, repo.AddContribution(ctx, con))
	assert.NotZero(t, con.ID)

	expenses, err := repo.MonthlyExpenses(ctx, "03/2024")
	require.NoError(t, err)
	assertDecimal(t, "150", expenses)

	contributions, err := repo.MonthlyContributions(ctx, "03/2024")
	require.NoError(t, err)
	assertDecimal(t, "500", contributions)

	// a month with no movements totals zero
	empty, err := repo.MonthlyExpenses(ctx, "04/2024")
	require.NoError(t, err)
	assertDecimal(t, "0", empty)
}

func TestCategoryTotals(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	add := func(cat, amount string) {
		require.NoError(t, repo.AddExpense(ctx, &models.Expense{
			Date: "05/03/2024", Category: cat,
			Amount: decimal.RequireFromString(amount), MonthYear: "03/2024",
		}))
	}
	add("Luz", "150.00")
	add("Água", "80.00")
	add("Luz", "50.00")

	totals, err := repo.CategoryTotals(ctx, "03/2024")
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "Luz", totals[0].Category)
	assertDecimal(t, "200", totals[0].Total)
	assert.Equal(t, "Água", totals[1].Category)
	assertDecimal(t, "80", totals[1].Total)
}

func TestAvailableMonths(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddExpense(ctx, &models.Expense{
		Date: "05/03/2024", Category: "Luz",
		Amount: decimal.RequireFromString("10"), MonthYear: "03/2024",
	}))
	require.NoError(t, repo.AddContribution(ctx, &models.Contribution{
		Date: "10/12/2023", Type: "Oferta",
		Amount: decimal.RequireFromString("10"), MonthYear: "12/2023",
	}))
	require.NoError(t, repo.AddContribution(ctx, &models.Contribution{
		Date: "02/03/2024", Type: "Dízimo",
		Amount: decimal.RequireFromString("10"), MonthYear: "03/2024",
	}))

	months, err := repo.AvailableMonths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"03/2024", "12/2023"}, months)
}

func TestExpensesBetween(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	add := func(date, cat string) {
		require.NoError(t, repo.AddExpense(ctx, &models.Expense{
			Date: date, Category: cat,
			Amount: decimal.RequireFromString("10"), MonthYear: date[3:],
		}))
	}
	add("28/02/2024", "Antes")
	add("05/03/2024", "Luz")
	add("20/03/2024", "Água")
	add("01/04/2024", "Depois")

	got, err := repo.ExpensesBetween(ctx, "01/03/2024", "31/03/2024")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// oldest first inside the period
	assert.Equal(t, "Luz", got[0].Category)
	assert.Equal(t, "Água", got[1].Category)
}

func TestDeleteLedgerEntries(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	exp := &models.Expense{Date: "05/03/2024", Category: "Luz",
		Amount: decimal.RequireFromString("10"), MonthYear: "03/2024"}
	require.NoError(t, repo.AddExpense(ctx, exp))

	found, err := repo.DeleteExpense(ctx, exp.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.DeleteExpense(ctx, exp.ID)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.DeleteContribution(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetStatistics(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 7, 15, 10, 0, 0, 0, time.Local)

	addPessoa(t, repo, "Ana Lima", "", "Volta Redonda", "20/07/1992")
	addPessoa(t, repo, "Beto Mota", "", "Volta Redonda", "05/01/2001")
	addPessoa(t, repo, "Carla Nunes", "", "Resende", "")
	inativa := addPessoa(t, repo, "Zilda Arantes", "", "Angra dos Reis", "10/07/1950")
	_, err := repo.DeletePessoa(ctx, inativa.ID)
	require.NoError(t, err)

	addEvento := func(titulo, data string) {
		require.NoError(t, repo.AddEvento(ctx, &models.Evento{Titulo: titulo, DataEvento: data}))
	}
	addEvento("Hoje", "15/07/2024")
	addEvento("Daqui a 30 dias", "14/08/2024")
	addEvento("Fora da janela", "20/09/2024")
	addEvento("Passado", "01/01/2024")

	stats, err := repo.GetStatistics(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalPessoas)
	assert.Equal(t, 1, stats.AniversariantesMes)
	assert.Equal(t, 4, stats.TotalEventos)
	assert.Equal(t, 2, stats.EventosProximos)
	assert.Equal(t, 2, stats.TotalCidades)
}

func TestConfigRoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	valor, err := repo.GetConfig(ctx, "last_backup")
	require.NoError(t, err)
	assert.Equal(t, "", valor)

	require.NoError(t, repo.SetConfig(ctx, "last_backup", "2024-07-15T10:00:00Z"))

	valor, err = repo.GetConfig(ctx, "last_backup")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-15T10:00:00Z", valor)

	require.NoError(t, repo.SetConfig(ctx, "last_backup", "2024-07-16T10:00:00Z"))

	valor, err = repo.GetConfig(ctx, "last_backup")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-16T10:00:00Z", valor)
}
