// Package report renders the printable HTML listings and the CSV export.
// Output is self contained (inline styles, no external assets) so the
// files open correctly from disk or an e-mail attachment.
package report

import (
	"encoding/csv"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibvrd/cadastro-server/internal/models"
	"github.com/ibvrd/cadastro-server/internal/validator"
)

// Generator renders reports. The clock only feeds the "Gerado em" stamp
// and the ages on the birthday listing.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a new Generator
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

var monthNames = []string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// monthName turns "07" into "Julho". Unparseable input is shown as-is.
func monthName(month string) string {
	n, err := strconv.Atoi(month)
	if err != nil || n < 1 || n > 12 {
		return month
	}
	return monthNames[n-1]
}

func (g *Generator) stamp() string {
	now := g.now()
	return now.Format("02/01/2006") + " às " + now.Format("15:04:05")
}

type pessoaRow struct {
	ID         int64
	Nome       string
	CPF        string
	Telefone   string
	Cidade     string
	Nascimento string
	Email      string
}

type eventoRow struct {
	ID          int64
	Titulo      string
	Data        string
	Tipo        string
	Local       string
	Responsavel string
}

func (g *Generator) pessoaRows(pessoas []models.Pessoa, withAge bool) []pessoaRow {
	rows := make([]pessoaRow, 0, len(pessoas))
	for _, p := range pessoas {
		row := pessoaRow{
			ID:         p.ID,
			Nome:       p.Nome,
			CPF:        validator.FormatCPF(p.CPF),
			Telefone:   validator.FormatPhone(p.Telefone),
			Cidade:     p.Cidade,
			Nascimento: p.DataNascimento,
			Email:      p.Email,
		}
		if withAge {
			row.Nascimento = validator.FormatDateWithAge(p.DataNascimento, g.now())
		}
		rows = append(rows, row)
	}
	return rows
}

func eventoRows(eventos []models.Evento) []eventoRow {
	rows := make([]eventoRow, 0, len(eventos))
	for _, e := range eventos {
		rows = append(rows, eventoRow{
			ID:          e.ID,
			Titulo:      e.Titulo,
			Data:        e.DataEvento,
			Tipo:        e.Tipo,
			Local:       e.Local,
			Responsavel: e.Responsavel,
		})
	}
	return rows
}

const reportStyle = `<style>
body { font-family: Arial, sans-serif; margin: 24px; color: #222; }
h1 { color: #2c3e50; margin-bottom: 4px; }
h2 { color: #2c3e50; border-bottom: 2px solid #2c3e50; padding-bottom: 4px; }
table { border-collapse: collapse; width: 100%; margin-bottom: 24px; }
th, td { border: 1px solid #ccc; padding: 6px 8px; text-align: left; font-size: 14px; }
th { background: #2c3e50; color: #fff; }
tr:nth-child(even) { background: #f4f6f7; }
.meta { color: #777; font-size: 12px; margin-top: 0; }
.empty { color: #777; font-style: italic; }
</style>`

var generalTmpl = template.Must(template.New("geral").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="UTF-8">
<title>{{.Titulo}}</title>
` + reportStyle + `
</head>
<body>
<h1>{{.Titulo}}</h1>
<p class="meta">Gerado em {{.GeradoEm}}</p>

<h2>Pessoas ({{len .Pessoas}})</h2>
{{if .Pessoas}}<table>
<tr><th>ID</th><th>Nome</th><th>CPF</th><th>Telefone</th><th>Cidade</th><th>Nascimento</th><th>E-mail</th></tr>
{{range .Pessoas}}<tr><td>{{.ID}}</td><td>{{.Nome}}</td><td>{{.CPF}}</td><td>{{.Telefone}}</td><td>{{.Cidade}}</td><td>{{.Nascimento}}</td><td>{{.Email}}</td></tr>
{{end}}</table>
{{else}}<p class="empty">Nenhuma pessoa para exibir.</p>
{{end}}
<h2>Eventos ({{len .Eventos}})</h2>
{{if .Eventos}}<table>
<tr><th>ID</th><th>Título</th><th>Data</th><th>Tipo</th><th>Local</th><th>Responsável</th></tr>
{{range .Eventos}}<tr><td>{{.ID}}</td><td>{{.Titulo}}</td><td>{{.Data}}</td><td>{{.Tipo}}</td><td>{{.Local}}</td><td>{{.Responsavel}}</td></tr>
{{end}}</table>
{{else}}<p class="empty">Nenhum evento para exibir.</p>
{{end}}</body>
</html>
`))

var aniversariantesTmpl = template.Must(template.New("aniversariantes").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="UTF-8">
<title>Aniversariantes de {{.Mes}} - IBVRD</title>
` + reportStyle + `
</head>
<body>
<h1>Aniversariantes de {{.Mes}}</h1>
<p class="meta">Gerado em {{.GeradoEm}}</p>

{{if .Pessoas}}<table>
<tr><th>Nascimento</th><th>Nome</th><th>Telefone</th><th>Cidade</th></tr>
{{range .Pessoas}}<tr><td>{{.Nascimento}}</td><td>{{.Nome}}</td><td>{{.Telefone}}</td><td>{{.Cidade}}</td></tr>
{{end}}</table>
{{else}}<p class="empty">Nenhum aniversariante para exibir.</p>
{{end}}</body>
</html>
`))

// TituloPadrao heads the general listing when the caller gives no title.
const TituloPadrao = "Relatório de Cadastros - IBVRD"

// WriteGeneralHTML renders the combined people and events listing.
func (g *Generator) WriteGeneralHTML(w io.Writer, title string, pessoas []models.Pessoa, eventos []models.Evento) error {
	if title == "" {
		title = TituloPadrao
	}
	data := struct {
		Titulo   string
		GeradoEm string
		Pessoas  []pessoaRow
		Eventos  []eventoRow
	}{
		Titulo:   title,
		GeradoEm: g.stamp(),
		Pessoas:  g.pessoaRows(pessoas, false),
		Eventos:  eventoRows(eventos),
	}
	return generalTmpl.Execute(w, data)
}

// WriteAniversariantesHTML renders the birthday listing for one month
// (two digit string), with the age each person turns.
func (g *Generator) WriteAniversariantesHTML(w io.Writer, month string, pessoas []models.Pessoa) error {
	data := struct {
		GeradoEm string
		Mes      string
		Pessoas  []pessoaRow
	}{
		GeradoEm: g.stamp(),
		Mes:      monthName(month),
		Pessoas:  g.pessoaRows(pessoas, true),
	}
	return aniversariantesTmpl.Execute(w, data)
}

// csvHeader is the exact column set spreadsheets in the field expect.
var csvHeader = []string{
	"ID", "Nome", "CPF", "Telefone", "Cidade", "Bairro",
	"Data Nascimento", "E-mail", "Rede Social", "Data Cadastro",
}

// WritePessoasCSV writes the member listing as semicolon-separated CSV
// with a UTF-8 BOM, the combination Excel opens with accents intact.
func (g *Generator) WritePessoasCSV(w io.Writer, pessoas []models.Pessoa) error {
	if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, p := range pessoas {
		record := []string{
			strconv.FormatInt(p.ID, 10),
			p.Nome,
			validator.FormatCPF(p.CPF),
			validator.FormatPhone(p.Telefone),
			p.Cidade,
			p.Bairro,
			p.DataNascimento,
			p.Email,
			p.RedeSocial,
			p.DataCadastro,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

var ledgerCSVHeader = []string{"Data", "Tipo", "Descrição", "Valor", "Saldo"}

// money renders a decimal with the comma separator pt-BR spreadsheets use.
func money(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func kindLabel(kind string) string {
	if kind == "expense" {
		return "Despesa"
	}
	return "Contribuição"
}

// WriteLedgerCSV writes a period statement as semicolon-separated CSV
// with a UTF-8 BOM: one row per movement with the running balance, then
// the period totals.
func (g *Generator) WriteLedgerCSV(w io.Writer, report *models.PeriodReport) error {
	if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(ledgerCSVHeader); err != nil {
		return err
	}

	for _, entry := range report.Entries {
		record := []string{
			entry.Date,
			kindLabel(entry.Kind),
			entry.Description,
			money(entry.Amount),
			money(entry.Balance),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	totals := [][]string{
		{"", "", "Total de Despesas", money(report.TotalExpenses), ""},
		{"", "", "Total de Contribuições", money(report.TotalContributions), ""},
		{"", "", "Saldo do Período", money(report.Balance), ""},
	}
	for _, record := range totals {
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
