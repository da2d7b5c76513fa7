package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/ibvrd/cadastro-server/internal/backup"
	"github.com/ibvrd/cadastro-server/internal/models"
	"github.com/ibvrd/cadastro-server/internal/report"
	"github.com/ibvrd/cadastro-server/internal/service"
	"github.com/ibvrd/cadastro-server/internal/utils"
)

// Deps bundles the per-database dependency set. Restore closes the live
// database file and swaps in a freshly built set, so everything holding
// a connection lives here and is replaced in one step.
type Deps struct {
	DB      *sqlx.DB
	Pessoas service.PessoaService
	Eventos service.EventoService
	Ledger  service.LedgerService
	Stats   service.StatsService
	Backups *backup.Service
	Reports *report.Generator
}

// Handler handles HTTP requests for the application. All routes except
// restore read the dependency set under a shared lock; restore takes the
// exclusive lock, waits out in-flight requests and swaps the set.
type Handler struct {
	mu      sync.RWMutex
	deps    *Deps
	rebuild func() (*Deps, error)
	logger  *utils.Logger
}

// NewHandler creates a new Handler. rebuild reopens the database and
// reconstructs the dependency set after a restore.
func NewHandler(deps *Deps, rebuild func() (*Deps, error), logger *utils.Logger) *Handler {
	return &Handler{
		deps:    deps,
		rebuild: rebuild,
		logger:  logger,
	}
}

// SetupRoutes configures all the routes for the API
func (h *Handler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(h.holdShared())
	{
		people := api.Group("/people")
		{
			people.GET("", h.SearchPessoas)
			people.POST("", h.AddPessoa)
			people.GET("/birthdays", h.Aniversariantes)
			people.GET("/cities", h.Cidades)
			people.GET("/duplicates", h.DuplicateCPFs)
			people.GET("/:id", h.GetPessoa)
			people.PUT("/:id", h.UpdatePessoa)
			people.DELETE("/:id", h.DeletePessoa)
		}

		events := api.Group("/events")
		{
			events.GET("", h.SearchEventos)
			events.POST("", h.AddEvento)
			events.GET("/upcoming", h.EventosProximos)
			events.GET("/:id", h.GetEvento)
			events.PUT("/:id", h.UpdateEvento)
			events.DELETE("/:id", h.DeleteEvento)
		}

		ledger := api.Group("/ledger")
		{
			ledger.GET("/expenses", h.ExpensesByMonth)
			ledger.POST("/expenses", h.AddExpense)
			ledger.DELETE("/expenses/:id", h.DeleteExpense)
			ledger.GET("/contributions", h.ContributionsByMonth)
			ledger.POST("/contributions", h.AddContribution)
			ledger.DELETE("/contributions/:id", h.DeleteContribution)
			ledger.GET("/summary", h.MonthlySummary)
			ledger.GET("/categories", h.CategoryTotals)
			ledger.GET("/months", h.AvailableMonths)
			ledger.GET("/report", h.PeriodReport)
		}

		api.GET("/statistics", h.Statistics)

		export := api.Group("/export")
		{
			export.GET("/html", h.ExportHTML)
			export.GET("/csv", h.ExportCSV)
			export.GET("/birthdays", h.ExportAniversariantes)
			export.GET("/ledger", h.ExportLedgerCSV)
		}

		api.GET("/backups", h.ListBackups)
		api.POST("/backups", h.CreateBackup)
	}

	// restore takes the exclusive lock itself, so it must stay outside
	// the shared-lock group
	router.POST("/api/backups/restore", h.RestoreBackup)
}

// holdShared keeps the read lock for the whole request, so a restore
// never swaps the dependency set under a running handler.
func (h *Handler) holdShared() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.mu.RLock()
		defer h.mu.RUnlock()
		c.Next()
	}
}

// RunAutoBackup runs the due-backup check against the current dependency
// set. The scheduler calls this instead of holding its own reference,
// which would go stale after a restore.
func (h *Handler) RunAutoBackup(ctx context.Context) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.deps.Backups.MaybeRun(ctx)
}

// Close releases the current database handle.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deps.DB.Close()
}

// fail translates an error into the HTTP response the client sees.
func (h *Handler) fail(c *gin.Context, err error) {
	var validation *service.ValidationError
	var conflict *service.ConflictError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "VALIDATION_ERROR",
			Message: validation.Error(),
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:  "error",
			Code:    "CONFLICT",
			Message: conflict.Error(),
		})
	case errors.Is(err, backup.ErrInvalidFile):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "VALIDATION_ERROR",
			Message: "Nome de arquivo de backup inválido.",
		})
	case errors.Is(err, backup.ErrFileNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "NOT_FOUND",
			Message: "Arquivo de backup não encontrado.",
		})
	default:
		h.logger.Error("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: "Erro interno do servidor.",
		})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "VALIDATION_ERROR",
		Message: message,
	})
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Status:  "error",
		Code:    "NOT_FOUND",
		Message: message,
	})
}

// parseID reads the :id path parameter. It writes the error response
// itself and reports false when the value is not a positive integer.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "ID inválido.")
		return 0, false
	}
	return id, true
}

// currentMonth pads the month of today to two digits ("07").
func currentMonth() string {
	return fmt.Sprintf("%02d", int(time.Now().Month()))
}

// Pessoa handlers

func (h *Handler) AddPessoa(c *gin.Context) {
	var input models.PessoaInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Requisição inválida.")
		return
	}

	p, err := h.deps.Pessoas.Add(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPessoa(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.deps.Pessoas.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if p == nil {
		notFound(c, "Pessoa não encontrada.")
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePessoa(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var input models.PessoaInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Requisição inválida.")
		return
	}

	p, err := h.deps.Pessoas.Update(c.Request.Context(), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	if p == nil {
		notFound(c, "Pessoa não encontrada.")
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePessoa(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	hard := c.Query("hard") == "true"
	found, err := h.deps.Pessoas.Delete(c.Request.Context(), id, hard)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		notFound(c, "Pessoa não encontrada.")
		return
	}

	message := "Pessoa desativada."
	if hard {
		message = "Pessoa removida definitivamente."
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: message})
}

func (h *Handler) SearchPessoas(c *gin.Context) {
	filter := models.PessoaFilter{
		Nome:            c.Query("nome"),
		CPF:             c.Query("cpf"),
		Cidade:          c.Query("cidade"),
		MesAniversario:  c.Query("mes_aniversario"),
		IncluirInativos: c.Query("incluir_inativos") == "true",
	}

	pessoas, err := h.deps.Pessoas.Search(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if pessoas == nil {
		pessoas = []models.Pessoa{}
	}

	c.JSON(http.StatusOK, pessoas)
}

func (h *Handler) Aniversariantes(c *gin.Context) {
	month := c.DefaultQuery("month", currentMonth())

	pessoas, err := h.deps.Pessoas.Aniversariantes(c.Request.Context(), month)
	if err != nil {
		h.fail(c, err)
		return
	}
	if pessoas == nil {
		pessoas = []models.Pessoa{}
	}

	c.JSON(http.StatusOK, pessoas)
}

func (h *Handler) Cidades(c *gin.Context) {
	cidades, err := h.deps.Pessoas.Cidades(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if cidades == nil {
		cidades = []string{}
	}

	c.JSON(http.StatusOK, cidades)
}

func (h *Handler) DuplicateCPFs(c *gin.Context) {
	dups, err := h.deps.Pessoas.DuplicateCPFs(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if dups == nil {
		dups = []models.DuplicateCPF{}
	}

	c.JSON(http.StatusOK, dups)
}

// Evento handlers

func (h *Handler) AddEvento(c *gin.Context) {
	var input models.EventoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Requisição inválida.")
		return
	}

	e, err := h.deps.Eventos.Add(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEvento(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	e, err := h.deps.Eventos.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if e == nil {
		notFound(c, "Evento não encontrado.")
		return
	}

	c.JSON(http.StatusOK, e)
}

func (h *Handler) UpdateEvento(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var input models.EventoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Requisição inválida.")
		return
	}

	e, err := h.deps.Eventos.Update(c.Request.Context(), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	if e == nil {
		notFound(c, "Evento não encontrado.")
		return
	}

	c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEvento(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	found, err := h.deps.Eventos.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		notFound(c, "Evento não encontrado.")
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Evento desativado."})
}

func (h *Handler) SearchEventos(c *gin.Context) {
	filter := models.EventoFilter{
		Tipo:            c.Query("tipo"),
		DataInicio:      c.Query("data_inicio"),
		DataFim:         c.Query("data_fim"),
		IncluirInativos: c.Query("incluir_inativos") == "true",
	}

	eventos, err := h.deps.Eventos.Search(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if eventos == nil {
		eventos = []models.Evento{}
	}

	c.JSON(http.StatusOK, eventos)
}

func (h *Handler) EventosProximos(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	eventos, err := h.deps.Eventos.Proximos(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	if eventos == nil {
		eventos = []models.Evento{}
	}

	c.JSON(http.StatusOK, eventos)
}

// Ledger handlers

func (h *Handler) AddExpense(c *gin.Context) {
	var input models.ExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Requisição inválida.")
		return
	}

	e, err := h.deps.Ledger.AddExpense(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, e)
}

func (h *Handler) DeleteExpense(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	found, err := h.deps.Ledger.DeleteExpense(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		notFound(c, "Despesa não encontrada.")
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Despesa removida."})
}

func (h *Handler) AddContribution(c *gin.Context) {
	var input models.ContributionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Requisição inválida.")
		return
	}

	contrib, err := h.deps.Ledger.AddContribution(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, contrib)
}

func (h *Handler) DeleteContribution(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	found, err := h.deps.Ledger.DeleteContribution(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		notFound(c, "Contribuição não encontrada.")
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Contribuição removida."})
}

func (h *Handler) ExpensesByMonth(c *gin.Context) {
	expenses, err := h.deps.Ledger.ExpensesByMonth(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}

	c.JSON(http.StatusOK, expenses)
}

func (h *Handler) ContributionsByMonth(c *gin.Context) {
	contributions, err := h.deps.Ledger.ContributionsByMonth(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if contributions == nil {
		contributions = []models.Contribution{}
	}

	c.JSON(http.StatusOK, contributions)
}

func (h *Handler) MonthlySummary(c *gin.Context) {
	summary, err := h.deps.Ledger.MonthlySummary(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) CategoryTotals(c *gin.Context) {
	totals, err := h.deps.Ledger.CategoryTotals(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if totals == nil {
		totals = []models.CategoryTotal{}
	}

	c.JSON(http.StatusOK, totals)
}

func (h *Handler) AvailableMonths(c *gin.Context) {
	months, err := h.deps.Ledger.AvailableMonths(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if months == nil {
		months = []string{}
	}

	c.JSON(http.StatusOK, months)
}

func (h *Handler) PeriodReport(c *gin.Context) {
	statement, err := h.deps.Ledger.PeriodReport(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, statement)
}

// Statistics handler

func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.deps.Stats.Overview(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Export handlers stream the generated document as a download.

func (h *Handler) ExportHTML(c *gin.Context) {
	ctx := c.Request.Context()

	pessoas, err := h.deps.Pessoas.Search(ctx, models.PessoaFilter{})
	if err != nil {
		h.fail(c, err)
		return
	}
	eventos, err := h.deps.Eventos.Search(ctx, models.EventoFilter{})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="relatorio_cadastros.html"`)
	c.Status(http.StatusOK)

	if err := h.deps.Reports.WriteGeneralHTML(c.Writer, c.Query("title"), pessoas, eventos); err != nil {
		h.logger.Error("error writing html export: %v", err)
	}
}

func (h *Handler) ExportCSV(c *gin.Context) {
	pessoas, err := h.deps.Pessoas.Search(c.Request.Context(), models.PessoaFilter{})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="pessoas.csv"`)
	c.Status(http.StatusOK)

	if err := h.deps.Reports.WritePessoasCSV(c.Writer, pessoas); err != nil {
		h.logger.Error("error writing csv export: %v", err)
	}
}

func (h *Handler) ExportAniversariantes(c *gin.Context) {
	month := c.DefaultQuery("month", currentMonth())

	pessoas, err := h.deps.Pessoas.Aniversariantes(c.Request.Context(), month)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="aniversariantes_%s.html"`, month))
	c.Status(http.StatusOK)

	if err := h.deps.Reports.WriteAniversariantesHTML(c.Writer, month, pessoas); err != nil {
		h.logger.Error("error writing birthday export: %v", err)
	}
}

func (h *Handler) ExportLedgerCSV(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")

	statement, err := h.deps.Ledger.PeriodReport(c.Request.Context(), from, to)
	if err != nil {
		h.fail(c, err)
		return
	}

	name := fmt.Sprintf("livro_caixa_%s_%s.csv",
		strings.ReplaceAll(from, "/", "-"), strings.ReplaceAll(to, "/", "-"))

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Status(http.StatusOK)

	if err := h.deps.Reports.WriteLedgerCSV(c.Writer, statement); err != nil {
		h.logger.Error("error writing ledger export: %v", err)
	}
}

// Backup handlers

func (h *Handler) ListBackups(c *gin.Context) {
	infos, err := h.deps.Backups.List()
	if err != nil {
		h.fail(c, err)
		return
	}
	if infos == nil {
		infos = []models.BackupInfo{}
	}

	c.JSON(http.StatusOK, infos)
}

func (h *Handler) CreateBackup(c *gin.Context) {
	info, err := h.deps.Backups.Create(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

// RestoreBackup swaps the live database for the named backup. It holds
// the exclusive lock across close, file swap and rebuild, so no request
// observes a half-restored state.
func (h *Handler) RestoreBackup(c *gin.Context) {
	var req models.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Requisição inválida.")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	src, err := h.deps.Backups.PrepareRestore(req.Arquivo)
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.deps.DB.Close(); err != nil {
		h.logger.Error("error closing database before restore: %v", err)
	}

	restoreErr := h.deps.Backups.ReplaceLive(src)

	deps, err := h.rebuild()
	if err != nil {
		h.logger.Error("error reopening database after restore: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao reabrir o banco de dados.",
		})
		return
	}
	h.deps = deps

	if restoreErr != nil {
		h.fail(c, restoreErr)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Backup restaurado com sucesso."})
}
