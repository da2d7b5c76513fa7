package testutils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ibvrd/cadastro-server/internal/api"
	"github.com/ibvrd/cadastro-server/internal/backup"
	"github.com/ibvrd/cadastro-server/internal/config"
	"github.com/ibvrd/cadastro-server/internal/report"
	"github.com/ibvrd/cadastro-server/internal/repository"
	"github.com/ibvrd/cadastro-server/internal/service"
	"github.com/ibvrd/cadastro-server/internal/utils"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository repository.Repository
	Cfg        *config.Config

	// every database the rebuild func ever opened; restore closes the
	// old one itself, Close here is idempotent
	dbs []*sqlx.DB
}

// SetupTestContext creates a new test context over a throwaway database
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "test.db")},
		Backup: config.BackupConfig{
			Dir:           filepath.Join(dir, "backups"),
			MaxBackups:    5,
			IntervalHours: 24,
		},
	}

	tc := &TestContext{Cfg: cfg}
	logger := utils.NewLogger()

	build := func() (*api.Deps, error) {
		db, err := config.SetupDatabase(cfg)
		if err != nil {
			return nil, err
		}
		tc.dbs = append(tc.dbs, db)

		repo := repository.NewSQLiteRepository(db)
		tc.Repository = repo

		return &api.Deps{
			DB:      db,
			Pessoas: service.NewPessoaService(repo),
			Eventos: service.NewEventoService(repo),
			Ledger:  service.NewLedgerService(repo),
			Stats:   service.NewStatsService(repo),
			Backups: backup.NewService(repo, cfg, logger),
			Reports: report.NewGenerator(),
		}, nil
	}

	deps, err := build()
	require.NoError(t, err, "Failed to set up test database")

	handler := api.NewHandler(deps, build, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(api.RequestIDMiddleware())
	handler.SetupRoutes(router)

	tc.Router = router
	return tc
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(tc *TestContext) {
	for _, db := range tc.dbs {
		db.Close()
	}
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
