package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibvrd/cadastro-server/internal/config"
	"github.com/ibvrd/cadastro-server/internal/repository"
	"github.com/ibvrd/cadastro-server/internal/utils"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T, intervalHours, maxBackups int) (*Service, *repository.SQLiteRepository, *fakeClock) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "live.db")},
		Backup: config.BackupConfig{
			Dir:           filepath.Join(dir, "backups"),
			MaxBackups:    maxBackups,
			IntervalHours: intervalHours,
		},
	}

	db, err := config.SetupDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewSQLiteRepository(db)
	clk := &fakeClock{t: time.Date(2024, 7, 15, 10, 0, 0, 0, time.Local)}

	svc := NewService(repo, cfg, utils.NewLogger())
	svc.now = clk.Now
	return svc, repo, clk
}

func TestCreateAndShouldRun(t *testing.T) {
	svc, _, clk := newTestService(t, 24, 10)
	ctx := context.Background()

	// nothing stamped yet
	due, err := svc.ShouldRun(ctx)
	require.NoError(t, err)
	assert.True(t, due)

	info, err := svc.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backup_20240715_100000.db", info.File)
	assert.Equal(t, "15/07/2024 10:00:00", info.CreatedAt)
	assert.Greater(t, info.Size, int64(0))

	_, err = os.Stat(filepath.Join(svc.dir, info.File))
	require.NoError(t, err)

	// freshly stamped, nothing due
	due, err = svc.ShouldRun(ctx)
	require.NoError(t, err)
	assert.False(t, due)

	clk.Advance(23 * time.Hour)
	due, err = svc.ShouldRun(ctx)
	require.NoError(t, err)
	assert.False(t, due)

	clk.Advance(time.Hour)
	due, err = svc.ShouldRun(ctx)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestLastBackup(t *testing.T) {
	svc, _, clk := newTestService(t, 24, 10)
	ctx := context.Background()

	_, ok, err := svc.LastBackup(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Create(ctx)
	require.NoError(t, err)

	last, ok, err := svc.LastBackup(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(clk.Now()))
}

func TestMaybeRun(t *testing.T) {
	svc, _, _ := newTestService(t, 24, 10)
	ctx := context.Background()

	ran, err := svc.MaybeRun(ctx)
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = svc.MaybeRun(ctx)
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestRetentionDropsOldestFirst(t *testing.T) {
	svc, _, clk := newTestService(t, 24, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx)
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	names, err := svc.backupNames()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"backup_20240715_100200.db",
		"backup_20240715_100300.db",
		"backup_20240715_100400.db",
	}, names)
}

func TestListNewestFirst(t *testing.T) {
	svc, _, clk := newTestService(t, 24, 10)
	ctx := context.Background()

	_, err := svc.Create(ctx)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = svc.Create(ctx)
	require.NoError(t, err)

	infos, err := svc.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "backup_20240715_100100.db", infos[0].File)
	assert.Equal(t, "15/07/2024 10:01:00", infos[0].CreatedAt)
	assert.Equal(t, "backup_20240715_100000.db", infos[1].File)
}

func TestListEmptyDir(t *testing.T) {
	svc, _, _ := newTestService(t, 24, 10)

	infos, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestPrepareRestore(t *testing.T) {
	svc, _, _ := newTestService(t, 24, 10)
	ctx := context.Background()

	info, err := svc.Create(ctx)
	require.NoError(t, err)

	t.Run("path components are rejected", func(t *testing.T) {
		_, err := svc.PrepareRestore("../live.db")
		assert.ErrorIs(t, err, ErrInvalidFile)
		_, err = svc.PrepareRestore("/etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidFile)
		_, err = svc.PrepareRestore("")
		assert.ErrorIs(t, err, ErrInvalidFile)
	})

	t.Run("only backup files qualify", func(t *testing.T) {
		_, err := svc.PrepareRestore("notas.txt")
		assert.ErrorIs(t, err, ErrInvalidFile)
		_, err = svc.PrepareRestore("backup_sem_extensao")
		assert.ErrorIs(t, err, ErrInvalidFile)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := svc.PrepareRestore("backup_19990101_000000.db")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("existing backup resolves", func(t *testing.T) {
		path, err := svc.PrepareRestore(info.File)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(svc.dir, info.File), path)
	})
}

func TestReplaceLive(t *testing.T) {
	svc, repo, _ := newTestService(t, 24, 10)
	ctx := context.Background()

	info, err := svc.Create(ctx)
	require.NoError(t, err)

	// change the live database after the backup, then close it
	require.NoError(t, repo.SetConfig(ctx, "origem", "nova"))
	require.NoError(t, repo.GetDB().Close())

	changed, err := os.ReadFile(svc.dbPath)
	require.NoError(t, err)

	src, err := svc.PrepareRestore(info.File)
	require.NoError(t, err)
	require.NoError(t, svc.ReplaceLive(src))

	restored, err := os.ReadFile(svc.dbPath)
	require.NoError(t, err)
	fromBackup, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, fromBackup, restored)

	// the replaced database is kept as .bak
	bak, err := os.ReadFile(svc.dbPath + ".bak")
	require.NoError(t, err)
	assert.Equal(t, changed, bak)
}
