// Package backup copies the database file aside and brings old copies
// back. A backup is a plain file copy, which is safe because the
// database runs without WAL and holds no open transaction between
// requests.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ibvrd/cadastro-server/internal/config"
	"github.com/ibvrd/cadastro-server/internal/models"
	"github.com/ibvrd/cadastro-server/internal/repository"
	"github.com/ibvrd/cadastro-server/internal/utils"
	"github.com/ibvrd/cadastro-server/internal/validator"
)

const (
	filePrefix = "backup_"
	fileSuffix = ".db"
	stampKey   = "last_backup"
	nameLayout = "20060102_150405"
)

var (
	// ErrInvalidFile rejects restore names that are not plain backup
	// file names (path separators, wrong prefix or extension).
	ErrInvalidFile = errors.New("nome de arquivo de backup inválido")
	// ErrFileNotFound reports a restore name with no file behind it.
	ErrFileNotFound = errors.New("arquivo de backup não encontrado")
)

// Service creates, lists and restores database backups
type Service struct {
	repo       repository.Repository
	dbPath     string
	dir        string
	maxBackups int
	interval   time.Duration
	logger     *utils.Logger
	now        func() time.Time
}

// NewService creates a new backup Service
func NewService(repo repository.Repository, cfg *config.Config, logger *utils.Logger) *Service {
	return &Service{
		repo:       repo,
		dbPath:     cfg.Database.Path,
		dir:        cfg.Backup.Dir,
		maxBackups: cfg.Backup.MaxBackups,
		interval:   time.Duration(cfg.Backup.IntervalHours) * time.Hour,
		logger:     logger,
		now:        time.Now,
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Create copies the live database into the backup directory, stamps the
// run in the config table and prunes copies beyond the retention limit.
func (s *Service) Create(ctx context.Context) (*models.BackupInfo, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating backup dir: %w", err)
	}

	now := s.now()
	name := filePrefix + now.Format(nameLayout) + fileSuffix
	dst := filepath.Join(s.dir, name)

	if err := copyFile(s.dbPath, dst); err != nil {
		return nil, fmt.Errorf("error copying database: %w", err)
	}

	if err := s.repo.SetConfig(ctx, stampKey, now.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("error stamping backup: %w", err)
	}

	if err := s.prune(); err != nil {
		s.logger.Error("backup retention failed: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup created: %s (%d bytes)", name, info.Size())
	return &models.BackupInfo{
		File:      name,
		Size:      info.Size(),
		CreatedAt: validator.FormatDateTime(now),
	}, nil
}

// backupNames lists the backup files in the directory, oldest first. The
// timestamp in the name sorts lexically.
func (s *Service) backupNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// prune deletes the oldest copies until at most maxBackups remain.
func (s *Service) prune() error {
	if s.maxBackups <= 0 {
		return nil
	}

	names, err := s.backupNames()
	if err != nil {
		return err
	}

	for len(names) > s.maxBackups {
		if err := os.Remove(filepath.Join(s.dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}

// List describes the backups on disk, newest first.
func (s *Service) List() ([]models.BackupInfo, error) {
	names, err := s.backupNames()
	if err != nil {
		return nil, err
	}

	infos := make([]models.BackupInfo, 0, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		st, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}

		created := st.ModTime()
		if ts, err := time.ParseInLocation(nameLayout,
			strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), time.Local); err == nil {
			created = ts
		}

		infos = append(infos, models.BackupInfo{
			File:      name,
			Size:      st.Size(),
			CreatedAt: validator.FormatDateTime(created),
		})
	}
	return infos, nil
}

// LastBackup returns the time of the last successful backup. ok is false
// when none was ever stamped (or the stamp is unreadable).
func (s *Service) LastBackup(ctx context.Context) (time.Time, bool, error) {
	stamp, err := s.repo.GetConfig(ctx, stampKey)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("error reading backup stamp: %w", err)
	}
	if stamp == "" {
		return time.Time{}, false, nil
	}

	last, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, false, nil
	}
	return last, true, nil
}

// ShouldRun reports whether the configured interval has elapsed since
// the last stamped backup. A missing or unreadable stamp means yes.
func (s *Service) ShouldRun(ctx context.Context) (bool, error) {
	last, ok, err := s.LastBackup(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	return s.now().Sub(last) >= s.interval, nil
}

// MaybeRun creates a backup when one is due. It reports whether a backup
// actually ran.
func (s *Service) MaybeRun(ctx context.Context) (bool, error) {
	due, err := s.ShouldRun(ctx)
	if err != nil || !due {
		return false, err
	}

	if _, err := s.Create(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// PrepareRestore validates a backup file name and resolves it inside the
// backup directory. Names carrying paths are rejected outright.
func (s *Service) PrepareRestore(file string) (string, error) {
	if file == "" || filepath.Base(file) != file {
		return "", ErrInvalidFile
	}
	if !strings.HasPrefix(file, filePrefix) || !strings.HasSuffix(file, fileSuffix) {
		return "", ErrInvalidFile
	}

	path := filepath.Join(s.dir, file)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrFileNotFound
		}
		return "", err
	}
	return path, nil
}

// ReplaceLive copies the chosen backup over the live database, keeping
// the current file next to it as <name>.bak. The caller must close every
// database connection before calling this and reopen afterwards.
func (s *Service) ReplaceLive(srcPath string) error {
	if _, err := os.Stat(s.dbPath); err == nil {
		if err := copyFile(s.dbPath, s.dbPath+".bak"); err != nil {
			return fmt.Errorf("error saving current database: %w", err)
		}
	}

	if err := copyFile(srcPath, s.dbPath); err != nil {
		return fmt.Errorf("error restoring backup: %w", err)
	}

	s.logger.Info("database restored from %s", filepath.Base(srcPath))
	return nil
}
