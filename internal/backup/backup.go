// internal/backup/backup.go
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	retentionDays    = 7
	autoPrefix       = "library_"
	manualPrefix     = "library_manual_"
	dbSuffix         = ".db"
	autoStampLayout  = "2006-01-02"
	manualStampLayout = "2006-01-02_150405"
)

// Info describes one backup file.
type Info struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Service copies the SQLite database file to a backup directory. On
// a non-file database (postgres) every operation is a logged no-op.
type Service struct {
	dbPath    string
	backupDir string
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(dbPath, backupDir string, logger *zap.Logger) *Service {
	return &Service{
		dbPath:    dbPath,
		backupDir: backupDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Auto performs the nightly backup and prunes copies older than the
// retention window.
func (s *Service) Auto() (string, error) {
	if s.dbPath == "" {
		s.logger.Info("backup skipped: database is not file-backed")
		return "", nil
	}
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	stamp := s.now().Format(autoStampLayout)
	dest := filepath.Join(s.backupDir, autoPrefix+stamp+dbSuffix)
	if err := copyFile(s.dbPath, dest); err != nil {
		return "", err
	}

	s.prune()
	s.logger.Info("auto backup completed", zap.String("dest", dest))
	return dest, nil
}

// Manual performs an on-demand backup, not subject to pruning by name.
func (s *Service) Manual() (string, error) {
	if s.dbPath == "" {
		return "", fmt.Errorf("database is not file-backed")
	}
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	stamp := s.now().Format(manualStampLayout)
	dest := filepath.Join(s.backupDir, manualPrefix+stamp+dbSuffix)
	if err := copyFile(s.dbPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// List returns existing backups, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var infos []Info
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.IsDir() || !strings.HasSuffix(e.Name(), dbSuffix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Filename:  e.Name(),
			SizeBytes: fi.Size(),
			CreatedAt: fi.ModTime(),
		})
	}
	return infos, nil
}

// prune removes dated auto backups older than the retention window.
// Manual backups and unparseable names are left alone.
func (s *Service) prune() {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, autoPrefix) || !strings.HasSuffix(name, dbSuffix) {
			continue
		}
		if strings.HasPrefix(name, manualPrefix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, autoPrefix), dbSuffix)
		fileDate, err := time.Parse(autoStampLayout, stamp)
		if err != nil {
			continue
		}
		if fileDate.Before(cutoff) {
			if err := os.Remove(filepath.Join(s.backupDir, name)); err != nil {
				s.logger.Warn("failed to prune old backup", zap.String("file", name), zap.Error(err))
			}
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open database file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy database file: %w", err)
	}
	return out.Sync()
}
