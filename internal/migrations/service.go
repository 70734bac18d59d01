package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"taskassign/taskboard/internal/sqlstore"
)

//go:embed sql
var embedded embed.FS

type FileInfo struct {
	Name     string `json:"name"`
	Version  int64  `json:"version"`
	Checksum string `json:"checksum"`
}

type Status struct {
	Name      string `json:"name"`
	Version   int64  `json:"version"`
	Checksum  string `json:"checksum"`
	Applied   bool   `json:"applied"`
	AppliedAt string `json:"applied_at,omitempty"`
}

// Service applies and reports the embedded schema migrations for one dialect.
type Service struct {
	fsys     fs.FS
	provider *goose.Provider
}

func New(db *sql.DB, dialect sqlstore.Dialect) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	dir := path.Join("sql", dialect.Name)
	fsys, err := fs.Sub(embedded, dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations for %s: %w", dialect.Name, err)
	}
	provider, err := goose.NewProvider(goose.Dialect(dialect.GooseDialect), db, fsys)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return &Service{fsys: fsys, provider: provider}, nil
}

// Up applies every pending migration and returns the names applied.
func (s *Service) Up(ctx context.Context) ([]string, error) {
	results, err := s.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	applied := make([]string, 0, len(results))
	for _, r := range results {
		applied = append(applied, path.Base(r.Source.Path))
	}
	return applied, nil
}

func (s *Service) Version(ctx context.Context) (int64, error) {
	v, err := s.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (s *Service) List() ([]FileInfo, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := fs.ReadFile(s.fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		version, err := goose.NumericComponent(e.Name())
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", e.Name(), err)
		}
		sum := sha256.Sum256(b)
		out = append(out, FileInfo{Name: e.Name(), Version: version, Checksum: hex.EncodeToString(sum[:])})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *Service) Status(ctx context.Context) ([]Status, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}
	states, err := s.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	applied := make(map[int64]time.Time, len(states))
	for _, st := range states {
		if st.State == goose.StateApplied {
			applied[st.Source.Version] = st.AppliedAt
		}
	}

	out := make([]Status, 0, len(files))
	for _, f := range files {
		at, ok := applied[f.Version]
		st := Status{Name: f.Name, Version: f.Version, Checksum: f.Checksum, Applied: ok}
		if ok {
			st.AppliedAt = at.UTC().Format(time.RFC3339)
		}
		out = append(out, st)
	}
	return out, nil
}
