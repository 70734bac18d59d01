package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Config struct {
	Driver       string
	URL          string
	TLS          bool
	MaxOpenConns int
}

// DB is a pooled handle plus the dialect its queries are built for.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open builds a driver DSN from cfg, opens the pool and pings it.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := BuildDSN(dialect, cfg.URL, cfg.TLS)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect.Name, err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	conn.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect.Name, err)
	}
	return &DB{conn: conn, dialect: dialect}, nil
}

// New wraps an already opened pool.
func New(conn *sql.DB, dialect Dialect) (*DB, error) {
	if conn == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &DB{conn: conn, dialect: dialect}, nil
}

func (d *DB) SQL() *sql.DB { return d.conn }

func (d *DB) Dialect() Dialect { return d.dialect }

func (d *DB) Ping(ctx context.Context) error { return d.conn.PingContext(ctx) }

func (d *DB) Close() error { return d.conn.Close() }

func (d *DB) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.dialect.Placeholder)
}

// insert runs q and returns the generated id. PostgreSQL has no
// LastInsertId so it gets a RETURNING clause instead.
func (d *DB) insert(ctx context.Context, q squirrel.InsertBuilder) (int64, error) {
	if d.dialect.Returning {
		query, args, err := q.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}
		var id int64
		if err := d.conn.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (d *DB) exec(ctx context.Context, q squirrel.Sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// BuildDSN turns the configured URL into the form each driver expects.
func BuildDSN(d Dialect, raw string, tls bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("database url is required")
	}
	switch d.Name {
	case Postgres.Name:
		return postgresDSN(raw, tls)
	case MySQL.Name:
		return mysqlDSN(raw, tls)
	case SQLite.Name:
		return sqliteDSN(raw)
	default:
		return "", fmt.Errorf("unsupported dialect %q", d.Name)
	}
}

func postgresDSN(raw string, tls bool) (string, error) {
	if !tls {
		return raw, nil
	}
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parse postgres url: %w", err)
		}
		q := u.Query()
		if mode := q.Get("sslmode"); mode == "" || mode == "disable" {
			q.Set("sslmode", "require")
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	if strings.Contains(raw, "sslmode=disable") {
		return strings.Replace(raw, "sslmode=disable", "sslmode=require", 1), nil
	}
	if !strings.Contains(raw, "sslmode=") {
		return raw + " sslmode=require", nil
	}
	return raw, nil
}

// mysqlDSN enables clientFoundRows so an UPDATE that changes nothing still
// reports the rows it matched, the same as the other engines.
func mysqlDSN(raw string, tls bool) (string, error) {
	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	if tls {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN(), nil
}

func sqliteDSN(raw string) (string, error) {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if raw == ":memory:" {
		return "file::memory:?cache=shared&" + pragmas, nil
	}
	if strings.HasPrefix(raw, "file:") {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		return raw + sep + pragmas, nil
	}
	if dir := filepath.Dir(raw); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	return "file:" + raw + "?" + pragmas, nil
}
