package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the differences between the supported engines that the
// stores care about.
type Dialect struct {
	Name         string
	DriverName   string
	Placeholder  squirrel.PlaceholderFormat
	Returning    bool
	GooseDialect string
}

var (
	Postgres = Dialect{
		Name:         "postgres",
		DriverName:   "postgres",
		Placeholder:  squirrel.Dollar,
		Returning:    true,
		GooseDialect: "postgres",
	}
	MySQL = Dialect{
		Name:         "mysql",
		DriverName:   "mysql",
		Placeholder:  squirrel.Question,
		GooseDialect: "mysql",
	}
	SQLite = Dialect{
		Name:         "sqlite",
		DriverName:   "sqlite",
		Placeholder:  squirrel.Question,
		GooseDialect: "sqlite3",
	}
)

func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Postgres.Name, "postgresql":
		return Postgres, nil
	case MySQL.Name:
		return MySQL, nil
	case SQLite.Name, "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
