package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"taskassign/taskboard/internal/sqlstore"
)

func main() {
	driver := os.Getenv("DB_DRIVER")
	dsn := os.Getenv("DATABASE_URL")
	if driver == "" || dsn == "" {
		fmt.Fprintln(os.Stderr, "DB_DRIVER and DATABASE_URL are required")
		os.Exit(2)
	}
	tls, _ := strconv.ParseBool(os.Getenv("DB_TLS"))

	timeout := 60 * time.Second
	if raw := os.Getenv("WAIT_FOR_DB_TIMEOUT_SEC"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			fmt.Fprintf(os.Stderr, "invalid WAIT_FOR_DB_TIMEOUT_SEC: %q\n", raw)
			os.Exit(2)
		}
		timeout = time.Duration(secs) * time.Second
	}

	ctx := context.Background()
	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(2*time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: driver, URL: dsn, TLS: tls, MaxOpenConns: 1})
		if err != nil {
			return retry.RetryableError(err)
		}
		return db.Close()
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s not ready within %s: %v\n", driver, timeout, err)
		os.Exit(1)
	}
	fmt.Printf("%s ready\n", driver)
}
