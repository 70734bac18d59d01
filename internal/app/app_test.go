package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskassign/taskboard/internal/auth"
	"taskassign/taskboard/internal/config"
	"taskassign/taskboard/internal/sqlstore"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		HTTP: config.HTTPConfig{
			Addr:            "127.0.0.1:0",
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
		},
		Database: config.DatabaseConfig{
			Driver:       config.DriverSQLite,
			URL:          filepath.Join(dir, "app.db"),
			MaxOpenConns: 2,
			AutoMigrate:  true,
		},
		Auth: config.AuthConfig{
			SessionSecret:     "test-secret",
			SessionTTL:        time.Hour,
			SessionStore:      config.SessionStoreSQL,
			CookieName:        "taskboard_session",
			BootstrapUsername: "root",
			BootstrapPassword: "Adm1nPass!",
			RateLimit:         "5-M",
		},
		Tasks:        config.TasksConfig{EnforceAssignee: true},
		Log:          config.LogConfig{Level: "error"},
		AuditLogFile: filepath.Join(dir, "audit.log"),
	}
}

func TestNewMigratesAndBootstrapsAdmin(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(a.close)

	require.NotNil(t, a.sessions, "sql session store should be kept for purging")

	users, err := sqlstore.NewUserStore(a.db)
	require.NoError(t, err)
	admin, err := users.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, admin.Role)
}

func TestNewIsIdempotentAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	first, err := New(ctx, cfg)
	require.NoError(t, err)
	first.close()

	second, err := New(ctx, cfg)
	require.NoError(t, err)
	second.close()
}

func TestNewWithRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Auth.SessionStore = config.SessionStoreRedis
	cfg.Auth.RedisURL = "redis://" + mr.Addr()

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.close)

	assert.NotNil(t, a.redis)
	assert.Nil(t, a.sessions)
}

func TestNewFailsWhenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Auth.SessionStore = config.SessionStoreRedis
	cfg.Auth.RedisURL = "redis://" + addr

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "ping redis")
}

func TestRunReturnsAfterCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
