package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("thinkalike"),
		postgres.WithUsername("thinkalike"),
		postgres.WithPassword("thinkalike"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	conn, err := Open(dsn, PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))
	return conn
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("", PoolConfig{})
	assert.Error(t, err)
	assert.Error(t, Migrate(nil))
}

func TestEventLog(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	events := NewEventLog(conn)

	require.NoError(t, events.Record(ctx, Event{RoomCode: "ABC123", Type: "join", PlayerID: "p1"}, map[string]string{"name": "Alice"}))
	require.NoError(t, events.Record(ctx, Event{RoomCode: "ABC123", Type: "start", PlayerID: "p1", Round: 1}, nil))
	require.NoError(t, events.Record(ctx, Event{RoomCode: "XYZ789", Type: "join", PlayerID: "p9"}, nil))
	assert.Error(t, events.Record(ctx, Event{Type: "join"}, nil))

	listed, err := events.List(ctx, "ABC123", 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "join", listed[0].Type)
	assert.JSONEq(t, `{"name":"Alice"}`, string(listed[0].Payload))
	assert.Equal(t, 1, listed[1].Round)

	limited, err := events.List(ctx, "ABC123", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, events.DeleteRoom(ctx, "ABC123"))
	listed, err = events.List(ctx, "ABC123", 0)
	require.NoError(t, err)
	assert.Empty(t, listed)
	listed, err = events.List(ctx, "XYZ789", 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestTopicLibrary(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "topics.csv")
	require.NoError(t, os.WriteFile(path, []byte("category,text\nfood,Fruits\nanimals,Pets\nfood,Fruits\n"), 0o644))

	loaded, err := LoadTopicLibrary(conn, path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded)

	all, err := ListTopics(ctx, conn, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fruits", "Pets"}, all)

	food, err := ListTopics(ctx, conn, "food")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fruits"}, food)
}
