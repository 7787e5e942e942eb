package duck

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEngineWithConn creates a UTC engine and a connection for testing.
func testEngineWithConn(t *testing.T) (*Engine, Connection) {
	t.Helper()
	ctx := context.Background()

	engine, err := NewEngine(ctx, testLogger(), EngineConfig{TimeZone: "UTC"})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	conn, err := engine.Conn(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return engine, conn
}

// dirStore resets local directories; the real implementation lives in the
// storage package, which imports this one.
type dirStore struct {
	resets []string
}

func (d *dirStore) Reset(ctx context.Context, loc Location) error {
	d.resets = append(d.resets, loc.String())
	if err := os.RemoveAll(loc.Path); err != nil {
		return err
	}
	return os.MkdirAll(loc.Path, 0o755)
}

// failingStore fails every reset.
type failingStore struct{}

func (failingStore) Reset(ctx context.Context, loc Location) error {
	return errors.New("storage unavailable")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
