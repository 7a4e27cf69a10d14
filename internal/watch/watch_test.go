package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reoring/factskema/internal/watch"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

func TestFiles_CallsBackOnWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "facts.json")
	other := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(target, []byte("[]"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watch.Files(ctx, []string{target}, nil, func(string) { calls.Add(1) })
	}()

	// give the watcher time to register
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("[]"), 0o600))
	require.NoError(t, os.WriteFile(target, []byte("[1]"), 0o600))
	require.NoError(t, os.WriteFile(target, []byte("[1,2]"), 0o600))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestFiles_MissingDirectory(t *testing.T) {
	err := watch.Files(context.Background(), []string{filepath.Join(t.TempDir(), "nope", "f.json")}, nil, func(string) {})
	require.Error(t, err)
}
