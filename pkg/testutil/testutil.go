// Package testutil provides shared helpers for engine tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/series"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// Frame builds a small frame from columns, failing the test on error.
func Frame(t *testing.T, cols ...*series.Series) *frame.DataFrame {
	t.Helper()
	df, err := frame.New(cols...)
	if err != nil {
		t.Fatalf("building test frame: %v", err)
	}
	return df
}

// IntFrame builds a single-column int64 frame named "v".
func IntFrame(t *testing.T, values ...int64) *frame.DataFrame {
	t.Helper()
	return Frame(t, series.NewInt64("v", values, nil))
}

// WriteFile writes data into a fresh temp directory and returns the
// file path.
func WriteFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}
