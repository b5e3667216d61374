package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/cwrk-planet/poll-service/internal/service"
	"github.com/cwrk-planet/poll-service/internal/sqlite"
	"github.com/cwrk-planet/poll-service/internal/storetest"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "poll.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) service.Store {
		return openTestStore(t)
	})
}

func TestOpen_ReappliesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poll.db")
	for range 2 {
		st, err := sqlite.Open(path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if err := st.Ping(t.Context()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
		st.Close()
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := sqlite.Open("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
