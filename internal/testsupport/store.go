package testsupport

import (
	"testing"

	"provmap/internal/config"
	"provmap/internal/report"
)

// MustOpenReport opens a report.Store for tests and registers cleanup.
func MustOpenReport(t testing.TB, cfg *config.Config) *report.Store {
	t.Helper()

	store, err := report.Open(cfg)
	if err != nil {
		t.Fatalf("report.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
