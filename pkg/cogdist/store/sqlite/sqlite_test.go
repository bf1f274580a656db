package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cognicore/cogdist/pkg/cogdist/store"
	"github.com/cognicore/cogdist/pkg/cogdist/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer st.Close()
	storetest.Run(t, st)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	run, err := st.CreateRun(ctx, store.Run{Mode: "all"})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	if _, ok, err := st.GetRun(ctx, run.ID); err != nil || !ok {
		t.Errorf("run lost after reopen: %v, found=%v", err, ok)
	}
}
