package aggregate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/tenderscan/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestLoadDir tests recursive loading in file order.
func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "q_089.csv"), "title,authority,date,url\nB,Y,2000-02-01,u2\n")
	writeFile(t, filepath.Join(dir, "q_088.csv"), "title,authority,date,url\nA,X,1999-01-01,u1\n")
	writeFile(t, filepath.Join(dir, "sub", "q_090.csv"), "url,date,authority,title\nu3,,Z,C\n")
	writeFile(t, filepath.Join(dir, "agg.json"), "[]")

	records, stats, err := LoadDir(t.Context(), dir, WithConcurrency(2), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	want := []model.TenderRecord{
		{Title: "A", Authority: "X", Date: model.NewDate(1999, 1, 1), URL: "u1"},
		{Title: "B", Authority: "Y", Date: model.NewDate(2000, 2, 1), URL: "u2"},
		{Title: "C", Authority: "Z", URL: "u3"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Stats{Files: 3, Records: 3}, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

// TestLoadDir_Errors tests fatal load errors.
func TestLoadDir_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing column", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "ok.csv"), "title,authority,date,url\n")
		writeFile(t, filepath.Join(dir, "bad.csv"), "title,authority,url\nA,X,u\n")

		_, _, err := LoadDir(t.Context(), dir)
		if !errors.Is(err, ErrMissingColumn) {
			t.Fatalf("expected ErrMissingColumn, got %v", err)
		}
		if !strings.Contains(err.Error(), "bad.csv") {
			t.Errorf("expected file path in error, got %q", err.Error())
		}
	})

	t.Run("not a directory", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "file.csv")
		writeFile(t, path, "title,authority,date,url\n")

		if _, _, err := LoadDir(t.Context(), path); !errors.Is(err, ErrNotDirectory) {
			t.Errorf("expected ErrNotDirectory, got %v", err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()

		if _, _, err := LoadDir(t.Context(), filepath.Join(t.TempDir(), "none")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.csv"), "title,authority,date,url\n")

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, _, err := LoadDir(ctx, dir); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestReadCSV tests row-level parsing.
func TestReadCSV(t *testing.T) {
	t.Parallel()

	t.Run("malformed date skips the row", func(t *testing.T) {
		t.Parallel()

		in := "title,authority,date,url\nA,X,2020/01/01,u1\nB,Y,2020-01-02,u2\n"
		records, skipped, err := ReadCSV(strings.NewReader(in), discardLogger())
		if err != nil {
			t.Fatalf("ReadCSV() error = %v", err)
		}
		if skipped != 1 {
			t.Errorf("skipped = %d, want 1", skipped)
		}
		if len(records) != 1 || records[0].Title != "B" {
			t.Errorf("unexpected records: %+v", records)
		}
	})

	t.Run("byte order mark and quoted fields", func(t *testing.T) {
		t.Parallel()

		in := "\ufefftitle,authority,date,url\n\"配電, 工程\",台灣電力,,\"https://x/?a=1&b=2\"\n"
		records, _, err := ReadCSV(strings.NewReader(in), discardLogger())
		if err != nil {
			t.Fatalf("ReadCSV() error = %v", err)
		}
		want := []model.TenderRecord{{Title: "配電, 工程", Authority: "台灣電力", URL: "https://x/?a=1&b=2"}}
		if diff := cmp.Diff(want, records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		if _, _, err := ReadCSV(strings.NewReader(""), discardLogger()); !errors.Is(err, ErrMissingColumn) {
			t.Errorf("expected ErrMissingColumn, got %v", err)
		}
	})
}

type fakeStore struct {
	records []model.TenderRecord
	err     error
	query   string
}

func (f *fakeStore) ListTenders(_ context.Context, query string) ([]model.TenderRecord, error) {
	f.query = query
	return f.records, f.err
}

// TestFromStore tests loading from a record source.
func TestFromStore(t *testing.T) {
	t.Parallel()

	t.Run("returns stored records", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{records: []model.TenderRecord{{Title: "A"}}}
		got, err := FromStore(t.Context(), store, "q")
		if err != nil {
			t.Fatalf("FromStore() error = %v", err)
		}
		if store.query != "q" || len(got) != 1 {
			t.Errorf("unexpected result: query=%q records=%v", store.query, got)
		}
	})

	t.Run("wraps errors", func(t *testing.T) {
		t.Parallel()

		sentinel := errors.New("boom")
		if _, err := FromStore(t.Context(), &fakeStore{err: sentinel}, "q"); !errors.Is(err, sentinel) {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})
}
