package journal

import (
	"os"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "quire-journal-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndList(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{ID: "r1", NotePath: "/v/notes/a.tex", Engine: "latex", Status: StatusOK, PDFPath: "/v/notes/a.pdf",
			Tools: []string{"pdflatex", "pdflatex"}, Pages: 3, Duration: 1500 * time.Millisecond, StartedAt: base},
		{ID: "r2", NotePath: "/v/notes/b.typ", Engine: "typst", Status: StatusFailed, ErrorKind: "invalid_input",
			Message: "typst failed: boom", StartedAt: base.Add(time.Minute)},
		{ID: "r3", NotePath: "/v/notes/a.tex", Engine: "latex", Status: StatusOK, StartedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := db.Record(e); err != nil {
			t.Fatalf("Record %s: %v", e.ID, err)
		}
	}

	all, err := db.List("", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != "r3" || all[2].ID != "r1" {
		t.Fatalf("all = %+v", all)
	}

	a, err := db.List("/v/notes/a.tex", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(a) != 2 {
		t.Fatalf("len = %d, want 2", len(a))
	}
	first := a[1]
	if first.Pages != 3 || first.Duration != 1500*time.Millisecond {
		t.Errorf("entry = %+v", first)
	}
	if len(first.Tools) != 2 || first.Tools[0] != "pdflatex" {
		t.Errorf("tools = %v", first.Tools)
	}
	if !first.StartedAt.Equal(base) {
		t.Errorf("started_at = %v, want %v", first.StartedAt, base)
	}

	failed, _ := db.List("/v/notes/b.typ", 10)
	if len(failed) != 1 || failed[0].ErrorKind != "invalid_input" || failed[0].Message != "typst failed: boom" {
		t.Errorf("failed = %+v", failed)
	}
}

func TestListLimit(t *testing.T) {
	db := testDB(t)
	for i := 0; i < 5; i++ {
		_ = db.Record(Entry{ID: string(rune('a' + i)), NotePath: "/n.tex", Status: StatusOK})
	}
	got, err := db.List("", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestListEmpty(t *testing.T) {
	got, err := testDB(t).List("/nothing.tex", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty slice", got)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	db := testDB(t)
	if err := db.Record(Entry{ID: "x", NotePath: "/a.tex", Status: StatusOK}); err != nil {
		t.Fatal(err)
	}
	if err := db.Record(Entry{ID: "x", NotePath: "/a.tex", Status: StatusOK}); err == nil {
		t.Error("expected duplicate id to fail")
	}
}

func TestListCorruptToolsFails(t *testing.T) {
	db := testDB(t)
	if err := db.Record(Entry{ID: "r1", NotePath: "/v/notes/a.tex", Status: StatusOK}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.conn.Exec(`UPDATE renders SET tools = 'not json' WHERE id = 'r1'`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.List("", 0); err == nil {
		t.Fatal("expected error for corrupt tools column")
	}
}
