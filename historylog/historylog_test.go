package historylog

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecord_AssignsIDWhenEmpty(t *testing.T) {
	l := openTestLog(t)

	id, err := l.Record(Run{
		Path:      "src/main/java/App.java",
		StartedAt: time.Unix(1000, 0),
		BaseRef:   "main",
		LeftRef:   "feature-a",
		RightRef:  "feature-b",
		ExitCode:  0,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated run ID")
	}
}

func TestRecord_PersistsConflicts(t *testing.T) {
	l := openTestLog(t)

	id, err := l.Record(Run{
		Path:                "Foo.java",
		StartedAt:           time.Unix(2000, 0),
		BaseRef:             "main",
		LeftRef:             "a",
		RightRef:            "b",
		HasConflict:         true,
		ContentConflicts:    1,
		StructuralConflicts: 1,
		ExitCode:            1,
		Conflicts: []Conflict{
			{Kind: "content", Role: "MODIFIER", Detail: "public vs private"},
			{Kind: "structural", Role: "TYPE_MEMBER", Detail: "insert/insert"},
		},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	conflicts, err := l.Conflicts(id)
	if err != nil {
		t.Fatalf("Conflicts: %v", err)
	}
	if len(conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(conflicts))
	}
	if conflicts[0].Kind != "content" || conflicts[1].Kind != "structural" {
		t.Errorf("unexpected conflict order/kinds: %+v", conflicts)
	}
}

func TestRecent_OrdersNewestFirst(t *testing.T) {
	l := openTestLog(t)

	if _, err := l.Record(Run{Path: "A.java", StartedAt: time.Unix(1000, 0), BaseRef: "m", LeftRef: "l", RightRef: "r"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Record(Run{Path: "B.java", StartedAt: time.Unix(3000, 0), BaseRef: "m", LeftRef: "l", RightRef: "r"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Record(Run{Path: "C.java", StartedAt: time.Unix(2000, 0), BaseRef: "m", LeftRef: "l", RightRef: "r"}); err != nil {
		t.Fatal(err)
	}

	runs, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	want := []string{"B.java", "C.java", "A.java"}
	for i, r := range runs {
		if r.Path != want[i] {
			t.Errorf("runs[%d].Path = %q, want %q", i, r.Path, want[i])
		}
	}
}

func TestForPath_FiltersByPath(t *testing.T) {
	l := openTestLog(t)

	if _, err := l.Record(Run{Path: "A.java", StartedAt: time.Unix(1000, 0), BaseRef: "m", LeftRef: "l", RightRef: "r"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Record(Run{Path: "B.java", StartedAt: time.Unix(1500, 0), BaseRef: "m", LeftRef: "l", RightRef: "r"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Record(Run{Path: "A.java", StartedAt: time.Unix(2000, 0), BaseRef: "m", LeftRef: "l", RightRef: "r"}); err != nil {
		t.Fatal(err)
	}

	runs, err := l.ForPath("A.java", 10)
	if err != nil {
		t.Fatalf("ForPath: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs for A.java, got %d", len(runs))
	}
	for _, r := range runs {
		if r.Path != "A.java" {
			t.Errorf("unexpected path %q in A.java results", r.Path)
		}
	}
}
