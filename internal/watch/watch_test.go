package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestReadPatternFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns")
	content := "-- conclusion patterns\n?f == _\n\n(?f, _) : _  -- pairs\n   \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	lines, err := ReadPatternFile(path)
	if err != nil {
		t.Fatalf("ReadPatternFile: %v", err)
	}
	want := []string{"?f == _", "(?f, _) : _"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	if _, err := ReadPatternFile(filepath.Join(t.TempDir(), "missing")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcherDeliversSettledChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns")
	if err := os.WriteFile(path, []byte("?f == _\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := make(chan []string, 4)
	w, err := New(path, 50*time.Millisecond, nil, func(lines []string) {
		got <- lines
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	if err := os.WriteFile(path, []byte("?f == _\n(?f, _) : _\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case lines := <-got:
		want := []string{"?f == _", "(?f, _) : _"}
		if diff := cmp.Diff(want, lines); diff != "" {
			t.Errorf("delivered lines mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload delivered")
	}
	if w.Reloads() == 0 {
		t.Error("Reloads() = 0 after delivery")
	}
}

func TestWatcherCoalescesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns")

	got := make(chan []string, 16)
	w, err := New(path, 100*time.Millisecond, nil, func(lines []string) {
		got <- lines
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	// A burst of writes inside one debounce window.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("?f == _\n"), 0o644); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !waitFor(t, 3*time.Second, func() bool { return w.Reloads() >= 1 }) {
		t.Fatal("burst never delivered")
	}
	// The final content is what arrives, however the burst batched.
	lines := <-got
	if diff := cmp.Diff([]string{"?f == _"}, lines); diff != "" {
		t.Errorf("delivered lines mismatch (-want +got):\n%s", diff)
	}
	if n := w.Reloads(); n > 2 {
		t.Errorf("burst delivered %d reloads, want coalescing", n)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns")

	w, err := New(path, 50*time.Millisecond, nil, func([]string) {
		t.Error("callback fired for unrelated file")
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other"), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if w.Reloads() != 0 {
		t.Errorf("Reloads() = %d for unrelated file", w.Reloads())
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "patterns"), 0, nil, func([]string) {})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func TestWatcherMissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "no", "such", "dir", "patterns"), 0, nil, func([]string) {}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
