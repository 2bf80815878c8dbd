package core

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestWorker_RunText(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := NewWorker(0)
	rs, err := w.RunText(context.Background(), "Name,Age", "age,name\n30,Alice")
	if err != nil {
		t.Fatalf("RunText() error = %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("len(rs) = %d, want 1", len(rs))
	}
	if v, _ := rs[0].Get("Name"); v != "Alice" {
		t.Errorf("Name = %q, want Alice", v)
	}
	if v, _ := rs[0].Get("Age"); v != "30" {
		t.Errorf("Age = %q, want 30", v)
	}
}

func TestWorker_RunTextWithByteOrderMark(t *testing.T) {
	defer goleak.VerifyNone(t)

	rs, err := NewWorker(0).RunText(context.Background(), "\uFEFFname,age\n", "\uFEFFage,name\n30,Alice")
	if err != nil {
		t.Fatalf("RunText() error = %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("len(rs) = %d, want 1", len(rs))
	}
	if names := rs[0].Names(); names[0] != "name" {
		t.Errorf("first header = %q, want name", names[0])
	}
	if v, _ := rs[0].Get("name"); v != "Alice" {
		t.Errorf("name = %q, want Alice", v)
	}
	if v, _ := rs[0].Get("age"); v != "30" {
		t.Errorf("age = %q, want 30", v)
	}
}

func TestWorker_RunFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path1 := writeTempFile(t, dir, "target.csv", "\xEF\xBB\xBFId,Email\n")
	path2 := writeTempFile(t, dir, "source.csv", "\xEF\xBB\xBFemail,id\r\nana@example.com,1\r\n")

	rs, err := NewWorker(1024).Run(context.Background(), path1, path2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("len(rs) = %d, want 1", len(rs))
	}
	if got := rs[0].Names(); got[0] != "Id" {
		t.Errorf("first header = %q, want Id (BOM should be stripped)", got[0])
	}
	if v, _ := rs[0].Get("Id"); v != "1" {
		t.Errorf("Id = %q, want 1", v)
	}

	// Inputs belong to the caller and must still exist.
	for _, p := range []string{path1, path2} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("input %s was removed: %v", p, err)
		}
	}
}

func TestWorker_RunEmptyInput(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path1 := writeTempFile(t, dir, "a.csv", "   \n")
	path2 := writeTempFile(t, dir, "b.csv", "x\n1")

	_, err := NewWorker(0).Run(context.Background(), path1, path2)
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Run() error = %v, want ErrEmptyInput", err)
	}
	if IsWorkerFailure(err) {
		t.Error("empty input must not be reported as a worker failure")
	}
}

func TestWorker_RunMissingFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path1 := writeTempFile(t, dir, "a.csv", "x\n")

	_, err := NewWorker(0).Run(context.Background(), path1, filepath.Join(dir, "nope.csv"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Run() error = %v, want fs.ErrNotExist", err)
	}
	if IsWorkerFailure(err) {
		t.Error("missing file must not be reported as a worker failure")
	}
}

func TestWorker_RunFileTooLarge(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path1 := writeTempFile(t, dir, "a.csv", "x\n")
	path2 := writeTempFile(t, dir, "b.csv", "x\n1\n2\n3\n4\n5\n")

	_, err := NewWorker(4).Run(context.Background(), path1, path2)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Run() error = %v, want ErrFileTooLarge", err)
	}
}

func TestWorker_PanicBecomesWorkerFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := NewWorker(0)
	w.align = func(string, string) (ResultSet, error) {
		var rs ResultSet
		_ = rs[3] // index out of range
		return rs, nil
	}

	ctx := ContextWithJobID(context.Background(), "job-1")
	rs, err := w.RunText(ctx, "a", "a\n1")

	if rs != nil {
		t.Errorf("rs = %v, want nil", rs)
	}
	var we *WorkerError
	if !errors.As(err, &we) {
		t.Fatalf("RunText() error = %v, want *WorkerError", err)
	}
	if we.JobID != "job-1" {
		t.Errorf("JobID = %q, want job-1", we.JobID)
	}
	var rtErr runtime.Error
	if !errors.As(err, &rtErr) {
		t.Errorf("expected the runtime panic to be unwrappable, got %v", err)
	}
}

func TestWorker_GoexitBecomesWorkerFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := NewWorker(0)
	w.align = func(string, string) (ResultSet, error) {
		runtime.Goexit()
		return nil, nil
	}

	_, err := w.RunText(context.Background(), "a", "a\n1")
	if !IsWorkerFailure(err) {
		t.Fatalf("RunText() error = %v, want worker failure", err)
	}
	if !errors.Is(err, errNoOutcome) {
		t.Errorf("error = %v, want errNoOutcome cause", err)
	}
}

func TestWorker_ContextDoneStopsWaiting(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	finished := make(chan struct{})

	w := NewWorker(0)
	w.align = func(a, b string) (ResultSet, error) {
		defer close(finished)
		<-release
		return Align(a, b)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := w.RunText(ctx, "a", "a\n1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunText() error = %v, want context.DeadlineExceeded", err)
	}

	// The abandoned goroutine still completes into its buffered channel.
	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("worker goroutine did not finish")
	}
}

func TestWorker_ConcurrentInvocationsAreIndependent(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := NewWorker(0)
	inputs := []struct{ table2, want string }{
		{"v\none", "one"},
		{"v\ntwo", "two"},
		{"v\nthree", "three"},
		{"v\nfour", "four"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		for _, in := range inputs {
			wg.Add(1)
			go func(table2, want string) {
				defer wg.Done()
				rs, err := w.RunText(context.Background(), "V", table2)
				if err != nil {
					t.Errorf("RunText() error = %v", err)
					return
				}
				if v, _ := rs[0].Get("V"); v != want {
					t.Errorf("V = %q, want %q", v, want)
				}
			}(in.table2, in.want)
		}
	}
	wg.Wait()
}
