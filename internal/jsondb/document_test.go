package jsondb

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
)

// testList is a simple document type for testing.
type testList []int

func (l testList) Clone() testList {
	return slices.Clip(slices.Clone(l))
}

func (l testList) Validate() error {
	for _, v := range l {
		if v < 0 {
			return errors.New("negative value")
		}
	}
	return nil
}

// failingBackend wraps a backend and fails every Store once armed.
type failingBackend struct {
	Backend
	fail bool
}

func (b *failingBackend) Store(name string, data []byte) error {
	if b.fail {
		return errors.New("disk full")
	}
	return b.Backend.Store(name, data)
}

func setupFileBackend(t *testing.T) (*FileBackend, string) {
	dir := filepath.Join(t.TempDir(), "data")
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	return b, dir
}

func appendValue(v int) func(testList) (testList, error) {
	return func(l testList) (testList, error) {
		return append(l, v), nil
	}
}

func TestOpen_Seeds(t *testing.T) {
	b, dir := setupFileBackend(t)
	d, err := Open(b, "list.json", testList{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := d.Get(); len(got) != 0 {
		t.Errorf("Get() = %v, want empty", got)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "list.json"))
	if err != nil {
		t.Fatalf("seed not written: %v", err)
	}
	if string(raw) != "[]\n" {
		t.Errorf("seed = %q, want %q", raw, "[]\n")
	}
}

func TestOpen_Reload(t *testing.T) {
	b, _ := setupFileBackend(t)
	d, err := Open(b, "list.json", testList{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := d.Modify(appendValue(i)); err != nil {
			t.Fatalf("Modify(%d) failed: %v", i, err)
		}
	}
	d2, err := Open(b, "list.json", testList{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got, want := d2.Get(), (testList{1, 2, 3}); !slices.Equal(got, want) {
		t.Errorf("reloaded = %v, want %v", got, want)
	}
}

func TestOpen_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", "[1, 2"},
		{"wrong type", `{"a":1}`},
		{"invalid value", "[1, -2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, dir := setupFileBackend(t)
			path := filepath.Join(dir, "list.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Open(b, "list.json", testList{})
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("Open error = %v, want ErrCorrupt", err)
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(raw) != tt.content {
				t.Errorf("corrupt file was rewritten: %q", raw)
			}
		})
	}
}

func TestModify_Rollback(t *testing.T) {
	fb, _ := setupFileBackend(t)
	b := &failingBackend{Backend: fb}
	d, err := Open[testList](b, "list.json", testList{7})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("callback error", func(t *testing.T) {
		want := errors.New("rejected")
		err := d.Modify(func(l testList) (testList, error) {
			l = append(l, 8)
			return l, want
		})
		if !errors.Is(err, want) {
			t.Errorf("Modify error = %v, want %v", err, want)
		}
		if got := d.Get(); !slices.Equal(got, testList{7}) {
			t.Errorf("Get() = %v, want [7]", got)
		}
	})

	t.Run("store error", func(t *testing.T) {
		b.fail = true
		defer func() { b.fail = false }()
		if err := d.Modify(appendValue(9)); err == nil {
			t.Fatal("expected error")
		}
		if got := d.Get(); !slices.Equal(got, testList{7}) {
			t.Errorf("Get() = %v, want [7]", got)
		}
	})
}

func TestModify_GetIsStable(t *testing.T) {
	b, _ := setupFileBackend(t)
	d, err := Open(b, "list.json", testList{1})
	if err != nil {
		t.Fatal(err)
	}
	before := d.Get()
	if err := d.Modify(appendValue(2)); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(before, testList{1}) {
		t.Errorf("earlier snapshot changed to %v", before)
	}
}

func TestModify_Concurrent(t *testing.T) {
	b, _ := setupFileBackend(t)
	d, err := Open(b, "list.json", testList{})
	if err != nil {
		t.Fatal(err)
	}
	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.Modify(appendValue(i)); err != nil {
				t.Errorf("Modify(%d) failed: %v", i, err)
			}
		}()
	}
	wg.Wait()

	got := slices.Clone(d.Get())
	slices.Sort(got)
	if len(got) != n {
		t.Fatalf("len = %d, want %d", len(got), n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestFileBackend_NoTempLeftovers(t *testing.T) {
	b, dir := setupFileBackend(t)
	d, err := Open(b, "list.json", testList{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Modify(appendValue(1)); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "list.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir contains %v, want only list.json", names)
	}
}

func TestSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "test.sqlite")
	b, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if _, err := b.Load("missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want ErrNotExist", err)
	}
	d, err := Open(b, "list", testList{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Modify(appendValue(4)); err != nil {
		t.Fatal(err)
	}
	if err := d.Modify(appendValue(5)); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopening applies no migration twice and sees the stored rows.
	b, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	d, err = Open(b, "list", testList{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := d.Get(), (testList{4, 5}); !slices.Equal(got, want) {
		t.Errorf("reloaded = %v, want %v", got, want)
	}
}
