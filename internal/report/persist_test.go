package report

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/acprobe/internal/model"
)

func TestPersistAndLoad(t *testing.T) {
	t.Parallel()

	result := model.NewResult(model.NewNameSet("carol", "alice", "bob"), 42)

	for _, name := range []string{"discovered_names.json", "names.msgpack", "names.mp", "names.txt"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "nested", "dir", name)
			if err := Persist(path, result); err != nil {
				t.Fatalf("Persist() error = %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded.TotalRequests != 42 || loaded.TotalNames != 3 {
				t.Errorf("unexpected counts %+v", loaded)
			}
			if !slices.Equal(loaded.Names, []string{"alice", "bob", "carol"}) {
				t.Errorf("unexpected names %v", loaded.Names)
			}
		})
	}
}

func TestPersist_JSONLayout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	if err := Persist(path, model.NewResult(model.NewNameSet(), 3)); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"total_requests\": 3,\n  \"total_names\": 0,\n  \"names\": []\n}\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}

func TestPersist_Overwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	if err := Persist(path, model.NewResult(model.NewNameSet("a", "b", "c"), 9)); err != nil {
		t.Fatal(err)
	}
	if err := Persist(path, model.NewResult(model.NewNameSet("z"), 1)); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(loaded.Names, []string{"z"}) {
		t.Errorf("file was not replaced: %v", loaded.Names)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestPersist_NilResult(t *testing.T) {
	t.Parallel()

	if err := Persist(filepath.Join(t.TempDir(), "x.json"), nil); !errors.Is(err, ErrNoResult) {
		t.Errorf("expected ErrNoResult, got %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected ErrNotExist, got %v", err)
		}
	})

	t.Run("inconsistent record", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.json")
		body := `{"total_requests":1,"total_names":5,"names":["b","a"]}`
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); !errors.Is(err, ErrInvalidResult) {
			t.Errorf("expected ErrInvalidResult, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestFormatForPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"a.json":    FormatJSON,
		"a.MSGPACK": FormatMsgpack,
		"a.mp":      FormatMsgpack,
		"a":         FormatJSON,
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %q, want %q", path, got, want)
		}
	}
}
