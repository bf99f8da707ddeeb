package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "def.json")
	if err := os.WriteFile(path, []byte(`{"type":"object"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := New().Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"type":"object"}` {
		t.Fatalf("unexpected content %q", got)
	}
	if _, err := New().Read(context.Background(), filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestReadFS(t *testing.T) {
	files := fstest.MapFS{"defs/age.json": {Data: []byte(`{"type":"object"}`)}}
	r := New(WithFS(files))
	if r.KindOf("defs/age.json") != KindFS {
		t.Fatal("expected fs kind")
	}
	got, err := r.Read(context.Background(), "/defs/age.json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"type":"object"}` {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestReadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/age.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"type":"object"}`))
	}))
	defer srv.Close()

	got, err := New().Read(context.Background(), srv.URL+"/age.json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"type":"object"}` {
		t.Fatalf("unexpected content %q", got)
	}
	if _, err := New().Read(context.Background(), srv.URL+"/missing.json"); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := New(WithoutHTTP()).Read(context.Background(), srv.URL+"/age.json"); !errors.Is(err, ErrHTTPDisabled) {
		t.Fatalf("expected ErrHTTPDisabled, got %v", err)
	}
}

func TestBase(t *testing.T) {
	cases := map[string]string{
		"defs/age.json":                      "age.json",
		"age.json":                           "age.json",
		"https://example.com/s/emp.json?v=2": "emp.json",
	}
	for in, want := range cases {
		if got := Base(in); got != want {
			t.Errorf("Base(%q) = %q, want %q", in, got, want)
		}
	}
}
