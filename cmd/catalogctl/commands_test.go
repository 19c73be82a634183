package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu     sync.Mutex
	models string
	puts   []string
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":"opaque"}`)
	})
	mux.HandleFunc("/api/models", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		fmt.Fprint(w, f.models)
	})
	mux.HandleFunc("/api/models/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		f.mu.Lock()
		f.puts = append(f.puts, r.URL.Path)
		f.mu.Unlock()
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"7","name":"TopLine","image":"/uploads/cover.jpg"}]`)
	})
	mux.HandleFunc("/api/categories/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	return mux
}

func runCLI(t *testing.T, backendURL string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetErr(&out)
	base := []string{
		"--backend-url", backendURL,
		"--email", "admin@example.com",
		"--password", "secret",
		"--db", fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
	}
	cmd.SetArgs(append(args, base...))
	err := cmd.Execute()
	return out.String(), err
}

func TestExportAndRestore(t *testing.T) {
	fb := &fakeBackend{models: `[{"id":"1","name":"TL850","categoryId":"7","imageFile":"/images/TopLine850/a%20b.jpg"}]`}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "catalog.json")
	out, err := runCLI(t, srv.URL, "export", "-o", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "exported 1 models, 1 categories")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"imageFile": "a b.jpg"`)

	out, err = runCLI(t, srv.URL, "restore", path, "--dry-run")
	require.NoError(t, err, out)
	assert.Contains(t, out, "dry run: 0 created, 2 updated")
	assert.Empty(t, fb.puts)

	out, err = runCLI(t, srv.URL, "restore", path)
	require.NoError(t, err, out)
	assert.Equal(t, []string{"/api/models/1"}, fb.puts)
}

func TestRestore_NeedsFileOrLatest(t *testing.T) {
	srv := httptest.NewServer((&fakeBackend{models: `[]`}).handler(t))
	defer srv.Close()

	_, err := runCLI(t, srv.URL, "restore")

	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	fb := &fakeBackend{models: `[
		{"id":"1","name":"TL850","categoryId":"7","imageFile":"a.jpg"},
		{"id":"2","name":"ZZ100","categoryId":"7"}
	]`}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()

	out, err := runCLI(t, srv.URL, "check")

	assert.Error(t, err)
	assert.Contains(t, out, "missing_image")
	assert.Contains(t, out, "legacy_path /uploads/cover.jpg")
}

func TestCheck_ProbeClean(t *testing.T) {
	fb := &fakeBackend{models: `[{"id":"1","name":"TL850","categoryId":"7","imageFile":"a.jpg"}]`}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer site.Close()

	out, err := runCLI(t, srv.URL, "check", "--probe", "--site", site.URL)

	require.NoError(t, err, out)
	assert.Contains(t, out, "0 broken")
}

func TestPrune(t *testing.T) {
	srv := httptest.NewServer((&fakeBackend{models: `[]`}).handler(t))
	defer srv.Close()

	_, err := runCLI(t, srv.URL, "export", "-o", filepath.Join(t.TempDir(), "c.json"))
	require.NoError(t, err)

	out, err := runCLI(t, srv.URL, "prune", "--older-than", "1h")

	require.NoError(t, err, out)
	assert.Contains(t, out, "pruned 0 snapshots")
}
