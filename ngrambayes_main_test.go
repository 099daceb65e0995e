package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/hickeroar/ngrambayes/config"
)

type fakeServer struct {
	listenErr   error
	shutdownErr error
	listened    atomic.Bool
}

func (f *fakeServer) ListenAndServe() error {
	f.listened.Store(true)
	return f.listenErr
}

func (f *fakeServer) Shutdown(context.Context) error {
	return f.shutdownErr
}

func TestRunMainSuccessPath(t *testing.T) {
	oldRunMain := runMain
	oldMakeSignal := makeSignalChannel
	oldNotify := notifySignals
	oldNewServer := newServer
	oldLogFatal := logFatal
	oldArgs := os.Args
	defer func() {
		runMain = oldRunMain
		makeSignalChannel = oldMakeSignal
		notifySignals = oldNotify
		newServer = oldNewServer
		logFatal = oldLogFatal
		os.Args = oldArgs
	}()

	sigCh := make(chan os.Signal, 1)
	makeSignalChannel = func() chan os.Signal { return sigCh }
	notifySignals = func(chan<- os.Signal, ...os.Signal) {}

	server := &fakeServer{listenErr: http.ErrServerClosed}
	var capturedHandler http.Handler
	logFatal = func(...interface{}) {}

	var addr string
	newServer = func(a string, handler http.Handler) httpServer {
		addr = a
		capturedHandler = handler
		return server
	}
	os.Args = []string{"ngrambayes.test", "serve", "--port", "9999", "--auth-token", "secret-token", "--log-level", "error"}

	done := make(chan error, 1)
	go func() {
		done <- runMain()
	}()

	sigCh <- syscall.SIGTERM

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil runMain error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for runMain to exit")
	}

	_ = server.listened.Load()

	if capturedHandler == nil {
		t.Fatal("expected handler to be provided to server")
	}
	if addr != ":9999" {
		t.Fatalf("unexpected listen address: %q", addr)
	}

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rr := httptest.NewRecorder()
	capturedHandler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected protected endpoint to require auth token, got status %d", rr.Code)
	}
}

func TestMainHandlesRunError(t *testing.T) {
	oldRunMain := runMain
	oldLogFatal := logFatal
	defer func() {
		runMain = oldRunMain
		logFatal = oldLogFatal
	}()

	expectedErr := errors.New("boom")
	runMain = func() error { return expectedErr }

	called := false
	logFatal = func(v ...interface{}) {
		called = true
		if len(v) != 1 {
			t.Fatalf("unexpected fatal args: %v", v)
		}
		if !errors.Is(v[0].(error), expectedErr) {
			t.Fatalf("unexpected fatal error: %v", v[0])
		}
	}

	main()
	if !called {
		t.Fatal("expected main to call logFatal on error")
	}
}

// runCommand executes the CLI with args and returns its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"sports.txt":        "run fast\nscore the winning goal\n",
		"cooking/bread.txt": "bake bread slowly",
		"cooking/soup.html": "<p>simmer the <b>soup</b></p>",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestTrainCommandPrintsStats(t *testing.T) {
	dir := writeCorpus(t)

	out, err := runCommand(t, "train", "--corpus", dir, "--ngram-depth", "2", "--log-level", "error")
	if err != nil {
		t.Fatalf("train returned error: %v", err)
	}

	var stats InfoClassifierResponse
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("failed to unmarshal stats: %v\n%s", err, out)
	}
	if stats.DocumentCount != 4 || stats.NgramDepth != 2 || !stats.Finalized {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if want := []string{"cooking", "sports"}; !reflect.DeepEqual(stats.CategoryOrder, want) {
		t.Fatalf("unexpected category order: got %v, want %v", stats.CategoryOrder, want)
	}
}

func TestClassifyCommand(t *testing.T) {
	dir := writeCorpus(t)

	out, err := runCommand(t, "classify", "--corpus", dir, "--softmax", "--log-level", "error", "bake", "bread")
	if err != nil {
		t.Fatalf("classify returned error: %v", err)
	}

	var result ClassifyOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to unmarshal output: %v\n%s", err, out)
	}
	if result.Category != "cooking" {
		t.Fatalf("unexpected category: got %q, want %q", result.Category, "cooking")
	}
	if sum := result.Scores["cooking"] + result.Scores["sports"]; sum < 0.999999 || sum > 1.000001 {
		t.Fatalf("expected probabilities to sum to 1, got %f", sum)
	}
}

func TestCommandsRequireCorpus(t *testing.T) {
	if _, err := runCommand(t, "train"); !errors.Is(err, errNoCorpus) {
		t.Fatalf("expected errNoCorpus, got %v", err)
	}
	if _, err := runCommand(t, "classify"); err == nil {
		t.Fatal("expected classify without text to fail")
	}
}

func TestCommandsRejectInvalidConfiguration(t *testing.T) {
	dir := writeCorpus(t)
	tests := [][]string{
		{"train", "--corpus", dir, "--ngram-depth", "0"},
		{"train", "--corpus", dir, "--stemmer", "lovins"},
		{"train", "--corpus", dir, "--sqlite", "corpus.db"},
		{"train", "--config", filepath.Join(dir, "missing.yaml")},
	}
	for _, args := range tests {
		if _, err := runCommand(t, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ngrambayes.yaml")
	content := "port: \"7000\"\nclassifier:\n  ngram_depth: 3\n  alpha: 0.25\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	root := newRootCommand()
	var loaded config.Config
	for _, sub := range root.Commands() {
		if sub.Name() == "serve" {
			sub.RunE = func(cmd *cobra.Command, _ []string) error {
				var err error
				loaded, err = loadConfig(cmd)
				return err
			}
		}
	}
	root.SetArgs([]string{"serve", "--config", path, "--ngram-depth", "2", "--auto-finalize=false"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if loaded.Port != "7000" || loaded.Classifier.Alpha != 0.25 {
		t.Fatalf("file values should be kept: %+v", loaded)
	}
	if loaded.Classifier.NgramDepth != 2 || loaded.AutoFinalize {
		t.Fatalf("flags should override the file: %+v", loaded)
	}
}
