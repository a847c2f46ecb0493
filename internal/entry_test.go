package internal

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/vaultsearch/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	vaultDir, _ := testutil.TestVault(t)
	cfg := NewDefaultConfig()
	cfg.Vault.Path = vaultDir
	return cfg
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestRun_StopsOnStdinEOF(t *testing.T) {
	cfg := testConfig(t)
	testutil.WriteNote(t, cfg.Vault.Path, "Notes/a.md", testutil.NoteFields{Gist: "alpha"})

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(),
			WithConfig(cfg),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithStdio(strings.NewReader(""), io.Discard))
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after stdin closed")
	}

	svc, err := Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()
	stats, err := svc.Engine.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.DocumentCount != 1 {
		t.Errorf("initial sync indexed %d notes, want 1", stats.DocumentCount)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx,
			WithConfig(cfg),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithStdio(pr, io.Discard))
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(ApplicationConfig{LogFormat: LogFormatJSON}, &buf).Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	NewLogger(ApplicationConfig{LogFormat: LogFormatText}, &buf).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text output = %q", buf.String())
	}

	buf.Reset()
	NewLogger(ApplicationConfig{LogLevel: slog.LevelWarn}, &buf).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}
