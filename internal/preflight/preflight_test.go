package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"framekit/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRenderSettings(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.Config)
		wantPass   bool
		wantDetail string
	}{
		{name: "defaults", mutate: func(*config.Config) {}, wantPass: true},
		{name: "zero width", mutate: func(c *config.Config) { c.Render.Width = 0 }, wantDetail: "invalid size"},
		{name: "bad colour", mutate: func(c *config.Config) { c.Render.Background = "teal" }, wantDetail: "background"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			result := CheckRenderSettings(&cfg)
			if result.Passed != tt.wantPass {
				t.Fatalf("expected passed=%v, got %+v", tt.wantPass, result)
			}
			if tt.wantDetail != "" && !strings.Contains(result.Detail, tt.wantDetail) {
				t.Fatalf("expected detail containing %q, got %q", tt.wantDetail, result.Detail)
			}
		})
	}
}

func TestCheckLibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	result := CheckLibrary(context.Background(), path)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "2 migrations") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}

	missing := filepath.Join(t.TempDir(), "absent", "library.db")
	if result := CheckLibrary(context.Background(), missing); result.Passed {
		t.Fatal("expected failure for missing parent directory")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RenderDir = base
	cfg.Paths.LogDir = base
	cfg.Paths.LibraryDB = filepath.Join(base, "library.db")

	results := RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_ReportsMissingRenderDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.RenderDir = filepath.Join(t.TempDir(), "missing")
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.LibraryDB = ""

	failed := Failed(RunAll(context.Background(), &cfg))
	if len(failed) != 1 || failed[0].Name != "Render directory" {
		t.Fatalf("expected only render directory failure, got %+v", failed)
	}
}

func TestProbeProject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.fkp")
	if probe := ProbeProject(path); probe.Exists || probe.Locked {
		t.Fatalf("expected missing project, got %+v", probe)
	}
	if err := os.WriteFile(path, []byte("settings: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if probe := ProbeProject(path); !probe.Exists || probe.Locked {
		t.Fatalf("expected available project, got %+v", probe)
	}

	held := flock.New(path + ".lock")
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock failed: %v", err)
	}
	defer held.Unlock()

	probe := ProbeProject(path)
	if !probe.Locked {
		t.Fatalf("expected locked project, got %+v", probe)
	}
	if !strings.Contains(probe.Detail(), "another editor") {
		t.Fatalf("unexpected detail %q", probe.Detail())
	}
}
