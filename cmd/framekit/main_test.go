package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"framekit/internal/testsupport"
)

type cliTestEnv struct {
	configPath  string
	projectPath string
	renderDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	cfg := testsupport.NewConfig(t, testsupport.WithRenderSize(32, 18), testsupport.WithFrameRate(100))
	cfg.Logging.Level = "error"
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{
		configPath:  configPath,
		projectPath: filepath.Join(base, "projects", "demo.fkp"),
		renderDir:   cfg.Paths.RenderDir,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("framekit %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return out
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

// buildDemo creates a project with a red solid on one track.
func (env *cliTestEnv) buildDemo(t *testing.T) {
	t.Helper()
	env.mustRun(t, "project", "new", env.projectPath)
	requireContains(t, env.mustRun(t, "resources", "add-colour", "red", "#ff0000"), "resource 1")
	env.mustRun(t, "track", "add", env.projectPath, "--name", "Main")
	env.mustRun(t, "clip", "add", env.projectPath, "--kind", "solid", "--span", "0+50", "--link", "colour=1")
	env.mustRun(t, "params", "set", env.projectPath, "solid::Size", "32,18")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}

	out = env.mustRun(t, "config", "show")
	requireContains(t, out, "[render]")
	requireContains(t, out, "width = 32")
}

func TestBuildInspectAndRender(t *testing.T) {
	env := setupCLITestEnv(t)
	env.buildDemo(t)

	out := env.mustRun(t, "inspect", env.projectPath, "--json")
	var view projectView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode inspect json: %v\n%s", err, out)
	}
	if len(view.Tracks) != 1 || view.Tracks[0].Name != "Main" {
		t.Fatalf("unexpected tracks %+v", view.Tracks)
	}
	if len(view.Clips) != 1 || view.Clips[0].Kind != "solid" || view.Clips[0].Duration != 50 {
		t.Fatalf("unexpected clips %+v", view.Clips)
	}
	requireContains(t, view.Clips[0].Links["colour"], "linked")

	out = env.mustRun(t, "render", env.projectPath, "--frame", "10")
	requireContains(t, out, "demo_000010.png")

	f, err := os.Open(filepath.Join(env.renderDir, "demo_000010.png"))
	if err != nil {
		t.Fatalf("open render: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode render: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 18 {
		t.Fatalf("unexpected render size %v", b)
	}
	r, g, b, a := img.At(16, 9).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 || a>>8 != 255 {
		t.Fatalf("expected red pixel, got %d,%d,%d,%d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestClipCutAndTrackMove(t *testing.T) {
	env := setupCLITestEnv(t)
	env.buildDemo(t)

	requireContains(t, env.mustRun(t, "clip", "cut", env.projectPath, "--offset", "20"), "Cut into")
	env.mustRun(t, "track", "add", env.projectPath, "--name", "Overlay")
	env.mustRun(t, "clip", "move", env.projectPath, "--clip", "1", "--to-track", "1")
	env.mustRun(t, "track", "move", env.projectPath, "1", "0")

	out := env.mustRun(t, "inspect", env.projectPath, "--json")
	var view projectView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode inspect json: %v", err)
	}
	if len(view.Tracks) != 2 || view.Tracks[0].Name != "Overlay" || view.Tracks[1].Name != "Main" {
		t.Fatalf("unexpected track order %+v", view.Tracks)
	}
	if len(view.Clips) != 2 {
		t.Fatalf("expected 2 clips, got %+v", view.Clips)
	}
	for _, c := range view.Clips {
		switch c.Track {
		case 0:
			if c.Begin != 20 || c.Duration != 30 {
				t.Fatalf("unexpected right half %+v", c)
			}
		case 1:
			if c.Begin != 0 || c.Duration != 20 {
				t.Fatalf("unexpected left half %+v", c)
			}
		}
	}
}

func TestParamsListAndKey(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "params", "list", "solid")
	requireContains(t, out, "Solid Size")
	requireContains(t, out, "solid::Size")

	env.buildDemo(t)
	env.mustRun(t, "params", "key", env.projectPath, "clip::Opacity", "0", "0")
	env.mustRun(t, "params", "key", env.projectPath, "clip::Opacity", "40", "1")
	out = env.mustRun(t, "params", "show", env.projectPath)
	requireContains(t, out, "clip::Opacity")
	requireContains(t, out, "yes")

	if _, _, err := runCLI(t, []string{"params", "set", env.projectPath, "timecode::Prefix", "x"}, env.configPath); err == nil {
		t.Fatal("expected error setting a timecode parameter on a solid clip")
	}
}

func TestResourcesListAndRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "resources", "add-colour", "teal", "#008080")
	out, stderr, err := runCLI(t, []string{"resources", "add-image", "missing", filepath.Join(t.TempDir(), "none.png")}, env.configPath)
	if err != nil {
		t.Fatalf("add-image: %v", err)
	}
	requireContains(t, stderr, "offline")
	requireContains(t, out, "resource 2")

	out = env.mustRun(t, "resources", "list")
	requireContains(t, out, "teal")
	requireContains(t, out, "#008080ff")

	env.mustRun(t, "resources", "remove", "1")
	out = env.mustRun(t, "resources", "list")
	if strings.Contains(out, "teal") {
		t.Fatalf("expected teal removed, got:\n%s", out)
	}
}

func TestPlayAdvancesFrames(t *testing.T) {
	env := setupCLITestEnv(t)
	env.buildDemo(t)

	out := env.mustRun(t, "play", env.projectPath, "--from", "5", "--duration", "150ms")
	requireContains(t, out, "Presented")
	if strings.Contains(out, "Presented 0 frame") {
		t.Fatalf("expected frames to advance, got %q", out)
	}

	inspect := env.mustRun(t, "inspect", env.projectPath, "--json")
	var view projectView
	if err := json.Unmarshal([]byte(inspect), &view); err != nil {
		t.Fatalf("decode inspect json: %v", err)
	}
	if view.Play <= 5 {
		t.Fatalf("expected play head past 5, got %d", view.Play)
	}
}

func TestStatusReportsProjectLock(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "project", "new", env.projectPath)

	out := env.mustRun(t, "status", env.projectPath)
	requireContains(t, out, "Render directory")
	requireContains(t, out, "available")
}
