package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"framekit/internal/config"
	"framekit/internal/library"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckRenderSettings verifies the output size and background colour.
func CheckRenderSettings(cfg *config.Config) Result {
	const name = "Render settings"

	if cfg.Render.Width <= 0 || cfg.Render.Height <= 0 {
		return Result{Name: name, Detail: fmt.Sprintf("invalid size %dx%d", cfg.Render.Width, cfg.Render.Height)}
	}
	if _, err := config.ParseColor(cfg.Render.Background); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("background: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%dx%d", cfg.Render.Width, cfg.Render.Height)}
}

// CheckLibrary opens the resource catalog and lists its migrations. The
// parent directory must already exist and be writable.
func CheckLibrary(ctx context.Context, path string) Result {
	const name = "Resource library"

	dir := filepath.Dir(path)
	if res := CheckDirectoryAccess(name, dir); !res.Passed {
		return res
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	store, err := library.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()

	versions, err := store.Versions(checkCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: database busy)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d migrations)", path, len(versions))}
}
