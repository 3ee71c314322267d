package preflight

import (
	"context"

	"framekit/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Render directory", cfg.Paths.RenderDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckRenderSettings(cfg),
	}
	if cfg.Paths.LibraryDB != "" {
		results = append(results, CheckLibrary(ctx, cfg.Paths.LibraryDB))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
