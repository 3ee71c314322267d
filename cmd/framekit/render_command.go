package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"framekit/internal/logging"
	"framekit/internal/preflight"
	"framekit/internal/project"
	"framekit/internal/render"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		first  int64
		count  int64
		outDir string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "render <project>",
		Short: "Render frames to PNG files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				count = 1
			}
			target := strings.TrimSpace(outDir)
			if target == "" {
				target = ctx.configValue().Paths.RenderDir
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create render directory: %w", err)
			}
			if res := preflight.CheckDirectoryAccess("Render directory", target); !res.Passed {
				return errors.New(res.Detail)
			}

			return ctx.withProject(cmd.Context(), args[0], false, func(p *project.Project) error {
				mgr, err := ctx.newRenderer(p)
				if err != nil {
					return err
				}
				defer mgr.Close()

				base := strings.TrimSuffix(filepath.Base(p.Path()), filepath.Ext(p.Path()))
				logger := ctx.log().With(logging.String("project", p.Path()))
				sampler := logging.NewProgressSampler(10)
				out := cmd.OutOrStdout()
				var faulted int

				for i := int64(0); i < count; i++ {
					f := first + i
					path, res, err := renderOne(cmd, p, mgr, f, target, base)
					if err != nil {
						return err
					}
					if err := res.Faults.Err(); err != nil {
						faulted++
						logging.WarnWithContext(logger, "frame rendered with clip faults", "render_faults",
							logging.Frame(f), logging.Error(err))
						if strict {
							return fmt.Errorf("frame %d: %w", f, err)
						}
					}
					if sampler.ShouldLog(i+1, count) {
						logger.Info("render progress",
							logging.Int64("done", i+1),
							logging.Int64("total", count),
							logging.String("last", path),
						)
					}
					fmt.Fprintf(out, "%s\t%d clip(s)\t%s\n", path, res.Drawn, res.Elapsed.Round(time.Microsecond))
				}
				if faulted > 0 {
					fmt.Fprintf(out, "%d frame(s) had clip faults\n", faulted)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64VarP(&first, "frame", "f", 0, "First frame to render")
	cmd.Flags().Int64VarP(&count, "count", "n", 1, "Number of consecutive frames")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: render_dir)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on the first clip fault")
	return cmd
}

// renderOne seeks to f so automation applies, composites and writes the PNG.
func renderOne(cmd *cobra.Command, p *project.Project, mgr *render.Manager, f int64, dir, base string) (string, render.Result, error) {
	tl := p.Timeline()
	if f >= tl.MaxDuration() {
		tl.TryExpandForFrame(f)
	}
	if err := tl.SetPlayPosition(f); err != nil {
		return "", render.Result{}, err
	}
	res, err := mgr.RenderFrame(cmd.Context(), f)
	if err != nil {
		return "", res, err
	}
	if res.Status != render.Completed {
		return "", res, fmt.Errorf("frame %d: render %s", f, res.Status)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%06d.png", base, f))
	file, err := os.Create(path)
	if err != nil {
		return "", res, fmt.Errorf("create %s: %w", path, err)
	}
	if err := mgr.EncodePNG(file); err != nil {
		_ = file.Close()
		return "", res, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", res, fmt.Errorf("close %s: %w", path, err)
	}
	return path, res, nil
}
