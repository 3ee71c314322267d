package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"framekit/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [project...]",
		Short: "Check directories, settings and project locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results)+len(args))
			for _, r := range results {
				rows = append(rows, []string{r.Name, statusText(r.Passed), r.Detail})
			}
			for _, path := range args {
				probe := preflight.ProbeProject(path)
				rows = append(rows, []string{"Project", statusText(probe.Exists && !probe.Locked), probe.Detail()})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Check", "Status", "Detail"}, rows, nil))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func statusText(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}
