package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"framekit/internal/config"
	"framekit/internal/resources"
)

func newResourcesCommand(ctx *commandContext) *cobra.Command {
	resCmd := &cobra.Command{
		Use:     "resources",
		Aliases: []string{"res"},
		Short:   "Manage the resource library",
	}
	resCmd.AddCommand(
		newResourcesListCommand(ctx),
		newResourcesAddColourCommand(ctx),
		newResourcesAddImageCommand(ctx),
		newResourcesRemoveCommand(ctx),
	)
	return resCmd
}

func newResourcesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List library resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Library is empty")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				value := rec.Path
				if rec.Kind == resources.KindColour {
					c := rec.Colour
					value = fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
				}
				rows = append(rows, []string{
					strconv.FormatUint(uint64(rec.ID), 10),
					rec.Kind,
					rec.Name,
					value,
					yesNo(rec.Online),
					rec.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Kind", "Name", "Value", "Online", "Updated"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}

func newResourcesAddColourCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "add-colour <name> <#rrggbb[aa]>",
		Aliases: []string{"add-color"},
		Short:   "Add a colour resource",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.ParseColor(args[1])
			if err != nil {
				return err
			}
			return addResource(cmd, ctx, resources.NewColour(args[0], c))
		},
	}
}

func newResourcesAddImageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add-image <name> <path>",
		Short: "Add an image file resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("resolve image path: %w", err)
			}
			img := resources.NewImage(args[0], path)
			if !img.Online() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s does not exist; resource added offline\n", path)
			}
			return addResource(cmd, ctx, img)
		},
	}
}

func addResource(cmd *cobra.Command, ctx *commandContext, item resources.Item) error {
	store, lib, err := ctx.openCatalog(cmd.Context())
	if err != nil {
		return err
	}
	id := lib.Add(item)
	if err := store.Put(cmd.Context(), item); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s resource %d (%s)\n", item.Kind(), id, item.Name())
	return nil
}

func newResourcesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a resource; links to it go offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("resource id: %w", err)
			}
			id := resources.ID(raw)
			store, lib, err := ctx.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			if err := lib.Remove(id); err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed resource %d\n", id)
			return nil
		},
	}
}
