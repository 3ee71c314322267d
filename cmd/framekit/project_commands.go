package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"framekit/internal/frame"
	"framekit/internal/project"
	"framekit/internal/resources"
	"framekit/internal/timeline"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Create and configure project files",
	}
	projectCmd.AddCommand(newProjectNewCommand(ctx))
	projectCmd.AddCommand(newProjectSetCommand(ctx))
	return projectCmd
}

func newProjectNewCommand(ctx *commandContext) *cobra.Command {
	var width, height int
	var fps float64

	cmd := &cobra.Command{
		Use:   "new <path>",
		Short: "Create an empty project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			settings := project.Settings{Width: cfg.Render.Width, Height: cfg.Render.Height, FrameRate: cfg.Playback.FrameRate}
			if cmd.Flags().Changed("width") {
				settings.Width = width
			}
			if cmd.Flags().Changed("height") {
				settings.Height = height
			}
			if cmd.Flags().Changed("fps") {
				settings.FrameRate = fps
			}
			_, lib, err := ctx.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			schema, err := ctx.newSchema()
			if err != nil {
				return err
			}
			p, err := project.New(args[0], schema, lib, settings, ctx.projectOptions())
			if err != nil {
				return err
			}
			defer p.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%dx%d @ %g fps)\n", p.Path(), settings.Width, settings.Height, settings.FrameRate)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "Output width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Output height in pixels")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Frame rate")
	return cmd
}

func newProjectSetCommand(ctx *commandContext) *cobra.Command {
	var (
		width, height int
		fps           float64
		maxDuration   int64
		play          int64
		loop          string
		loopEnabled   bool
	)

	cmd := &cobra.Command{
		Use:   "set <path>",
		Short: "Change project settings and transport positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				settings := p.Settings()
				if flags.Changed("width") {
					settings.Width = width
				}
				if flags.Changed("height") {
					settings.Height = height
				}
				if flags.Changed("fps") {
					settings.FrameRate = fps
				}
				if err := p.SetSettings(settings); err != nil {
					return err
				}
				tl := p.Timeline()
				if flags.Changed("max-duration") {
					if err := tl.SetMaxDuration(maxDuration); err != nil {
						return err
					}
				}
				if flags.Changed("loop") {
					if strings.TrimSpace(loop) == "" {
						tl.ClearLoopRegion()
					} else {
						span, err := parseSpan(loop)
						if err != nil {
							return err
						}
						if err := tl.SetLoopRegion(span); err != nil {
							return err
						}
					}
				}
				if flags.Changed("loop-enabled") {
					tl.SetLoopEnabled(loopEnabled)
				}
				if flags.Changed("play") {
					if err := tl.SetPlayPosition(play); err != nil {
						return err
					}
					if err := tl.SetStopPosition(play); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "Output width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Output height in pixels")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Frame rate")
	cmd.Flags().Int64Var(&maxDuration, "max-duration", 0, "Timeline length in frames")
	cmd.Flags().Int64Var(&play, "play", 0, "Play and stop head frame")
	cmd.Flags().StringVar(&loop, "loop", "", "Loop region as begin+duration; empty clears it")
	cmd.Flags().BoolVar(&loopEnabled, "loop-enabled", false, "Enable looping playback")
	return cmd
}

func newTrackCommand(ctx *commandContext) *cobra.Command {
	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Add, remove and reorder tracks",
	}

	var name string
	var index int
	addCmd := &cobra.Command{
		Use:   "add <project>",
		Short: "Add a track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				tl := p.Timeline()
				track := tl.Schema().NewTrack()
				track.SetDisplayName(name)
				at := tl.TrackCount()
				if cmd.Flags().Changed("index") {
					at = index
				}
				if err := tl.InsertTrack(at, track); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added track %d\n", track.IndexInTimeline())
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&name, "name", "", "Display name")
	addCmd.Flags().IntVar(&index, "index", 0, "Insert position (default: top)")

	removeCmd := &cobra.Command{
		Use:   "remove <project> <index>",
		Short: "Remove a track and its clips",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("track index: %w", err)
			}
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				track, err := p.Timeline().RemoveTrackAt(i)
				if err != nil {
					return err
				}
				track.Destroy()
				return nil
			})
		},
	}

	moveCmd := &cobra.Command{
		Use:   "move <project> <from> <to>",
		Short: "Move a track to another index",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("from index: %w", err)
			}
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("to index: %w", err)
			}
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				return p.Timeline().MoveTrack(from, to)
			})
		},
	}

	trackCmd.AddCommand(addCmd, removeCmd, moveCmd)
	return trackCmd
}

type clipRef struct {
	track int
	clip  int
}

func (r *clipRef) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&r.track, "track", 0, "Track index")
	cmd.Flags().IntVar(&r.clip, "clip", 0, "Clip index within the track")
}

func (r clipRef) resolve(tl *timeline.Timeline) (*timeline.Track, *timeline.Clip, error) {
	track, ok := tl.TrackAt(r.track)
	if !ok {
		return nil, nil, fmt.Errorf("track %d: %w", r.track, timeline.ErrIndexOutOfRange)
	}
	list := track.Clips()
	if r.clip < 0 || r.clip >= len(list) {
		return track, nil, fmt.Errorf("clip %d on track %d: %w", r.clip, r.track, timeline.ErrIndexOutOfRange)
	}
	return track, list[r.clip], nil
}

func newClipCommand(ctx *commandContext) *cobra.Command {
	clipCmd := &cobra.Command{
		Use:   "clip",
		Short: "Add, cut, move and link clips",
	}
	clipCmd.AddCommand(
		newClipAddCommand(ctx),
		newClipRemoveCommand(ctx),
		newClipCutCommand(ctx),
		newClipMoveCommand(ctx),
		newClipLinkCommand(ctx),
	)
	return clipCmd
}

func newClipAddCommand(ctx *commandContext) *cobra.Command {
	var (
		trackIndex int
		kind       string
		span       string
		links      []string
		name       string
	)
	cmd := &cobra.Command{
		Use:   "add <project>",
		Short: "Add a clip to a track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sp, err := parseSpan(span)
			if err != nil {
				return err
			}
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				tl := p.Timeline()
				track, ok := tl.TrackAt(trackIndex)
				if !ok {
					return fmt.Errorf("track %d: %w", trackIndex, timeline.ErrIndexOutOfRange)
				}
				c, err := tl.Schema().NewClip(kind)
				if err != nil {
					return err
				}
				if err := c.SetSpan(sp); err != nil {
					return err
				}
				if name != "" {
					tl.Schema().ClipName.SetValue(c, name)
				}
				if err := track.AddClip(c); err != nil {
					return err
				}
				for _, link := range links {
					slot, id, err := parseLink(link)
					if err != nil {
						return err
					}
					if err := c.SetResource(slot, id); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s clip %d on track %d\n", kind, c.IndexInTrack(), trackIndex)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&trackIndex, "track", 0, "Track index")
	cmd.Flags().StringVar(&kind, "kind", "solid", "Clip kind")
	cmd.Flags().StringVar(&span, "span", "0+100", "Frame span as begin+duration")
	cmd.Flags().StringArrayVar(&links, "link", nil, "Resource link as slot=id (repeatable)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	return cmd
}

func newClipRemoveCommand(ctx *commandContext) *cobra.Command {
	var ref clipRef
	cmd := &cobra.Command{
		Use:   "remove <project>",
		Short: "Remove a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				_, c, err := ref.resolve(p.Timeline())
				if err != nil {
					return err
				}
				c.Destroy()
				return nil
			})
		},
	}
	ref.bind(cmd)
	return cmd
}

func newClipCutCommand(ctx *commandContext) *cobra.Command {
	var ref clipRef
	var offset int64
	cmd := &cobra.Command{
		Use:   "cut <project>",
		Short: "Split a clip at an offset from its begin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				_, c, err := ref.resolve(p.Timeline())
				if err != nil {
					return err
				}
				right, err := c.CutAt(offset)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cut into %s and %s\n", c.Span(), right.Span())
				return nil
			})
		},
	}
	ref.bind(cmd)
	cmd.Flags().Int64Var(&offset, "offset", 0, "Frames from the clip begin")
	return cmd
}

func newClipMoveCommand(ctx *commandContext) *cobra.Command {
	var ref clipRef
	var toTrack int
	var span string
	cmd := &cobra.Command{
		Use:   "move <project>",
		Short: "Move a clip to another track or span",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				tl := p.Timeline()
				track, c, err := ref.resolve(tl)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("span") {
					sp, err := parseSpan(span)
					if err != nil {
						return err
					}
					if err := c.SetSpan(sp); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("to-track") && toTrack != ref.track {
					dst, ok := tl.TrackAt(toTrack)
					if !ok {
						return fmt.Errorf("track %d: %w", toTrack, timeline.ErrIndexOutOfRange)
					}
					return track.MoveClipToTrack(c.IndexInTrack(), dst, dst.ClipCount())
				}
				return nil
			})
		},
	}
	ref.bind(cmd)
	cmd.Flags().IntVar(&toTrack, "to-track", 0, "Destination track index")
	cmd.Flags().StringVar(&span, "span", "", "New span as begin+duration")
	return cmd
}

func newClipLinkCommand(ctx *commandContext) *cobra.Command {
	var ref clipRef
	cmd := &cobra.Command{
		Use:   "link <project> <slot=id>",
		Short: "Point a clip resource slot at a library resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, id, err := parseLink(args[1])
			if err != nil {
				return err
			}
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				_, c, err := ref.resolve(p.Timeline())
				if err != nil {
					return err
				}
				return c.SetResource(slot, id)
			})
		},
	}
	ref.bind(cmd)
	return cmd
}

// parseSpan reads "begin+duration".
func parseSpan(value string) (frame.Span, error) {
	beginText, durText, ok := strings.Cut(strings.TrimSpace(value), "+")
	if !ok {
		return frame.Span{}, fmt.Errorf("span %q: want begin+duration", value)
	}
	begin, err := strconv.ParseInt(strings.TrimSpace(beginText), 10, 64)
	if err != nil {
		return frame.Span{}, fmt.Errorf("span begin: %w", err)
	}
	dur, err := strconv.ParseInt(strings.TrimSpace(durText), 10, 64)
	if err != nil {
		return frame.Span{}, fmt.Errorf("span duration: %w", err)
	}
	span := frame.New(begin, dur)
	if err := span.Validate(); err != nil {
		return frame.Span{}, err
	}
	return span, nil
}

// parseLink reads "slot=id".
func parseLink(value string) (string, resources.ID, error) {
	slot, idText, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(slot) == "" {
		return "", resources.NoID, fmt.Errorf("link %q: want slot=id", value)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(idText), 10, 64)
	if err != nil {
		return "", resources.NoID, fmt.Errorf("link %q: %w", value, err)
	}
	return strings.TrimSpace(slot), resources.ID(id), nil
}
