package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"framekit/internal/clips"
	"framekit/internal/project"
	"framekit/internal/timeline"
)

type clipView struct {
	Track    int               `json:"track"`
	Index    int               `json:"index"`
	ID       string            `json:"id"`
	Kind     string            `json:"kind"`
	Name     string            `json:"name,omitempty"`
	Begin    int64             `json:"begin"`
	Duration int64             `json:"duration"`
	Offset   int64             `json:"media_offset"`
	Enabled  bool              `json:"enabled"`
	Opacity  float64           `json:"opacity"`
	Links    map[string]string `json:"links,omitempty"`
}

type trackView struct {
	Index   int     `json:"index"`
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	Visible bool    `json:"visible"`
	Muted   bool    `json:"muted"`
	Opacity float64 `json:"opacity"`
	Clips   int     `json:"clips"`
}

type projectView struct {
	Path        string      `json:"path"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	FrameRate   float64     `json:"frame_rate"`
	MaxDuration int64       `json:"max_duration"`
	Largest     int64       `json:"largest_frame"`
	Play        int64       `json:"play_position"`
	Loop        string      `json:"loop,omitempty"`
	LoopEnabled bool        `json:"loop_enabled"`
	Tracks      []trackView `json:"tracks"`
	Clips       []clipView  `json:"clips"`
}

func buildProjectView(p *project.Project) projectView {
	tl := p.Timeline()
	s := p.Settings()
	view := projectView{
		Path:        p.Path(),
		Width:       s.Width,
		Height:      s.Height,
		FrameRate:   s.FrameRate,
		MaxDuration: tl.MaxDuration(),
		Largest:     tl.LargestFrameInUse(),
		Play:        tl.PlayPosition(),
		LoopEnabled: tl.LoopEnabled(),
		Tracks:      []trackView{},
		Clips:       []clipView{},
	}
	if loop, ok := tl.LoopRegion(); ok {
		view.Loop = loop.String()
	}
	for _, track := range tl.Tracks() {
		view.Tracks = append(view.Tracks, trackView{
			Index:   track.IndexInTimeline(),
			ID:      track.ID().String(),
			Name:    track.DisplayName(),
			Visible: track.Visible(),
			Muted:   track.Muted(),
			Opacity: track.Opacity(),
			Clips:   track.ClipCount(),
		})
		for _, c := range track.Clips() {
			view.Clips = append(view.Clips, newClipView(track, c))
		}
	}
	return view
}

func newClipView(track *timeline.Track, c *timeline.Clip) clipView {
	span := c.Span()
	v := clipView{
		Track:    track.IndexInTimeline(),
		Index:    c.IndexInTrack(),
		ID:       c.ID().String(),
		Kind:     c.Kind(),
		Name:     c.DisplayName(),
		Begin:    span.Begin,
		Duration: span.Duration,
		Offset:   c.MediaFrameOffset(),
		Enabled:  c.Enabled(),
		Opacity:  c.Opacity(),
	}
	for _, link := range c.Links() {
		if v.Links == nil {
			v.Links = make(map[string]string)
		}
		v.Links[link.Slot()] = fmt.Sprintf("%d (%s)", link.Target(), link.State())
	}
	return v
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "inspect <project>",
		Short: "Show a project's tracks and clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args[0], false, func(p *project.Project) error {
				view := buildProjectView(p)
				if jsonOut {
					return writeJSON(cmd, view)
				}
				printProjectView(cmd, view)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func printProjectView(cmd *cobra.Command, view projectView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project:   %s\n", view.Path)
	fmt.Fprintf(out, "Output:    %dx%d @ %g fps\n", view.Width, view.Height, view.FrameRate)
	fmt.Fprintf(out, "Duration:  %d frames (%s), content to %d\n",
		view.MaxDuration, clips.FormatTimecode(view.MaxDuration, view.FrameRate), view.Largest)
	fmt.Fprintf(out, "Play head: %d (%s)\n", view.Play, clips.FormatTimecode(view.Play, view.FrameRate))
	if view.Loop != "" {
		fmt.Fprintf(out, "Loop:      %s (enabled: %s)\n", view.Loop, yesNo(view.LoopEnabled))
	}
	fmt.Fprintln(out)

	if len(view.Tracks) == 0 {
		fmt.Fprintln(out, "No tracks")
		return
	}
	trackRows := make([][]string, 0, len(view.Tracks))
	for _, t := range view.Tracks {
		trackRows = append(trackRows, []string{
			strconv.Itoa(t.Index),
			t.Name,
			yesNo(t.Visible),
			yesNo(t.Muted),
			strconv.FormatFloat(t.Opacity, 'f', 2, 64),
			strconv.Itoa(t.Clips),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"#", "Name", "Visible", "Muted", "Opacity", "Clips"},
		trackRows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))

	if len(view.Clips) == 0 {
		return
	}
	clipRows := make([][]string, 0, len(view.Clips))
	for _, c := range view.Clips {
		links := make([]string, 0, len(c.Links))
		for slot, target := range c.Links {
			links = append(links, slot+"="+target)
		}
		clipRows = append(clipRows, []string{
			fmt.Sprintf("%d.%d", c.Track, c.Index),
			c.Kind,
			c.Name,
			strconv.FormatInt(c.Begin, 10),
			strconv.FormatInt(c.Duration, 10),
			strconv.FormatInt(c.Offset, 10),
			yesNo(c.Enabled),
			strings.Join(links, ", "),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Clip", "Kind", "Name", "Begin", "Duration", "Offset", "Enabled", "Links"},
		clipRows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
