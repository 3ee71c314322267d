package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"framekit/internal/dispatch"
	"framekit/internal/logging"
	"framekit/internal/playback"
	"framekit/internal/project"
	"framekit/internal/render"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var (
		from     int64
		duration time.Duration
		fps      float64
		loop     bool
	)

	cmd := &cobra.Command{
		Use:   "play <project>",
		Short: "Run the playback clock without a display",
		Long: "Play the timeline for a wall-clock duration, rendering each frame off-screen,\n" +
			"and report how many frames were presented. The stop position is saved.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				return runPlayback(cmd, ctx, p, playbackRun{
					from:     from,
					duration: duration,
					fps:      fps,
					loop:     loop,
					setFPS:   cmd.Flags().Changed("fps"),
					setLoop:  cmd.Flags().Changed("loop"),
				})
			})
		},
	}
	cmd.Flags().Int64VarP(&from, "from", "f", -1, "Start frame (default: current play position)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 2*time.Second, "Wall-clock playback time")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Override the project frame rate")
	cmd.Flags().BoolVar(&loop, "loop", false, "Enable the loop region while playing")
	return cmd
}

type playbackRun struct {
	from     int64
	duration time.Duration
	fps      float64
	loop     bool
	setFPS   bool
	setLoop  bool
}

func runPlayback(cmd *cobra.Command, ctx *commandContext, p *project.Project, run playbackRun) error {
	cfg := ctx.configValue()
	logger := ctx.log()
	tl := p.Timeline()

	mgr, err := ctx.newRenderer(p)
	if err != nil {
		return err
	}
	defer mgr.Close()

	loopCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	loop := dispatch.New(logger)
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(loopCtx) }()
	defer func() {
		cancel()
		<-loopDone
	}()

	fps := p.Settings().FrameRate
	if run.setFPS {
		fps = run.fps
	}
	clock := playback.New(tl, loop, mgr, playback.Options{
		FrameRate:        fps,
		MaxCatchupFrames: int64(cfg.Playback.MaxCatchupFrames),
		RaisePriority:    cfg.Playback.RaisePriority,
		Logger:           logger,
	})
	var frames, last, invalidations atomic.Int64
	last.Store(-1)
	clock.OnFrame(func(f int64) {
		frames.Add(1)
		last.Store(f)
	})
	mgr.OnInvalidated(func() { invalidations.Add(1) })
	clock.Start()
	defer clock.Close()

	if run.setLoop {
		if err := loop.Invoke(cmd.Context(), func() { tl.SetLoopEnabled(run.loop) }); err != nil {
			return err
		}
	}

	if run.from >= 0 {
		err = clock.PlayFrom(cmd.Context(), run.from)
	} else {
		err = clock.Play(cmd.Context())
	}
	if err != nil {
		return err
	}

	timer := time.NewTimer(run.duration)
	select {
	case <-timer.C:
	case <-cmd.Context().Done():
		timer.Stop()
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := clock.Pause(stopCtx); err != nil && !errors.Is(err, dispatch.ErrStopped) {
		return err
	}

	var stopAt int64
	var looping bool
	var refreshErr error
	if err := loop.Invoke(stopCtx, func() {
		stopAt = tl.PlayPosition()
		looping = tl.LoopEnabled()
		// Present the still frame at the stop position.
		if mgr.TakeDirty() {
			_, refreshErr = mgr.RenderFrame(stopCtx, stopAt)
		}
	}); err != nil {
		return err
	}
	if refreshErr != nil && !errors.Is(refreshErr, render.ErrRenderInProgress) {
		logging.WarnWithContext(logger, "still frame render failed", "playback_refresh",
			logging.Error(refreshErr),
			logging.String(logging.FieldImpact, "display shows the last played frame"),
		)
	}
	logger.Info("playback finished",
		logging.Int64("frames", frames.Load()),
		logging.Int64("invalidations", invalidations.Load()),
		logging.Frame(stopAt),
		logging.Float64("fps", clock.FrameRate()),
		logging.Bool("loop_enabled", looping),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Presented %d frame(s) at %g fps; stopped at frame %d\n",
		frames.Load(), clock.FrameRate(), stopAt)
	if faults := mgr.LastFaults(); len(faults) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Last frame: %v\n", faults.Err())
	}
	return nil
}
