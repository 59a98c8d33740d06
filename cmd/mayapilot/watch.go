package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clarabennett2626/mayapilot/internal/config"
	"github.com/clarabennett2626/mayapilot/internal/logger"
	"github.com/clarabennett2626/mayapilot/internal/stream"
	"github.com/clarabennett2626/mayapilot/internal/tui"
)

type watchOptions struct {
	follower string
	badges   bool
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var wo watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream the Maya history to stdout until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.load()
			if err != nil {
				return err
			}
			if wo.follower != "" {
				settings.Follower = strings.ToLower(wo.follower)
				if err := settings.Validate(); err != nil {
					return err
				}
			}
			log := logger.NewConsoleLogger(settings.LogLevel, cmd.ErrOrStderr())
			return runWatch(cmd.Context(), settings, cmd.OutOrStdout(), log, wo)
		},
	}
	cmd.Flags().StringVar(&wo.follower, "follower", "", "Override the follower (tail or native)")
	cmd.Flags().BoolVar(&wo.badges, "badges", false, "Prefix lines with their kind")
	return cmd
}

// runWatch streams until ctx is cancelled or the source closes.
func runWatch(ctx context.Context, settings config.Settings, out io.Writer, log *slog.Logger, wo watchOptions) error {
	src, err := followSource(settings)
	if err != nil {
		return err
	}

	w := &lineWriter{
		out:      out,
		renderer: tui.NewRenderer(tui.RenderConfig{WrapMode: tui.WrapWrap, ShowBadges: wo.badges}),
	}
	streamer := stream.NewStreamer(log)
	session, err := streamer.Start(ctx, src, func() (stream.Sink, bool) { return w, true }, stream.Immediate)
	if err != nil {
		return err
	}
	<-session.Done()
	return w.err
}

// lineWriter is the display sink of the headless watch: it renders every
// line to out. Nothing is retained, so there is nothing to trim.
type lineWriter struct {
	out      io.Writer
	renderer *tui.Renderer
	err      error
}

func (w *lineWriter) AppendAndTrim(text string) {
	if w.err != nil || text == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		if _, err := fmt.Fprintln(w.out, w.renderer.RenderLine(line)); err != nil {
			w.err = fmt.Errorf("writing output: %w", err)
			return
		}
	}
}

func (w *lineWriter) ScrollToEnd() {}
