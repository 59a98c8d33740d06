package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/clarabennett2626/mayapilot/internal/command"
	"github.com/clarabennett2626/mayapilot/internal/config"
	"github.com/clarabennett2626/mayapilot/internal/logger"
	"github.com/clarabennett2626/mayapilot/internal/stream"
	"github.com/clarabennett2626/mayapilot/internal/tui"
)

// sessionDrainTimeout bounds how long exit waits for a watch session.
const sessionDrainTimeout = 2 * time.Second

type tuiOptions struct {
	watch  bool
	light  bool
	badges bool
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	var to tuiOptions
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive log panel and command line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts, to)
		},
	}
	cmd.Flags().BoolVarP(&to.watch, "watch", "w", false, "Start watching the history file immediately")
	cmd.Flags().BoolVar(&to.light, "light", false, "Use colors for light terminals")
	cmd.Flags().BoolVar(&to.badges, "badges", false, "Prefix panel lines with their kind")
	return cmd
}

func runTUI(ctx context.Context, opts *rootOptions, to tuiOptions) error {
	settings, err := opts.load()
	if err != nil {
		return err
	}
	path, err := config.ResolvePath(opts.configPath)
	if err != nil {
		return err
	}

	// The terminal belongs to the TUI, so logs go to a file.
	log, closeLog, err := logger.NewFileLogger(settings.LogLevel, settings.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	store := config.NewStore(settings)
	streamer := stream.NewStreamer(log)
	sender := command.NewSender(store.Current, streamer, command.WithLogger(log))

	rc := tui.DefaultConfig()
	rc.ShowBadges = to.badges
	if to.light {
		rc.Theme = tui.ThemeLight
	}

	model := tui.NewModel(ctx, tui.Deps{
		Streamer:  streamer,
		Sender:    sender,
		Settings:  store.Current,
		NewSource: followSource,
		Renderer:  tui.NewRenderer(rc),
		Logger:    log,
		AutoWatch: to.watch,
	})
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	watcher, err := config.NewWatcher(path, store, log, func(s config.Settings) {
		prog.Send(tui.SettingsMsg{Settings: s})
	})
	if err == nil {
		err = watcher.Start(ctx)
	}
	if err != nil {
		log.Warn("settings will not be reloaded", "path", path, "error", err)
	} else {
		defer watcher.Stop()
	}

	log.Info("mayapilot started", "version", version, "host", settings.Host, "port", settings.Port)
	_, runErr := prog.Run()

	_ = streamer.Stop()
	if s := streamer.Session(); s != nil {
		select {
		case <-s.Done():
		case <-time.After(sessionDrainTimeout):
			log.Warn("watch session did not stop in time")
		}
	}
	if runErr != nil {
		return fmt.Errorf("running tui: %w", runErr)
	}
	return nil
}
