package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clarabennett2626/mayapilot/internal/config"
	"github.com/clarabennett2626/mayapilot/internal/source"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

// load reads the settings file and applies flag overrides.
func (o *rootOptions) load() (config.Settings, error) {
	s, err := config.Load(o.configPath)
	if err != nil {
		return config.Settings{}, err
	}
	if o.logLevel != "" {
		s.LogLevel = strings.ToLower(o.logLevel)
		if err := s.Validate(); err != nil {
			return config.Settings{}, err
		}
	}
	return s, nil
}

// newRootCmd wires the cobra tree. Without a subcommand it runs the TUI.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "mayapilot",
		Short:         "Send Python to Maya and follow its script editor history",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts, tuiOptions{})
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		fmt.Sprintf("Path to settings file (default %s)", config.DefaultPath()))
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	root.AddCommand(
		newTUICmd(opts),
		newWatchCmd(opts),
		newSendCmd(opts),
		newSetupScriptCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// followSource builds the history follower chosen in the settings.
func followSource(s config.Settings) (source.Source, error) {
	bp, err := source.ParseBackpressure(s.Backpressure)
	if err != nil {
		return nil, err
	}
	switch s.Follower {
	case config.FollowerNative:
		return source.NewFileSource(source.FileConfig{
			Path:         s.HistoryFile,
			FromEnd:      true,
			BufferSize:   s.BufferLines,
			Backpressure: bp,
		}), nil
	case config.FollowerTail:
		return source.NewProcessSource(source.ProcessConfig{
			Command:      s.FollowCommand(),
			BufferSize:   s.BufferLines,
			Backpressure: bp,
		}), nil
	default:
		return nil, fmt.Errorf("unknown follower %q", s.Follower)
	}
}
