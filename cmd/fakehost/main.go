// Fakehost stands in for Maya's command port so mayapilot can be tried
// without Maya: it accepts commands, echoes them into a history file the way
// the script editor does and prints each one to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clarabennett2626/mayapilot/internal/command"
	"github.com/clarabennett2626/mayapilot/internal/config"
	"github.com/clarabennett2626/mayapilot/internal/hoststub"
	"github.com/clarabennett2626/mayapilot/internal/logger"
	"github.com/clarabennett2626/mayapilot/internal/parser"
	"github.com/clarabennett2626/mayapilot/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr     string
		history  string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:           "fakehost",
		Short:         "Pretend to be Maya's command port",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == "" {
				history = config.Default().HistoryFile
			}
			path, err := config.ExpandPath(history)
			if err != nil {
				return err
			}

			log := logger.NewConsoleLogger(logLevel, cmd.ErrOrStderr())
			srv := hoststub.New(addr,
				hoststub.WithHistoryFile(path),
				hoststub.WithEcho(echo),
				hoststub.WithLogger(log),
			)
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			defer srv.Stop()
			log.Info("writing history", "path", path)

			renderer := tui.NewRenderer(tui.RenderConfig{WrapMode: tui.WrapWrap, ShowBadges: true})
			out := cmd.OutOrStdout()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case msg, ok := <-srv.Messages():
					if !ok {
						return nil
					}
					fmt.Fprintf(out, "from %s at %s\n", msg.Remote, msg.Received.Format("15:04:05"))
					for _, line := range strings.Split(strings.TrimSuffix(echo(msg.Payload), "\n"), "\n") {
						fmt.Fprintln(out, renderer.RenderEntry(parser.Parse(line)))
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7002", "Address to listen on")
	cmd.Flags().StringVar(&history, "history", "", "History file to append to (default from settings)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	return cmd
}

// echo renders a payload as Maya's script editor would log it. Nothing is
// executed: bare expressions get a placeholder result line.
func echo(payload string) string {
	snippet, ok := command.Unwrap(payload)
	if !ok {
		return "// Warning: unrecognised command payload (" + fmt.Sprint(len(payload)) + " bytes) //\n"
	}
	var b strings.Builder
	b.WriteString(snippet)
	b.WriteString("\n")
	if command.IsBareExpression(snippet) {
		fmt.Fprintf(&b, "# Result: %s #\n", snippet)
	}
	return b.String()
}
