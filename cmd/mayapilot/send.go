package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clarabennett2626/mayapilot/internal/command"
	"github.com/clarabennett2626/mayapilot/internal/config"
	"github.com/clarabennett2626/mayapilot/internal/logger"
	"github.com/clarabennett2626/mayapilot/internal/source"
)

type sendOptions struct {
	code    string
	selects []string
	host    string
	port    int
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	var so sendOptions
	cmd := &cobra.Command{
		Use:   "send [file|-]",
		Short: "Send Python code to Maya's command port",
		Long: `Send Python code to Maya's command port.

The code comes from --code, a file, "-" or piped stdin. With --select only
the given byte ranges of the code are sent, in order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.load()
			if err != nil {
				return err
			}
			if so.host != "" {
				settings.Host = so.host
			}
			if so.port != 0 {
				settings.Port = so.port
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			doc, err := readDocument(cmd, so, args)
			if err != nil {
				return err
			}
			regions, err := parseRegions(so.selects)
			if err != nil {
				return err
			}

			log := logger.NewConsoleLogger(settings.LogLevel, cmd.ErrOrStderr())
			sender := command.NewSender(
				func() config.Settings { return settings },
				writerNotifier{w: cmd.ErrOrStderr()},
				command.WithLogger(log),
			)
			return sender.Send(cmd.Context(), doc, regions)
		},
	}
	cmd.Flags().StringVarP(&so.code, "code", "c", "", "Code to send")
	cmd.Flags().StringArrayVar(&so.selects, "select", nil, "Byte range start:end to send (repeatable)")
	cmd.Flags().StringVar(&so.host, "host", "", "Override the Maya host")
	cmd.Flags().IntVar(&so.port, "port", 0, "Override the Maya command port")
	return cmd
}

func readDocument(cmd *cobra.Command, so sendOptions, args []string) (string, error) {
	switch {
	case cmd.Flags().Changed("code"):
		return so.code, nil
	case len(args) == 1 && args[0] == "-":
		return readAll(cmd.InOrStdin())
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", args[0], err)
		}
		return string(data), nil
	case source.IsPipe():
		return readAll(cmd.InOrStdin())
	default:
		return "", fmt.Errorf("nothing to send: pass a file, --code or pipe code on stdin")
	}
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// parseRegions turns "start:end" flags into regions.
func parseRegions(specs []string) ([]command.Region, error) {
	regions := make([]command.Region, 0, len(specs))
	for _, sel := range specs {
		startStr, endStr, ok := strings.Cut(sel, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --select %q: want start:end", sel)
		}
		start, err := strconv.Atoi(strings.TrimSpace(startStr))
		if err != nil {
			return nil, fmt.Errorf("invalid --select %q: %w", sel, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(endStr))
		if err != nil {
			return nil, fmt.Errorf("invalid --select %q: %w", sel, err)
		}
		if start < 0 || end < 0 {
			return nil, fmt.Errorf("invalid --select %q: offsets must not be negative", sel)
		}
		regions = append(regions, command.Region{Start: start, End: end})
	}
	return regions, nil
}

// writerNotifier shows user-facing send errors on a writer.
type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) Push(text string) {
	fmt.Fprint(n.w, text)
}
