// Package chatcli is the command line frontend over the chat backend client.
package chatcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iloveyushi/ainaojin/internal/client"
	"github.com/iloveyushi/ainaojin/internal/config"
	"github.com/iloveyushi/ainaojin/pkg/logger"
)

type runner struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer

	baseURL  string
	timeout  time.Duration
	logLevel string
	pretty   bool

	client *client.Client
}

// NewRootCommand builds the chat command tree. Defaults come from cfg.
func NewRootCommand(cfg *config.Config, stdout, stderr io.Writer) *cobra.Command {
	if cfg == nil {
		cfg = config.New()
	}
	r := &runner{cfg: cfg, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "chat",
		Short:         "Talk to the chat backend",
		Long:          "chat lists rooms and sends prompts to the chat backend through its HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&r.baseURL, "base-url", cfg.BaseURL, "backend API base URL")
	flags.DurationVar(&r.timeout, "timeout", cfg.Timeout(), "per-call timeout")
	flags.StringVar(&r.logLevel, "log-level", cfg.CLILogLevel, "log level: debug, info, warn, error")
	flags.BoolVar(&r.pretty, "pretty", false, "indent JSON payloads")

	root.AddCommand(r.roomsCommand(), r.sendCommand())
	return root
}

// Execute runs the command tree with args and returns the process exit code.
// Failures are printed to stderr as a single line.
func Execute(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(cfg, stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func (r *runner) setup() error {
	level, err := logger.ParseLevel(r.logLevel)
	if err != nil {
		return err
	}
	lv := new(slog.LevelVar)
	lv.Set(level)
	l := logger.New(r.stderr, logger.Options{Level: lv})

	c, err := client.New(
		client.WithBaseURL(r.baseURL),
		client.WithTimeout(r.timeout),
		client.WithContentType(r.cfg.ContentType),
		client.WithLogger(l),
	)
	if err != nil {
		return err
	}
	r.client = c
	return nil
}

func (r *runner) roomsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List chat rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := r.client.GetRooms(cmd.Context())
			if err != nil {
				return err
			}
			return r.print(payload)
		},
	}
}

func (r *runner) sendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send <roomID> <prompt>...",
		Short: "Send a prompt to a room",
		Long:  "send posts a prompt to a room. Extra arguments are joined with spaces.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := r.client.SendChat(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return r.print(payload)
		},
	}
}

func (r *runner) print(p client.Payload) error {
	out := []byte(p)
	if r.pretty && json.Valid(out) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", "  "); err == nil {
			out = buf.Bytes()
		}
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	_, err := r.stdout.Write(out)
	return err
}
