package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/speakeasy-api/symcore/config"
	"github.com/speakeasy-api/symcore/pkg/exprfmt"
	"github.com/speakeasy-api/symcore/pkg/session"
)

var configFile string

func newSession(form string, timeout time.Duration) (*session.Session, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	sc := cfg.SessionConfig()
	if form != "" {
		sc.Format.Form = exprfmt.Form(form)
	}
	if timeout > 0 {
		sc.Timeout = timeout
	}
	return session.New(sc)
}

// NewEvalCommand creates the eval command. Without arguments it reads one
// input per line from stdin, prompting when stdin is a terminal.
func NewEvalCommand() *cobra.Command {
	var (
		form    string
		timeout time.Duration
		ast     bool
	)

	cmd := &cobra.Command{
		Use:   "eval [expr...]",
		Short: "Evaluate expressions in one session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			s, err := newSession(form, timeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if ast {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				o, err := s.RunAST(ctx, data)
				if err != nil {
					return fmt.Errorf("%s", session.FormatEvalError(err))
				}
				printOutput(out, o)
				return nil
			}

			if len(args) > 0 {
				for _, src := range args {
					o, err := s.Run(ctx, src)
					if err != nil {
						return fmt.Errorf("%s", session.FormatEvalError(err))
					}
					printOutput(out, o)
				}
				return nil
			}
			return repl(ctx, s, cmd.InOrStdin(), out)
		},
	}

	cmd.Flags().StringVarP(&form, "form", "f", "", "output form: input, full or tree")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "time limit per input")
	cmd.Flags().BoolVar(&ast, "ast", false, "read a YAML/JSON syntax tree from stdin")
	return cmd
}

func repl(ctx context.Context, s *session.Session, in io.Reader, out io.Writer) error {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	sc := bufio.NewScanner(in)
	for n := 1; ; n++ {
		if interactive {
			fmt.Fprintf(out, "In[%d]:= ", n)
		}
		if !sc.Scan() {
			return sc.Err()
		}
		src := strings.TrimSpace(sc.Text())
		if src == "" {
			n--
			continue
		}
		o, err := s.Run(ctx, src)
		if err != nil {
			if !interactive {
				return fmt.Errorf("%s", session.FormatEvalError(err))
			}
			fmt.Fprint(out, session.FormatEvalError(err))
			continue
		}
		printOutput(out, o)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func printOutput(w io.Writer, o *session.Output) {
	for _, warn := range o.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warn)
	}
	if o.Void {
		return
	}
	fmt.Fprintln(w, o.Text)
}

// NewBatchCommand creates the batch command, which evaluates the lines of
// a file concurrently on separate engines.
func NewBatchCommand() *cobra.Command {
	var (
		form    string
		timeout time.Duration
		report  bool
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Evaluate independent inputs concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read inputs: %w", err)
			}
			var srcs []string
			for _, line := range strings.Split(string(data), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					srcs = append(srcs, line)
				}
			}

			s, err := newSession(form, timeout)
			if err != nil {
				return err
			}
			outs, err := s.RunBatch(cmd.Context(), srcs)
			if err != nil {
				return fmt.Errorf("%s", session.FormatEvalError(err))
			}
			for _, o := range outs {
				if report {
					fmt.Fprintln(cmd.OutOrStdout(), o.Report(time.Now()))
					continue
				}
				printOutput(cmd.OutOrStdout(), o)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&form, "form", "f", "", "output form: input, full or tree")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "time limit per input")
	cmd.Flags().BoolVar(&report, "report", false, "print timing and fingerprints")
	return cmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "symcore %s\n", version)
		},
	}
}
