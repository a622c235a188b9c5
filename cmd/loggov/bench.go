package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raaihank/loggov/internal/bench"
)

func newBenchCmd() *cobra.Command {
	var (
		filter  string
		list    bool
		logPath string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare governed logging with other Go loggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adapters, err := bench.Filter(bench.Adapters(), filter)
			if err != nil {
				return err
			}
			if len(adapters) == 0 {
				return fmt.Errorf("no logger matches %q", filter)
			}

			out := cmd.OutOrStdout()
			if list {
				for _, a := range adapters {
					fmt.Fprintln(out, a.Name)
				}
				return nil
			}

			opts := bench.Options{
				Progress: func(a bench.Adapter) {
					fmt.Fprintf(cmd.ErrOrStderr(), "running %s\n", a.Name)
				},
			}
			if logPath != "" {
				f, err := os.Create(logPath)
				if err != nil {
					return fmt.Errorf("open log output: %w", err)
				}
				defer f.Close()
				opts.Writer = f
			}

			bench.WriteReport(out, bench.Run(adapters, opts))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Regular expression selecting loggers by name")
	cmd.Flags().BoolVar(&list, "list", false, "List loggers without running them")
	cmd.Flags().StringVar(&logPath, "log-output", "", "Write benchmark log records to this file instead of discarding them")
	return cmd
}
