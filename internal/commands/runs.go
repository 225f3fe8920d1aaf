package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cryptotax-uk/cryptotax/internal/cgt"
	"github.com/cryptotax-uk/cryptotax/internal/id"
	"github.com/cryptotax-uk/cryptotax/internal/ledger"
	"github.com/cryptotax-uk/cryptotax/internal/runlog"
	"github.com/cryptotax-uk/cryptotax/internal/store"
)

func newRunsCommand(flags *rootFlags) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect past compute runs",
	}

	runsCmd.AddCommand(newRunsListCommand(flags))
	runsCmd.AddCommand(newRunsShowCommand(flags))

	return runsCmd
}

func newRunsListCommand(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			s, err := store.Open(cmd.Context(), p.path(p.cfg.Store.Path))
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			fmt.Fprintf(out, "%-26s  %-20s  %6s  %6s  %7s\n", "RUN", "STARTED", "ASSETS", "FAILED", "RECORDS")
			for _, r := range runs {
				fmt.Fprintf(out, "%-26s  %-20s  %6d  %6d  %7d\n",
					r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Assets, r.Failed, r.Records)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 for all)")

	return cmd
}

func newRunsShowCommand(flags *rootFlags) *cobra.Command {
	var asset, disposal string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the records and log of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]
			if _, err := id.RunTime(runID); err != nil {
				return err
			}
			if disposal != "" {
				if _, _, _, err := id.ParseDisposalID(disposal); err != nil {
					return err
				}
			}

			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			s, err := store.Open(cmd.Context(), p.path(p.cfg.Store.Path))
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.LoadRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			entries, err := runlog.Read(p.path(p.cfg.Logging.RunLog))
			if err != nil {
				return err
			}

			printRun(cmd.OutOrStdout(), run, runlog.ForRun(entries, runID), asset, disposal)
			return nil
		},
	}

	cmd.Flags().StringVar(&asset, "asset", "", "only show this asset")
	cmd.Flags().StringVar(&disposal, "disposal", "", "only show lines of this disposal, e.g. BTC-2021-0001")

	return cmd
}

func printRun(out io.Writer, run store.Run, entries []runlog.Entry, asset, disposal string) {
	fmt.Fprintf(out, "Run %s  started %s  took %s\n",
		run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))

	for _, a := range run.Assets {
		if asset != "" && !strings.EqualFold(asset, a.Asset) {
			continue
		}
		if a.Error != "" {
			fmt.Fprintf(out, "\n%s  FAILED: %s\n", a.Asset, a.Error)
			continue
		}
		fmt.Fprintf(out, "\n%s  pool %s units at cost %s\n", a.Asset, a.PoolQuantity.String(), cgt.FormatGBP(a.PoolCost))
		for _, line := range a.Lines {
			if disposal != "" && id.DisposalGroup(line.ID) != strings.ToUpper(disposal) {
				continue
			}
			printLine(out, line)
		}
	}

	if len(entries) > 0 {
		fmt.Fprintln(out, "\nLog:")
		for _, e := range entries {
			fmt.Fprintf(out, "  %s  %-8s  %-5s  %s\n", e.Timestamp.Format("15:04:05"), e.Action, e.Asset, e.Details)
		}
	}
}

func printLine(out io.Writer, line ledger.Line) {
	acquired := ""
	if !line.AcquisitionDate.IsZero() {
		acquired = line.AcquisitionDate.Format("2006-01-02")
	}
	fmt.Fprintf(out, "  %-16s  %-11s  %s  %-10s  %s  cost %s  proceeds %s  gain %s\n",
		line.ID, line.Method, line.DisposalDate.Format("2006-01-02"), acquired,
		line.Quantity.StringFixed(8),
		cgt.FormatGBP(line.AllowableCost), cgt.FormatGBP(line.Proceeds), cgt.FormatGBP(line.Gain))
}
