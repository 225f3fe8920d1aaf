package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cryptotax-uk/cryptotax/internal/batch"
	"github.com/cryptotax-uk/cryptotax/internal/cgt"
	"github.com/cryptotax-uk/cryptotax/internal/gitops"
	"github.com/cryptotax-uk/cryptotax/internal/id"
	"github.com/cryptotax-uk/cryptotax/internal/importer"
	"github.com/cryptotax-uk/cryptotax/internal/ledger"
	"github.com/cryptotax-uk/cryptotax/internal/logger"
	"github.com/cryptotax-uk/cryptotax/internal/runlog"
	"github.com/cryptotax-uk/cryptotax/internal/store"
)

type computeOptions struct {
	assets  []string
	workers int
	noStore bool
}

func newComputeCommand(flags *rootFlags) *cobra.Command {
	opts := computeOptions{}

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute gains for every asset and write reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			log, err := p.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runCompute(cmd.Context(), cmd.OutOrStdout(), log, p, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.assets, "asset", nil, "only compute these assets (repeatable)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "override calculation.workers")
	cmd.Flags().BoolVar(&opts.noStore, "no-store", false, "do not record the run in the store")

	return cmd
}

// assetReport is the outcome of one successfully computed asset.
type assetReport struct {
	result cgt.Result
	lines  []ledger.Line
}

func runCompute(ctx context.Context, out io.Writer, log logrus.FieldLogger, p *project, opts computeOptions) error {
	cfg := p.cfg
	runID := id.NewRunID()
	rec := runlog.NewRecorder(runID)
	started := time.Now().UTC()
	log = log.WithField("run_id", runID)

	parser := importer.DefaultRegistry().Get(cfg.Data.Format)
	eps, err := cfg.Epsilon()
	if err != nil {
		return err
	}

	files, err := importer.Scan(p.path(cfg.Data.Dir), cfg.Data.SkipCurrencies)
	if err != nil {
		return err
	}
	files = filterAssets(files, opts.assets)
	if len(files) == 0 {
		return fmt.Errorf("no asset files in %s", p.path(cfg.Data.Dir))
	}

	paths := make(map[string]string, len(files))
	assets := make([]string, 0, len(files))
	for _, f := range files {
		paths[f.Asset] = f.Path
		assets = append(assets, f.Asset)
	}

	workers := cfg.Calculation.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}

	log.WithField("assets", len(assets)).Info("compute started")
	rec.Record("", runlog.ActionStart, fmt.Sprintf("%d assets: %s", len(assets), strings.Join(assets, " ")))

	reports := ledger.NewService(p.path(cfg.Reports.Dir))
	outcomes := batch.Run(ctx, assets, workers, func(ctx context.Context, asset string) (assetReport, error) {
		alog := logger.ForAsset(log, runID, asset)

		events, err := importer.ReadFile(parser, paths[asset])
		if err != nil {
			return assetReport{}, err
		}
		res, err := cgt.ComputeGains(events, cgt.WithEpsilon(eps), cgt.WithLogger(alog))
		if err != nil {
			return assetReport{}, err
		}
		lines, err := reports.WriteReport(asset, events, res)
		if err != nil {
			return assetReport{}, err
		}
		alog.WithField("lines", len(lines)).Info("report written")
		return assetReport{result: res, lines: lines}, nil
	})

	run := store.Run{ID: runID, StartedAt: started}
	for _, o := range outcomes {
		alog := logger.ForAsset(log, runID, o.Asset)
		if o.Failed() {
			alog.WithError(o.Err).Error("asset failed")
			rec.Record(o.Asset, runlog.ActionFailed, o.Err.Error())
			run.Assets = append(run.Assets, store.AssetResult{Asset: o.Asset, Error: o.Err.Error()})
			continue
		}
		pool := o.Value.result.Pool.Rounded()
		rec.Record(o.Asset, runlog.ActionComputed, fmt.Sprintf("%d lines, pool %s for %s",
			len(o.Value.lines), pool.Quantity.String(), cgt.FormatGBP(pool.TotalCost)))
		run.Assets = append(run.Assets, store.AssetResult{
			Asset:        o.Asset,
			PoolQuantity: pool.Quantity,
			PoolCost:     pool.TotalCost,
			Lines:        o.Value.lines,
		})
	}
	run.FinishedAt = time.Now().UTC()

	failed := batch.Errors(outcomes)
	rec.Record("", runlog.ActionFinish, fmt.Sprintf("%d ok, %d failed", len(outcomes)-len(failed), len(failed)))

	if !opts.noStore {
		if err := saveRun(ctx, p.path(cfg.Store.Path), run); err != nil {
			return err
		}
	}
	if err := rec.Flush(p.path(cfg.Logging.RunLog)); err != nil {
		return err
	}

	printSummary(out, runID, outcomes)

	if cfg.Git.AutoCommit {
		if err := commitReports(ctx, out, log, p, runID, len(outcomes)-len(failed)); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d assets failed", len(failed), len(outcomes))
	}
	log.Info("compute finished")
	return nil
}

func saveRun(ctx context.Context, path string, run store.Run) error {
	s, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.SaveRun(ctx, run)
}

// commitReports commits the regenerated reports when the project is a git
// repository.
func commitReports(ctx context.Context, out io.Writer, log logrus.FieldLogger, p *project, runID string, computed int) error {
	if !gitops.IsRepo(ctx, p.root) {
		log.Warn("git.auto_commit is set but the project is not a git repository")
		return nil
	}
	author := gitops.Author{Name: p.cfg.Git.AuthorName, Email: p.cfg.Git.AuthorEmail}
	msg := fmt.Sprintf("compute: run %s (%d assets)", runID, computed)
	hash, committed, err := gitops.CommitPaths(ctx, p.root, msg, author, p.cfg.Reports.Dir)
	if err != nil {
		return err
	}
	if committed {
		fmt.Fprintf(out, "\nCommitted reports (%s)\n", hash)
	}
	return nil
}

func filterAssets(files []importer.FileInfo, only []string) []importer.FileInfo {
	if len(only) == 0 {
		return files
	}
	want := make(map[string]bool, len(only))
	for _, a := range only {
		want[strings.ToUpper(a)] = true
	}
	var out []importer.FileInfo
	for _, f := range files {
		if want[f.Asset] {
			out = append(out, f)
		}
	}
	return out
}

func printSummary(out io.Writer, runID string, outcomes []batch.Outcome[assetReport]) {
	fmt.Fprintf(out, "Run %s\n", runID)
	for _, o := range outcomes {
		if o.Failed() {
			fmt.Fprintf(out, "\n%s  FAILED: %v\n", o.Asset, o.Err)
			continue
		}

		pool := o.Value.result.Pool.Rounded()
		fmt.Fprintf(out, "\n%s  %d lines, pool %s units at cost %s\n",
			o.Asset, len(o.Value.lines), pool.Quantity.String(), cgt.FormatGBP(pool.TotalCost))
		for _, y := range cgt.SummarizeByTaxYear(o.Value.result.Records) {
			fmt.Fprintf(out, "  %s  disposals %d  proceeds %s  cost %s  gains %s  losses %s  net %s\n",
				y.Name, y.Disposals,
				cgt.FormatGBP(y.Proceeds), cgt.FormatGBP(y.AllowableCost),
				cgt.FormatGBP(y.Gains), cgt.FormatGBP(y.Losses), cgt.FormatGBP(y.Net))
		}
	}
}
