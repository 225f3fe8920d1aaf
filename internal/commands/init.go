package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cryptotax-uk/cryptotax/internal/config"
	"github.com/cryptotax-uk/cryptotax/internal/gitops"
	"github.com/cryptotax-uk/cryptotax/internal/importer"
)

func newInitCommand() *cobra.Command {
	var format string
	var force bool
	var withGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new cryptotax project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, format, force, withGit)
		},
	}

	cmd.Flags().StringVar(&format, "format", "normalized", "input file format")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	cmd.Flags().BoolVar(&withGit, "git", false, "initialize a git repository and commit reports after each run")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir, format string, force, withGit bool) error {
	if importer.DefaultRegistry().Get(format) == nil {
		return fmt.Errorf("unknown format %q (have %v)", format, importer.DefaultRegistry().Formats())
	}

	cfg := config.Default()
	cfg.Data.Format = format
	cfg.Git.AutoCommit = withGit

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	// Create directory structure.
	dirs := []string{
		cfg.Data.Dir,
		cfg.Reports.Dir,
		filepath.Dir(cfg.Logging.RunLog),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Keep the empty data dir in version control.
	if err := os.WriteFile(filepath.Join(dir, cfg.Data.Dir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	// Write .gitignore.
	gitignore := ".env\nlogs/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if withGit && !gitops.IsRepo(ctx, dir) {
		if err := gitops.Init(ctx, dir); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Initialized cryptotax project at %s\n", dir)
	return nil
}
