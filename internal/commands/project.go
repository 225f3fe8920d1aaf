package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/cryptotax-uk/cryptotax/internal/config"
	"github.com/cryptotax-uk/cryptotax/internal/importer"
	"github.com/cryptotax-uk/cryptotax/internal/logger"
)

// project is a loaded project directory.
type project struct {
	root string
	cfg  *config.Config
}

// loadProject reads, overlays and validates the project config.
func loadProject(flags *rootFlags) (*project, error) {
	root, err := filepath.Abs(flags.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfgPath := flags.config
	if cfgPath == "" {
		cfgPath = filepath.Join(root, config.FileName)
	}
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no %s in %s (run cryptotax init first)", config.FileName, root)
	}
	if err != nil {
		return nil, err
	}

	envFile := flags.envFile
	if envFile == "" {
		envFile = filepath.Join(root, ".env")
	}
	if err := config.ApplyEnv(cfg, envFile); err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	if err := cfg.Validate(importer.DefaultRegistry().Formats()); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}
	return &project{root: root, cfg: cfg}, nil
}

func (p *project) path(rel string) string {
	return config.Resolve(p.root, rel)
}

func (p *project) logger(out io.Writer) (*logrus.Logger, error) {
	return logger.New(p.cfg.Logging.Level, p.cfg.Logging.Format, out)
}
