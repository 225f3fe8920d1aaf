package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CRYPTOTAX_"

// ApplyEnv loads envFile (if it exists) into the process environment and
// overlays CRYPTOTAX_* variables onto cfg. Variables already set in the
// environment win over the file.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	setString(&cfg.Data.Dir, "DATA_DIR")
	setString(&cfg.Data.Format, "DATA_FORMAT")
	setString(&cfg.Reports.Dir, "REPORTS_DIR")
	setString(&cfg.Calculation.Epsilon, "EPSILON")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.RunLog, "RUN_LOG")
	setString(&cfg.Store.Path, "STORE_PATH")

	if v, ok := lookup("SKIP_CURRENCIES"); ok {
		cfg.Data.SkipCurrencies = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Data.SkipCurrencies = append(cfg.Data.SkipCurrencies, s)
			}
		}
	}

	if v, ok := lookup("GIT_AUTO_COMMIT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %sGIT_AUTO_COMMIT %q: %w", EnvPrefix, v, err)
		}
		cfg.Git.AutoCommit = b
	}

	if v, ok := lookup("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %sWORKERS %q: %w", EnvPrefix, v, err)
		}
		cfg.Calculation.Workers = n
	}

	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func setString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}
