package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/leafo/treestat/internal/treestat"
)

type cliFlags struct {
	root              string
	configPath        string
	envFile           string
	exclude           string
	noDefaultExcludes bool
	gitignore         bool
	workers           int
	top               int
	noGit             bool
	plain             bool
	outText           string
	outJSON           string
	outCSV            string
	outYAML           string
	outXLSX           string
	dbPath            string
	history           int
	meiliHost         string
	meiliIndex        string
	meiliKey          string
	redisAddr         string
	redisKey          string
	redisPassword     string
	exec              string
	watch             bool
	logLevel          string
}

func main() {
	var f cliFlags

	flag.StringVar(&f.root, "root", ".", "root directory to analyze")
	flag.StringVar(&f.configPath, "config", "", "path to a JSON config file")
	flag.StringVar(&f.envFile, "env", ".env", "path to an env file with TREESTAT_* defaults")
	flag.StringVar(&f.exclude, "exclude", "", "comma separated list of extra directories to exclude")
	flag.BoolVar(&f.noDefaultExcludes, "no-default-excludes", false, "do not exclude the built-in directory list")
	flag.BoolVar(&f.gitignore, "gitignore", false, "skip files matched by .gitignore")
	flag.IntVar(&f.workers, "workers", 0, "number of files counted concurrently (default: number of CPUs)")
	flag.IntVar(&f.top, "top", 5, "number of largest files to list")
	flag.BoolVar(&f.noGit, "no-git", false, "skip git history analysis")
	flag.BoolVar(&f.plain, "plain", false, "print only the category summary")
	flag.StringVar(&f.outText, "out", "", "save the text report to this file")
	flag.StringVar(&f.outJSON, "json", "", "export the report as JSON")
	flag.StringVar(&f.outCSV, "csv", "", "export the report as CSV")
	flag.StringVar(&f.outYAML, "yaml", "", "export the report as YAML")
	flag.StringVar(&f.outXLSX, "xlsx", "", "export the report as an Excel workbook")
	flag.StringVar(&f.dbPath, "db", "", "archive every run in this SQLite database")
	flag.IntVar(&f.history, "history", 0, "print the last N archived runs for the root and exit (requires -db)")
	flag.StringVar(&f.meiliHost, "meili-host", "", "Meilisearch host")
	flag.StringVar(&f.meiliIndex, "meili-index", "", "Meilisearch index receiving file records")
	flag.StringVar(&f.meiliKey, "meili-key", "", "Meilisearch API key")
	flag.StringVar(&f.redisAddr, "redis-addr", "", "Redis address receiving the latest report")
	flag.StringVar(&f.redisKey, "redis-key", "", "Redis key for the latest report")
	flag.StringVar(&f.redisPassword, "redis-password", "", "Redis password")
	flag.StringVar(&f.exec, "exec", "", "shell command receiving the JSON report on stdin")
	flag.BoolVar(&f.watch, "watch", false, "rerun the analysis whenever files change")
	flag.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	level, err := parseLevel(f.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)

	cfg, err := loadConfig(f)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		logger.Error("Failed to resolve root", "root", cfg.Root, "error", err)
		os.Exit(1)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		logger.Error("Root directory not found", "root", absRoot, "error", err)
		os.Exit(1)
	}
	if !info.IsDir() {
		logger.Error("Root is not a directory", "root", absRoot)
		os.Exit(1)
	}
	cfg.Root = absRoot

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, logger); err != nil {
		logger.Error("treestat failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg treestat.Config, f cliFlags, logger *slog.Logger) error {
	renderOpts := cfg.RenderOptions()
	renderOpts.Plain = f.plain

	if f.history > 0 {
		if cfg.DBPath == "" {
			return fmt.Errorf("-history requires -db")
		}
		db, err := treestat.OpenDatabase(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		runs, err := treestat.StoredRuns(ctx, db, cfg.Root, f.history)
		if err != nil {
			return err
		}
		return treestat.RenderHistory(os.Stdout, runs)
	}

	analyzer := treestat.NewAnalyzer(cfg.Root, cfg.Options(), logger)

	if cfg.DBPath != "" {
		db, err := treestat.OpenDatabase(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("Opened database", "path", cfg.DBPath)
		analyzer.RegisterTarget(treestat.NewArchiveTarget(db))
	}

	if out := treestat.NewFileOutputTarget(cfg.Outputs.Files(), renderOpts, logger); out != nil {
		analyzer.RegisterTarget(out)
	}
	analyzer.RegisterTarget(treestat.NewShellTarget(cfg.Exec))

	if target, err := treestat.NewMeilisearchTarget(ctx, cfg.Meilisearch, logger); err != nil {
		logger.Warn("Failed to initialize Meilisearch", "error", err)
	} else {
		analyzer.RegisterTarget(target)
	}
	if target, err := treestat.NewRedisTarget(ctx, cfg.Redis); err != nil {
		logger.Warn("Failed to initialize Redis", "error", err)
	} else if target != nil {
		if closer, ok := target.(io.Closer); ok {
			defer closer.Close()
		}
		analyzer.RegisterTarget(target)
	}

	fmt.Fprintf(os.Stderr, "Scanning %s...\n", filepath.Base(cfg.Root))
	report, err := analyzer.Run(ctx)
	if report == nil {
		return err
	}
	if renderErr := treestat.Render(os.Stdout, report, renderOpts); renderErr != nil {
		return renderErr
	}
	if err != nil && !f.watch {
		return err
	}

	if f.watch {
		logger.Info("Entering watch mode")
		err := analyzer.WatchAndReport(ctx, func(r *treestat.Report) error {
			return treestat.Render(os.Stdout, r, renderOpts)
		})
		if err != nil && ctx.Err() == nil {
			return err
		}
	}
	return nil
}

// loadConfig layers defaults, environment, the config file and explicitly set flags.
func loadConfig(f cliFlags) (treestat.Config, error) {
	cfg := treestat.DefaultConfig()
	if err := treestat.LoadEnv(f.envFile, &cfg); err != nil {
		return cfg, err
	}
	if f.configPath != "" {
		if err := treestat.LoadConfigFile(f.configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "root":
			cfg.Root = f.root
		case "exclude":
			cfg.ExcludeDirs = append(cfg.ExcludeDirs, treestat.SplitList(f.exclude)...)
		case "no-default-excludes":
			cfg.NoDefaultExcludes = f.noDefaultExcludes
		case "gitignore":
			cfg.UseGitignore = f.gitignore
		case "workers":
			cfg.Workers = f.workers
		case "top":
			cfg.TopFiles = f.top
		case "no-git":
			cfg.SkipGit = f.noGit
		case "out":
			cfg.Outputs.Text = f.outText
		case "json":
			cfg.Outputs.JSON = f.outJSON
		case "csv":
			cfg.Outputs.CSV = f.outCSV
		case "yaml":
			cfg.Outputs.YAML = f.outYAML
		case "xlsx":
			cfg.Outputs.XLSX = f.outXLSX
		case "db":
			cfg.DBPath = f.dbPath
		case "meili-host":
			cfg.Meilisearch.Host = f.meiliHost
		case "meili-index":
			cfg.Meilisearch.Index = f.meiliIndex
		case "meili-key":
			cfg.Meilisearch.APIKey = f.meiliKey
		case "redis-addr":
			cfg.Redis.Addr = f.redisAddr
		case "redis-key":
			cfg.Redis.Key = f.redisKey
		case "redis-password":
			cfg.Redis.Password = f.redisPassword
		case "exec":
			cfg.Exec = f.exec
		}
	})
	if flag.NArg() > 0 {
		cfg.Root = flag.Arg(0)
	}

	return cfg, cfg.Validate()
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", raw)
}
