package treestat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options control file selection and the work performed by an Analyzer.
type Options struct {
	ExcludeDirs       []string
	NoDefaultExcludes bool
	UseGitignore      bool
	// SkipPaths are files never counted, typically report outputs written
	// inside the root. Absolute paths outside the root are ignored.
	SkipPaths []string
	Workers   int
	SkipGit   bool
}

// Analyzer walks a root directory and aggregates per-category statistics.
type Analyzer struct {
	root    string
	opts    Options
	logger  *slog.Logger
	fs      FileSystem
	readGit func(dir string) (*GitSummary, error)

	targetsMu sync.Mutex
	targets   []ReportTarget
}

// NewAnalyzer constructs an Analyzer for root.
func NewAnalyzer(root string, opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Analyzer{
		root:    root,
		opts:    opts,
		logger:  logger,
		fs:      OSFileSystem{},
		readGit: ReadGitSummary,
	}
}

// SetFileSystem overrides the filesystem implementation used for file access.
func (a *Analyzer) SetFileSystem(fs FileSystem) {
	if fs == nil {
		a.fs = OSFileSystem{}
		return
	}
	a.fs = fs
}

// Root returns the directory being analyzed.
func (a *Analyzer) Root() string {
	return a.root
}

func (a *Analyzer) excludeDirs() []string {
	var dirs []string
	if !a.opts.NoDefaultExcludes {
		dirs = append(dirs, DefaultExcludeDirs...)
	}
	return append(dirs, a.opts.ExcludeDirs...)
}

func (a *Analyzer) walkOptions() WalkOptions {
	var skip []string
	for _, p := range a.opts.SkipPaths {
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			skip = append(skip, filepath.ToSlash(p))
			continue
		}
		rel, err := filepath.Rel(a.root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		skip = append(skip, filepath.ToSlash(rel))
	}

	return WalkOptions{
		ExcludeDirs:  a.excludeDirs(),
		UseGitignore: a.opts.UseGitignore,
		SkipPaths:    skip,
		OnSkip: func(relPath string, err error) {
			a.loggerOrDefault().Warn("Skipping unreadable entry", "path", relPath, "error", err)
		},
	}
}

func (a *Analyzer) workerCount() int {
	if a.opts.Workers > 0 {
		return a.opts.Workers
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

func (a *Analyzer) absPath(relPath string) string {
	return filepath.Join(a.root, filepath.FromSlash(relPath))
}

type fileOutcome int

const (
	outcomeCounted fileOutcome = iota
	outcomeBinary
	outcomeUnreadable
)

// Analyze scans the root directory and returns the aggregate report.
func (a *Analyzer) Analyze(ctx context.Context) (*Report, error) {
	logger := a.loggerOrDefault()
	start := time.Now()

	files, err := CollectFiles(a.fs, a.root, a.walkOptions())
	if err != nil {
		return nil, fmt.Errorf("collect files: %w", err)
	}
	logger.Info("Collected files to analyze", "count", len(files))

	report := NewReport(a.root)
	report.RunID = uuid.NewString()
	report.GeneratedAt = start

	var reportMu sync.Mutex
	workerCount := a.workerCount()
	sem := make(chan struct{}, workerCount)
	var wg sync.WaitGroup
	var firstErr error

	for _, relPath := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			firstErr = ctxErr
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(rel string) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, tags, outcome := a.analyzeFile(rel)

			reportMu.Lock()
			defer reportMu.Unlock()
			switch outcome {
			case outcomeBinary:
				report.BinaryFiles++
			case outcomeUnreadable:
				report.UnreadableFiles++
			default:
				report.Add(rec, tags)
			}
		}(relPath)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	report.sortFiles()

	if !a.opts.SkipGit && a.readGit != nil {
		summary, gitErr := a.readGit(a.root)
		switch {
		case gitErr == nil:
			report.Git = summary
		case errors.Is(gitErr, ErrNotRepository):
			logger.Debug("Root is not inside a git repository", "root", a.root)
		default:
			logger.Warn("Failed to read git history", "error", gitErr)
		}
	}

	report.Elapsed = time.Since(start)
	logger.Info("Analysis complete", "files", report.Totals.Files, "lines", report.Totals.Lines, "chars", report.Totals.Chars, "binary_files", report.BinaryFiles, "unreadable_files", report.UnreadableFiles, "elapsed", report.Elapsed.String())

	return report, nil
}

// Run analyzes the root and publishes the report to every registered target.
// Target failures are returned after all targets were attempted; the report
// is returned either way.
func (a *Analyzer) Run(ctx context.Context) (*Report, error) {
	report, err := a.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	return report, a.dispatchReport(ctx, report)
}

func (a *Analyzer) analyzeFile(relPath string) (FileRecord, map[string]int, fileOutcome) {
	logger := a.loggerOrDefault()
	absPath := a.absPath(relPath)

	f, err := a.fs.Open(absPath)
	if err != nil {
		logger.Debug("Failed to open file", "file_path", relPath, "error", err)
		return FileRecord{}, nil, outcomeUnreadable
	}
	defer f.Close()

	binary, err := IsBinary(f)
	if err != nil {
		logger.Debug("Failed to sample file", "file_path", relPath, "error", err)
		return FileRecord{}, nil, outcomeUnreadable
	}
	if binary {
		return FileRecord{}, nil, outcomeBinary
	}

	content, err := a.rewind(f, absPath)
	if err != nil {
		logger.Debug("Failed to reopen file", "file_path", relPath, "error", err)
		return FileRecord{}, nil, outcomeUnreadable
	}
	if content != f {
		defer content.Close()
	}

	category := Classify(relPath)
	counts, err := CountReader(content)
	if err != nil {
		logger.Debug("Failed to count file", "file_path", relPath, "error", err)
		return FileRecord{}, nil, outcomeUnreadable
	}

	rec := FileRecord{
		Path:     relPath,
		Category: category,
		Language: DetectLanguage(relPath, category),
		Lines:    counts.Lines,
		Chars:    counts.Chars,
		Tokens:   counts.Tokens,
	}
	return rec, counts.Tags, outcomeCounted
}

// rewind positions f at its start, reopening the file when it cannot seek.
func (a *Analyzer) rewind(f fs.File, absPath string) (fs.File, error) {
	if seeker, ok := f.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err == nil {
			return f, nil
		}
	}
	return a.fs.Open(absPath)
}

func (a *Analyzer) loggerOrDefault() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}
