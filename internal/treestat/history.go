package treestat

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"
)

// StoredRun is an archived report summary.
type StoredRun struct {
	RunID       string
	Root        string
	GeneratedAt time.Time
	Elapsed     time.Duration
	Totals      Totals
	BinaryFiles int
	Categories  []Row
}

// StoredRuns returns up to limit archived runs, newest first. An empty root
// returns runs for every root.
func StoredRuns(ctx context.Context, db *sql.DB, root string, limit int) ([]StoredRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.QueryContext(ctx, `
SELECT run_id, root, generated_at, elapsed_ms, files, lines, chars, tokens, binary_files
FROM runs
WHERE ? = '' OR root = ?
ORDER BY generated_at DESC
LIMIT ?
`, root, root, limit)
	if err != nil {
		return nil, fmt.Errorf("query stored runs: %w", err)
	}
	defer rows.Close()

	var runs []StoredRun
	for rows.Next() {
		var run StoredRun
		var elapsedMS int64
		if err := rows.Scan(&run.RunID, &run.Root, &run.GeneratedAt, &elapsedMS,
			&run.Totals.Files, &run.Totals.Lines, &run.Totals.Chars, &run.Totals.Tokens, &run.BinaryFiles); err != nil {
			return nil, fmt.Errorf("scan stored run: %w", err)
		}
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored runs: %w", err)
	}

	for i := range runs {
		categories, err := storedCategories(ctx, db, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Categories = categories
	}

	return runs, nil
}

func storedCategories(ctx context.Context, db *sql.DB, runID string) ([]Row, error) {
	rows, err := db.QueryContext(ctx, `
SELECT category, files, lines, chars, tokens
FROM run_categories
WHERE run_id = ?
ORDER BY category
`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stored categories: %w", err)
	}
	defer rows.Close()

	var categories []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.Name, &row.Files, &row.Lines, &row.Chars, &row.Tokens); err != nil {
			return nil, fmt.Errorf("scan stored category: %w", err)
		}
		categories = append(categories, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored categories: %w", err)
	}
	return categories, nil
}

// RenderHistory writes one block per archived run.
func RenderHistory(w io.Writer, runs []StoredRun) error {
	var b strings.Builder
	if len(runs) == 0 {
		b.WriteString("No archived runs.\n")
	}
	for _, run := range runs {
		fmt.Fprintf(&b, "%s  %s  %s\n", run.GeneratedAt.Local().Format("2006-01-02 15:04:05"), run.RunID, run.Root)
		fmt.Fprintf(&b, "  %s files, %s lines, %s characters, %s binary skipped\n",
			FormatNumber(run.Totals.Files), FormatNumber(run.Totals.Lines), FormatNumber(run.Totals.Chars), FormatNumber(run.BinaryFiles))
		for _, row := range run.Categories {
			fmt.Fprintf(&b, "    %-14s %10s files %12s lines\n", row.Name, FormatNumber(row.Files), FormatNumber(row.Lines))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
