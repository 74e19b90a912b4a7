package treestat

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err, "open in-memory db")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, EnsureSchema(context.Background(), db))
	return db
}

func sampleReport(root, runID string, generatedAt time.Time) *Report {
	report := NewReport(root)
	report.RunID = runID
	report.GeneratedAt = generatedAt
	report.Elapsed = 1500 * time.Millisecond
	report.BinaryFiles = 2
	report.Add(FileRecord{Path: "main.go", Category: CategoryCode, Language: "Go", Lines: 10, Chars: 200, Tokens: 50}, map[string]int{"TODO": 1})
	report.Add(FileRecord{Path: "lib/util.go", Category: CategoryCode, Language: "Go", Lines: 30, Chars: 600, Tokens: 150}, nil)
	report.Add(FileRecord{Path: "README.md", Category: CategoryMarkup, Language: "Markdown", Lines: 5, Chars: 80, Tokens: 20}, map[string]int{"NOTE": 2})
	report.sortFiles()
	return report
}

func TestArchiveTargetStoresRuns(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	target := NewArchiveTarget(db)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, target.PublishReport(ctx, sampleReport("/proj", "run-1", base)))
	require.NoError(t, target.PublishReport(ctx, sampleReport("/proj", "run-2", base.Add(time.Hour))))
	require.NoError(t, target.PublishReport(ctx, sampleReport("/other", "run-3", base.Add(2*time.Hour))))

	runs, err := StoredRuns(ctx, db, "/proj", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID, "newest run first")
	assert.Equal(t, "run-1", runs[1].RunID)

	first := runs[1]
	assert.True(t, first.GeneratedAt.Equal(base), "generated_at %v", first.GeneratedAt)
	assert.Equal(t, 1500*time.Millisecond, first.Elapsed)
	assert.Equal(t, Totals{Files: 3, Lines: 45, Chars: 880, Tokens: 220}, first.Totals)
	assert.Equal(t, 2, first.BinaryFiles)
	assert.Equal(t, []Row{
		{Name: "Code", Totals: Totals{Files: 2, Lines: 40, Chars: 800, Tokens: 200}},
		{Name: "Markup", Totals: Totals{Files: 1, Lines: 5, Chars: 80, Tokens: 20}},
	}, first.Categories)

	all, err := StoredRuns(ctx, db, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-3", all[0].RunID)

	limited, err := StoredRuns(ctx, db, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestArchiveTargetRejectsDuplicateRun(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	target := NewArchiveTarget(db)

	report := sampleReport("/proj", "run-1", time.Now())
	require.NoError(t, target.PublishReport(ctx, report))
	assert.Error(t, target.PublishReport(ctx, report), "duplicate run id")

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_categories WHERE run_id = ?`, "run-1").Scan(&count))
	assert.Equal(t, 2, count, "the rolled back duplicate leaves the first run intact")
}

func TestOpenDatabaseCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	db, err := OpenDatabase(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	runs, err := StoredRuns(context.Background(), db, "", 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, nil))
	assert.Equal(t, "No archived runs.\n", buf.String())

	buf.Reset()
	runs := []StoredRun{{
		RunID:       "run-1",
		Root:        "/proj",
		GeneratedAt: time.Now(),
		Totals:      Totals{Files: 1200, Lines: 34567, Chars: 1000000},
		BinaryFiles: 4,
		Categories:  []Row{{Name: "Code", Totals: Totals{Files: 1000, Lines: 30000}}},
	}}
	require.NoError(t, RenderHistory(&buf, runs))

	out := buf.String()
	for _, want := range []string{"run-1", "/proj", "1,200 files", "34,567 lines", "1,000,000 characters", "4 binary skipped", "Code"} {
		assert.Contains(t, out, want)
	}
}
