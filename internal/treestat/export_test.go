package treestat

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

func TestWriteJSON(t *testing.T) {
	report := sampleReport("/work/proj", "run-1", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, report, 2))

	var doc reportDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "run-1", doc.Meta.RunID)
	assert.Equal(t, "/work/proj", doc.Meta.RootDir)
	assert.Equal(t, "2024-03-01T12:00:00Z", doc.Meta.AnalyzedAt)
	assert.InDelta(t, 1.5, doc.Meta.ExecutionTime, 0.001)
	assert.Equal(t, 3, doc.Totals.Files)
	assert.Equal(t, 45, doc.Totals.Lines)
	assert.Equal(t, 2, doc.Totals.BinaryFiles)
	assert.Equal(t, totalsFields{Files: 2, Lines: 40, Chars: 800, Tokens: 200}, doc.Categories["Code"])
	assert.Equal(t, 2, doc.Languages["Go"].Files)
	assert.Equal(t, 1, doc.Todos["TODO"])
	assert.Equal(t, 0, doc.Todos["FIXME"])
	require.Len(t, doc.TopFiles, 2)
	assert.Equal(t, "lib/util.go", doc.TopFiles[0].Path)
	assert.Nil(t, doc.Git)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	var totals map[string]any
	require.NoError(t, json.Unmarshal(raw["totals"], &totals))
	assert.Contains(t, totals, "files", "totals fields are flattened")
	assert.NotContains(t, raw, "git")

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, report, -1))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc.TopFiles, 3)
}

func TestWriteYAML(t *testing.T) {
	report := sampleReport("/work/proj", "run-1", time.Now())
	report.Git = &GitSummary{Branch: "main", TotalCommits: 4, Contributors: 1, TopContributors: []Contributor{{Name: "alice", Commits: 4}}}

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, report, 5))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))

	totals, ok := doc["totals"].(map[string]any)
	require.True(t, ok, "totals should be a mapping")
	assert.Equal(t, 3, totals["files"])
	assert.Equal(t, 2, totals["binary_files"])

	git, ok := doc["git"].(map[string]any)
	require.True(t, ok, "git should be a mapping")
	assert.Equal(t, "main", git["branch"])
	assert.Equal(t, 1, git["contributors_count"])
}

func TestWriteCSV(t *testing.T) {
	report := sampleReport("/work/proj", "run-1", time.Now())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"category", "Code", "2", "40", "800", "200"}, records[1])
	assert.Equal(t, []string{"category", "Markup", "1", "5", "80", "20"}, records[2])
	assert.Equal(t, []string{"language", "Go", "2", "40", "800", "200"}, records[3])
	assert.Equal(t, []string{"language", "Markdown", "1", "5", "80", "20"}, records[4])
	assert.Equal(t, []string{"total", "Total", "3", "45", "880", "220"}, records[5])
}

func TestWriteXLSX(t *testing.T) {
	report := sampleReport("/work/proj", "run-1", time.Now())
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(path, report))

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Summary", "Files"}, wb.GetSheetList())

	summary, err := wb.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, summary, 6)
	assert.Equal(t, csvHeader, summary[0])
	assert.Equal(t, []string{"total", "Total", "3", "45", "880", "220"}, summary[5])

	files, err := wb.GetRows("Files")
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, []string{"README.md", "Markup", "Markdown", "5", "80", "20"}, files[1])
}

func TestSaveReportFormats(t *testing.T) {
	report := sampleReport("/work/proj", "run-1", time.Now())
	dir := filepath.Join(t.TempDir(), "reports")

	for _, format := range []ExportFormat{FormatText, FormatJSON, FormatCSV, FormatYAML, FormatXLSX} {
		path := filepath.Join(dir, "report."+string(format))
		require.NoError(t, SaveReport(path, format, report, RenderOptions{}), "format %s", format)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), "format %s", format)
	}

	err := SaveReport(filepath.Join(dir, "report.bin"), ExportFormat("bin"), report, RenderOptions{})
	assert.Error(t, err)
}

func TestFileOutputTarget(t *testing.T) {
	assert.Nil(t, NewFileOutputTarget(nil, RenderOptions{}, nil))

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	target := NewFileOutputTarget([]OutputFile{
		{Path: filepath.Join(dir, "summary.txt"), Format: FormatText},
		{Path: filepath.Join(blocker, "report.json"), Format: FormatJSON},
		{Path: filepath.Join(dir, "report.csv"), Format: FormatCSV},
	}, RenderOptions{}, nil)
	require.NotNil(t, target)
	assert.Equal(t, "files", target.Name())

	err := target.PublishReport(context.Background(), sampleReport("/work/proj", "run-1", time.Now()))
	assert.Error(t, err, "writing below a regular file must fail")

	text, readErr := os.ReadFile(filepath.Join(dir, "summary.txt"))
	require.NoError(t, readErr)
	assert.Contains(t, string(text), "PROJECT STATISTICS SUMMARY: proj")
	assert.FileExists(t, filepath.Join(dir, "report.csv"))
}
