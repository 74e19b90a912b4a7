package treestat

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// reportDocument is the serialized form shared by the JSON and YAML exports.
type reportDocument struct {
	Meta       documentMeta            `json:"meta" yaml:"meta"`
	Totals     documentTotals          `json:"totals" yaml:"totals"`
	Categories map[string]totalsFields `json:"categories" yaml:"categories"`
	Languages  map[string]totalsFields `json:"languages" yaml:"languages"`
	TopFiles   []documentFile          `json:"top_files" yaml:"top_files"`
	Todos      map[string]int          `json:"todos" yaml:"todos"`
	Git        *documentGit            `json:"git,omitempty" yaml:"git,omitempty"`
}

type documentMeta struct {
	RunID         string  `json:"run_id" yaml:"run_id"`
	AnalyzedAt    string  `json:"analyzed_at" yaml:"analyzed_at"`
	RootDir       string  `json:"root_dir" yaml:"root_dir"`
	ExecutionTime float64 `json:"execution_time" yaml:"execution_time"`
}

type totalsFields struct {
	Files  int `json:"files" yaml:"files"`
	Lines  int `json:"lines" yaml:"lines"`
	Chars  int `json:"chars" yaml:"chars"`
	Tokens int `json:"tokens" yaml:"tokens"`
}

type documentTotals struct {
	totalsFields    `yaml:",inline"`
	BinaryFiles     int `json:"binary_files" yaml:"binary_files"`
	UnreadableFiles int `json:"unreadable_files" yaml:"unreadable_files"`
}

type documentFile struct {
	Path     string `json:"path" yaml:"path"`
	Category string `json:"category" yaml:"category"`
	Language string `json:"lang" yaml:"lang"`
	Lines    int    `json:"lines" yaml:"lines"`
	Tokens   int    `json:"tokens" yaml:"tokens"`
}

type documentGit struct {
	Branch          string        `json:"branch" yaml:"branch"`
	TotalCommits    int           `json:"total_commits" yaml:"total_commits"`
	Contributors    int           `json:"contributors_count" yaml:"contributors_count"`
	TopContributors []Contributor `json:"top_contributors" yaml:"top_contributors"`
}

func fieldsOf(t Totals) totalsFields {
	return totalsFields{Files: t.Files, Lines: t.Lines, Chars: t.Chars, Tokens: t.Tokens}
}

// newReportDocument converts a report into its serialized form. topLimit < 0 keeps every file.
func newReportDocument(report *Report, topLimit int) reportDocument {
	doc := reportDocument{
		Meta: documentMeta{
			RunID:         report.RunID,
			AnalyzedAt:    report.GeneratedAt.Format(time.RFC3339),
			RootDir:       report.Root,
			ExecutionTime: report.Elapsed.Seconds(),
		},
		Totals: documentTotals{
			totalsFields:    fieldsOf(report.Totals),
			BinaryFiles:     report.BinaryFiles,
			UnreadableFiles: report.UnreadableFiles,
		},
		Categories: make(map[string]totalsFields, len(report.Categories)),
		Languages:  make(map[string]totalsFields, len(report.Languages)),
		TopFiles:   []documentFile{},
		Todos:      make(map[string]int, len(DebtTags)),
	}
	for category, totals := range report.Categories {
		doc.Categories[string(category)] = fieldsOf(totals)
	}
	for lang, totals := range report.Languages {
		doc.Languages[lang] = fieldsOf(totals)
	}
	for _, tag := range report.TagCounts() {
		doc.Todos[tag.Tag] = tag.Count
	}
	for _, rec := range report.TopFiles(topLimit) {
		doc.TopFiles = append(doc.TopFiles, documentFile{
			Path:     rec.Path,
			Category: string(rec.Category),
			Language: rec.Language,
			Lines:    rec.Lines,
			Tokens:   rec.Tokens,
		})
	}
	if report.Git != nil {
		doc.Git = &documentGit{
			Branch:          report.Git.Branch,
			TotalCommits:    report.Git.TotalCommits,
			Contributors:    report.Git.Contributors,
			TopContributors: report.Git.TopContributors,
		}
	}
	return doc
}

// WriteJSON writes the report as indented JSON. topLimit bounds the top_files
// list; a negative value includes every file.
func WriteJSON(w io.Writer, report *Report, topLimit int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(newReportDocument(report, topLimit)); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

// WriteYAML writes the report as YAML using the same document layout as WriteJSON.
func WriteYAML(w io.Writer, report *Report, topLimit int) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newReportDocument(report, topLimit)); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}

var csvHeader = []string{"Kind", "Name", "Files", "Lines", "Chars", "Tokens"}

// WriteCSV writes one row per category and language followed by a total row.
func WriteCSV(w io.Writer, report *Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range tableRows(report) {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = fmt.Sprint(cell)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func tableRows(report *Report) [][]any {
	var rows [][]any
	appendRow := func(kind string, row Row) {
		rows = append(rows, []any{kind, row.Name, row.Files, row.Lines, row.Chars, row.Tokens})
	}
	for _, row := range report.CategoryRows() {
		appendRow("category", row)
	}
	for _, row := range report.LanguageRows() {
		appendRow("language", row)
	}
	appendRow("total", Row{Name: "Total", Totals: report.Totals})
	return rows
}

// WriteXLSX saves a workbook with a summary sheet and a sheet listing every counted file.
func WriteXLSX(path string, report *Report) error {
	wb := excelize.NewFile()
	defer wb.Close()

	const summarySheet = "Summary"
	const filesSheet = "Files"

	if err := wb.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setSheetRows(wb, summarySheet, append([][]any{toAnySlice(csvHeader)}, tableRows(report)...)); err != nil {
		return err
	}

	if _, err := wb.NewSheet(filesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	fileRows := [][]any{{"Path", "Category", "Language", "Lines", "Chars", "Tokens"}}
	for _, rec := range report.Files {
		fileRows = append(fileRows, []any{rec.Path, string(rec.Category), rec.Language, rec.Lines, rec.Chars, rec.Tokens})
	}
	if err := setSheetRows(wb, filesSheet, fileRows); err != nil {
		return err
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func setSheetRows(wb *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := wb.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// ExportFormat identifies a report file format.
type ExportFormat string

const (
	FormatText ExportFormat = "text"
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
	FormatYAML ExportFormat = "yaml"
	FormatXLSX ExportFormat = "xlsx"
)

// SaveReport writes the report to path in the requested format, creating
// parent directories as needed.
func SaveReport(path string, format ExportFormat, report *Report, renderOpts RenderOptions) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	if format == FormatXLSX {
		return WriteXLSX(path, report)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	switch format {
	case FormatText:
		err = Render(f, report, renderOpts)
	case FormatJSON:
		err = WriteJSON(f, report, renderOpts.topFiles())
	case FormatCSV:
		err = WriteCSV(f, report)
	case FormatYAML:
		err = WriteYAML(f, report, renderOpts.topFiles())
	default:
		err = fmt.Errorf("unknown report format %q", format)
	}
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	return err
}

// FileOutputTarget writes the configured report files after every analysis.
type FileOutputTarget struct {
	files      []OutputFile
	renderOpts RenderOptions
	logger     *slog.Logger
}

// NewFileOutputTarget returns nil when no output files are configured.
func NewFileOutputTarget(files []OutputFile, renderOpts RenderOptions, logger *slog.Logger) *FileOutputTarget {
	if len(files) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileOutputTarget{files: files, renderOpts: renderOpts, logger: logger}
}

func (t *FileOutputTarget) Name() string {
	return "files"
}

func (t *FileOutputTarget) PublishReport(_ context.Context, report *Report) error {
	var errs []error
	for _, out := range t.files {
		if err := SaveReport(out.Path, out.Format, report, t.renderOpts); err != nil {
			errs = append(errs, fmt.Errorf("save %s report %s: %w", out.Format, out.Path, err))
			continue
		}
		t.logger.Info("Report saved", "format", string(out.Format), "path", out.Path)
	}
	return errors.Join(errs...)
}
