package treestat

import (
	"sort"
	"time"
)

// FileRecord captures the tallies of one counted file.
type FileRecord struct {
	Path     string
	Category Category
	Language string
	Lines    int
	Chars    int
	Tokens   int
}

// Totals accumulates counts for a group of files.
type Totals struct {
	Files  int
	Lines  int
	Chars  int
	Tokens int
}

func (t *Totals) add(rec FileRecord) {
	t.Files++
	t.Lines += rec.Lines
	t.Chars += rec.Chars
	t.Tokens += rec.Tokens
}

// Row is a named Totals entry used for ordered rendering.
type Row struct {
	Name string
	Totals
}

// TagCount is the number of occurrences of a debt tag.
type TagCount struct {
	Tag   string
	Count int
}

// Report is the aggregate result of one analysis run.
type Report struct {
	RunID       string
	Root        string
	GeneratedAt time.Time
	Elapsed     time.Duration

	Totals          Totals
	BinaryFiles     int
	UnreadableFiles int

	Categories map[Category]Totals
	Languages  map[string]Totals
	Files      []FileRecord
	Tags       map[string]int

	Git *GitSummary
}

// NewReport returns an empty report for root.
func NewReport(root string) *Report {
	return &Report{
		Root:       root,
		Categories: make(map[Category]Totals),
		Languages:  make(map[string]Totals),
		Tags:       make(map[string]int),
	}
}

// Add folds a counted file and its debt tags into the report.
func (r *Report) Add(rec FileRecord, tags map[string]int) {
	r.Totals.add(rec)

	cat := r.Categories[rec.Category]
	cat.add(rec)
	r.Categories[rec.Category] = cat

	lang := r.Languages[rec.Language]
	lang.add(rec)
	r.Languages[rec.Language] = lang

	for _, tag := range DebtTags {
		r.Tags[tag] += tags[tag]
	}
	r.Files = append(r.Files, rec)
}

// CategoryRows returns the categories that hold at least one file, in the
// order of Categories.
func (r *Report) CategoryRows() []Row {
	rows := make([]Row, 0, len(r.Categories))
	for _, category := range Categories {
		if totals, ok := r.Categories[category]; ok {
			rows = append(rows, Row{Name: string(category), Totals: totals})
		}
	}
	return rows
}

// LanguageRows returns languages ordered by line count, largest first.
func (r *Report) LanguageRows() []Row {
	rows := make([]Row, 0, len(r.Languages))
	for lang, totals := range r.Languages {
		rows = append(rows, Row{Name: lang, Totals: totals})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Lines != rows[j].Lines {
			return rows[i].Lines > rows[j].Lines
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// TopFiles returns up to limit files with the most lines.
func (r *Report) TopFiles(limit int) []FileRecord {
	files := append([]FileRecord(nil), r.Files...)
	sort.Slice(files, func(i, j int) bool {
		if files[i].Lines != files[j].Lines {
			return files[i].Lines > files[j].Lines
		}
		return files[i].Path < files[j].Path
	})
	if limit >= 0 && len(files) > limit {
		files = files[:limit]
	}
	return files
}

// TagCounts returns every debt tag ordered by count, most frequent first.
// Ties keep the order of DebtTags.
func (r *Report) TagCounts() []TagCount {
	counts := make([]TagCount, 0, len(DebtTags))
	for _, tag := range DebtTags {
		counts = append(counts, TagCount{Tag: tag, Count: r.Tags[tag]})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// LineShare returns the percentage of all counted lines that lines represents.
func (r *Report) LineShare(lines int) float64 {
	total := r.Totals.Lines
	if total == 0 {
		return 0
	}
	return float64(lines) / float64(total) * 100
}

// sortFiles orders records by path so results do not depend on worker scheduling.
func (r *Report) sortFiles() {
	sort.Slice(r.Files, func(i, j int) bool { return r.Files[i].Path < r.Files[j].Path })
}
