package treestat

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	defaultTopFiles = 5
	ruleWidth       = 80
)

// RenderOptions tune the text report.
type RenderOptions struct {
	// TopFiles is the number of largest files listed; zero hides the section.
	TopFiles int
	// Plain drops the optional sections (languages, largest files, tags, git)
	// and prints only the category summary.
	Plain bool
}

func (o RenderOptions) topFiles() int {
	return max(o.TopFiles, 0)
}

var printer = message.NewPrinter(language.English)

// FormatNumber renders n with thousands separators.
func FormatNumber(n int) string {
	return printer.Sprintf("%d", n)
}

// Render writes the formatted text report.
func Render(w io.Writer, report *Report, opts RenderOptions) error {
	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "PROJECT STATISTICS SUMMARY: %s\n", rootLabel(report.Root))
	fmt.Fprintf(&b, "Generated %s in %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"), report.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(&b, rule)

	rows := report.CategoryRows()
	if len(rows) == 0 {
		fmt.Fprintln(&b, "\nNo text files found.")
	} else {
		table := [][]string{{"Category", "Files", "Lines", "Characters", "% Lines"}}
		for _, row := range rows {
			table = append(table, []string{
				row.Name,
				FormatNumber(row.Files),
				FormatNumber(row.Lines),
				FormatNumber(row.Chars),
				fmt.Sprintf("%.1f%%", report.LineShare(row.Lines)),
			})
		}
		fmt.Fprintln(&b)
		writeTable(&b, table)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "TOTAL: %s files, %s lines, %s characters (~%s tokens)\n",
		FormatNumber(report.Totals.Files),
		FormatNumber(report.Totals.Lines),
		FormatNumber(report.Totals.Chars),
		FormatNumber(report.Totals.Tokens),
	)
	fmt.Fprintf(&b, "Skipped: %s binary, %s unreadable\n", FormatNumber(report.BinaryFiles), FormatNumber(report.UnreadableFiles))
	fmt.Fprintln(&b, rule)

	if !opts.Plain {
		renderDetails(&b, report, opts)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderDetails(b *strings.Builder, report *Report, opts RenderOptions) {
	if langs := report.LanguageRows(); len(langs) > 0 {
		fmt.Fprintln(b, "\n--- Language Breakdown ---")
		table := [][]string{{"Language", "Files", "Lines", "Tokens (est.)", "% Lines"}}
		for _, row := range langs {
			table = append(table, []string{
				row.Name,
				FormatNumber(row.Files),
				FormatNumber(row.Lines),
				FormatNumber(row.Tokens),
				fmt.Sprintf("%.1f%%", report.LineShare(row.Lines)),
			})
		}
		writeTable(b, table)
	}

	if top := report.TopFiles(opts.topFiles()); len(top) > 0 {
		fmt.Fprintf(b, "\n--- Top %d Largest Files ---\n", opts.topFiles())
		table := make([][]string, 0, len(top)+1)
		table = append(table, []string{"File", "Lines"})
		for _, rec := range top {
			table = append(table, []string{rec.Path, FormatNumber(rec.Lines)})
		}
		writeTable(b, table)
	}

	if report.Totals.Files > 0 {
		fmt.Fprintln(b, "\n--- Technical Debt Indicators ---")
		for _, tag := range report.TagCounts() {
			fmt.Fprintf(b, "%-6s %s\n", tag.Tag+":", FormatNumber(tag.Count))
		}
	}

	if git := report.Git; git != nil {
		fmt.Fprintln(b, "\n--- Git Pulse ---")
		if git.Branch != "" {
			fmt.Fprintf(b, "Branch:        %s\n", git.Branch)
		}
		fmt.Fprintf(b, "Total Commits: %s\n", FormatNumber(git.TotalCommits))
		fmt.Fprintf(b, "Contributors:  %s\n", FormatNumber(git.Contributors))
		for _, c := range git.TopContributors {
			fmt.Fprintf(b, "  %6s  %s\n", FormatNumber(c.Commits), c.Name)
		}
	}
}

// writeTable aligns columns; the first column is left aligned and the rest right aligned.
func writeTable(b *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			pad := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
			if i == 0 {
				cells[i] = cell + pad
			} else {
				cells[i] = pad + cell
			}
		}
		fmt.Fprintln(b, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func rootLabel(root string) string {
	base := filepath.Base(root)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return root
	}
	return base
}
