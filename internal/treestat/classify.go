package treestat

import (
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// Category groups files by their role in a project.
type Category string

const (
	CategoryCode          Category = "Code"
	CategoryMarkup        Category = "Markup"
	CategoryDocumentation Category = "Documentation"
	CategoryScripts       Category = "Scripts"
	CategoryConfiguration Category = "Configuration"
	CategoryOtherText     Category = "Other Text"
)

// Categories lists every category sorted by name, the order reports use.
var Categories = []Category{
	CategoryCode,
	CategoryConfiguration,
	CategoryDocumentation,
	CategoryMarkup,
	CategoryOtherText,
	CategoryScripts,
}

var categoryExtensions = map[Category][]string{
	CategoryCode: {
		".py", ".pyw", ".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx", ".java", ".c", ".cc", ".cpp",
		".h", ".hpp", ".cs", ".php", ".rb", ".go", ".rs", ".swift", ".kt", ".kts", ".scala",
		".css", ".scss", ".sass", ".less", ".sql", ".lua", ".r", ".pm", ".dart", ".groovy",
		".vb", ".asm", ".f", ".f90", ".f95", ".m", ".mm", ".vue", ".svelte", ".elm", ".clj",
		".ex", ".exs", ".erl", ".hrl", ".lisp", ".hs", ".zig", ".nim", ".jl", ".v", ".proto",
	},
	CategoryMarkup: {
		".html", ".htm", ".xml", ".xhtml", ".svg", ".md", ".markdown", ".rst", ".adoc", ".tex",
		".csv", ".tsv",
	},
	CategoryDocumentation: {
		".txt", ".doc", ".docx", ".pdf", ".rtf", ".odt",
	},
	CategoryScripts: {
		".sh", ".bash", ".zsh", ".fish", ".ksh", ".csh", ".ps1", ".psm1", ".bat", ".cmd",
		".pl", ".awk", ".sed", ".mk",
	},
	CategoryConfiguration: {
		".json", ".yaml", ".yml", ".toml", ".ini", ".cfg", ".conf", ".properties", ".env",
		".gitignore", ".gitattributes", ".editorconfig", ".dockerignore", ".lock", ".mod", ".sum",
	},
}

// Extensionless files whose role is known from their name alone.
var categoryNames = map[string]Category{
	"makefile":    CategoryScripts,
	"gnumakefile": CategoryScripts,
	"rakefile":    CategoryScripts,
	"jenkinsfile": CategoryScripts,
	"dockerfile":  CategoryConfiguration,
	"vagrantfile": CategoryConfiguration,
	"gemfile":     CategoryConfiguration,
	"procfile":    CategoryConfiguration,
	"license":     CategoryDocumentation,
	"readme":      CategoryDocumentation,
	"changelog":   CategoryDocumentation,
}

var extensionCategory = buildExtensionIndex(categoryExtensions)

func buildExtensionIndex(table map[Category][]string) map[string]Category {
	index := make(map[string]Category)
	for category, exts := range table {
		for _, ext := range exts {
			index[strings.ToLower(ext)] = category
		}
	}
	return index
}

// Classify maps a file path to its category. Files with unknown extensions
// are Other Text; callers are expected to have rejected binary files already.
func Classify(relPath string) Category {
	name := path.Base(relPath)
	ext := strings.ToLower(path.Ext(name))
	if ext != "" {
		if category, ok := extensionCategory[ext]; ok {
			return category
		}
	}
	if category, ok := categoryNames[strings.ToLower(name)]; ok {
		return category
	}
	return CategoryOtherText
}

var extensionLanguages = map[string]string{
	".py": "Python", ".pyw": "Python", ".c": "C", ".h": "C", ".cpp": "C++", ".hpp": "C++", ".cc": "C++",
	".js": "JavaScript", ".mjs": "JavaScript", ".cjs": "JavaScript", ".ts": "TypeScript", ".tsx": "TypeScript",
	".java": "Java", ".rb": "Ruby", ".go": "Go", ".rs": "Rust", ".php": "PHP", ".cs": "C#",
	".swift": "Swift", ".kt": "Kotlin", ".kts": "Kotlin", ".scala": "Scala", ".html": "HTML", ".htm": "HTML",
	".css": "CSS", ".scss": "Sass", ".sass": "Sass", ".less": "Less", ".sql": "SQL", ".sh": "Shell",
	".bash": "Shell", ".zsh": "Shell", ".ps1": "PowerShell", ".bat": "Batch", ".cmd": "Batch",
	".lua": "Lua", ".pl": "Perl", ".r": "R", ".dart": "Dart", ".elm": "Elm", ".clj": "Clojure",
	".ex": "Elixir", ".exs": "Elixir", ".erl": "Erlang", ".hs": "Haskell", ".v": "Verilog/V",
	".zig": "Zig", ".nim": "Nim", ".jl": "Julia", ".m": "Objective-C", ".mm": "Objective-C++",
	".vue": "Vue", ".svelte": "Svelte", ".jsx": "JavaScript (React)", ".asm": "Assembly",
	".dockerfile": "Dockerfile", ".mk": "Makefile",
	".json": "JSON", ".yaml": "YAML", ".yml": "YAML", ".toml": "TOML", ".xml": "XML",
	".ini": "INI", ".csv": "CSV", ".md": "Markdown", ".txt": "Text", ".rst": "reStructuredText",
	".gitignore": "Git Config", ".env": "Env Config",
}

// DetectLanguage returns a display language for the file. Known extensions
// win; otherwise the chroma lexer registry is consulted by file name, and
// the category name is the last resort.
func DetectLanguage(relPath string, category Category) string {
	name := path.Base(relPath)
	ext := strings.ToLower(path.Ext(name))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}
	if lexer := lexers.Match(name); lexer != nil {
		if cfg := lexer.Config(); cfg != nil && cfg.Name != "" {
			return cfg.Name
		}
	}
	return string(category)
}
