package treestat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures treestat settings loaded from the environment, a JSON
// config file and command line flags.
type Config struct {
	Root              string            `json:"root"`
	ExcludeDirs       []string          `json:"exclude_directories"`
	NoDefaultExcludes bool              `json:"no_default_excludes"`
	UseGitignore      bool              `json:"gitignore"`
	Workers           int               `json:"workers"`
	TopFiles          int               `json:"top_files"`
	SkipGit           bool              `json:"no_git"`
	Outputs           OutputConfig      `json:"outputs"`
	DBPath            string            `json:"db"`
	Exec              string            `json:"exec"`
	Meilisearch       MeilisearchConfig `json:"meilisearch"`
	Redis             RedisConfig       `json:"redis"`
}

// OutputConfig lists the report files to write after each analysis.
type OutputConfig struct {
	Text string `json:"text"`
	JSON string `json:"json"`
	CSV  string `json:"csv"`
	YAML string `json:"yaml"`
	XLSX string `json:"xlsx"`
}

// OutputFile pairs a destination path with its format.
type OutputFile struct {
	Path   string
	Format ExportFormat
}

// Files returns the configured outputs in a stable order.
func (o OutputConfig) Files() []OutputFile {
	var files []OutputFile
	add := func(path string, format ExportFormat) {
		if strings.TrimSpace(path) != "" {
			files = append(files, OutputFile{Path: path, Format: format})
		}
	}
	add(o.Text, FormatText)
	add(o.JSON, FormatJSON)
	add(o.CSV, FormatCSV)
	add(o.YAML, FormatYAML)
	add(o.XLSX, FormatXLSX)
	return files
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Root:     ".",
		TopFiles: defaultTopFiles,
	}
}

const envPrefix = "TREESTAT_"

// LoadEnv loads envFile into the process environment when it exists and
// applies TREESTAT_* variables to cfg.
func LoadEnv(envFile string, cfg *Config) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, name, err)
		}
		*dst = n
		return nil
	}
	flag := func(name string, dst *bool) error {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("ROOT", &cfg.Root)
	if v, ok := lookup(envPrefix + "EXCLUDE"); ok {
		cfg.ExcludeDirs = append(cfg.ExcludeDirs, SplitList(v)...)
	}
	str("DB", &cfg.DBPath)
	str("EXEC", &cfg.Exec)
	str("MEILI_HOST", &cfg.Meilisearch.Host)
	str("MEILI_API_KEY", &cfg.Meilisearch.APIKey)
	str("MEILI_INDEX", &cfg.Meilisearch.Index)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("REDIS_KEY", &cfg.Redis.Key)

	if err := num("WORKERS", &cfg.Workers); err != nil {
		return err
	}
	if err := num("TOP", &cfg.TopFiles); err != nil {
		return err
	}
	if err := num("REDIS_DB", &cfg.Redis.DB); err != nil {
		return err
	}
	if err := flag("GITIGNORE", &cfg.UseGitignore); err != nil {
		return err
	}
	return flag("NO_GIT", &cfg.SkipGit)
}

// LoadConfigFile overlays the JSON settings in path onto cfg.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks settings that cannot be corrected silently.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return errors.New("root must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative: %d", c.Workers)
	}
	if c.TopFiles < 0 {
		return fmt.Errorf("top files cannot be negative: %d", c.TopFiles)
	}
	return nil
}

// Options converts the configuration into analyzer options. Output files and
// the archive database are excluded from counting.
func (c Config) Options() Options {
	var skip []string
	for _, out := range c.Outputs.Files() {
		skip = append(skip, absOrSelf(out.Path))
	}
	if c.DBPath != "" {
		db := absOrSelf(c.DBPath)
		skip = append(skip, db, db+"-journal", db+"-wal", db+"-shm")
	}

	return Options{
		ExcludeDirs:       append([]string(nil), c.ExcludeDirs...),
		NoDefaultExcludes: c.NoDefaultExcludes,
		UseGitignore:      c.UseGitignore,
		SkipPaths:         skip,
		Workers:           c.Workers,
		SkipGit:           c.SkipGit,
	}
}

// RenderOptions returns the text rendering settings.
func (c Config) RenderOptions() RenderOptions {
	return RenderOptions{TopFiles: c.TopFiles}
}

// SplitList parses a comma separated list, dropping blank entries.
func SplitList(raw string) []string {
	var result []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			result = append(result, item)
		}
	}
	return result
}

func absOrSelf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
