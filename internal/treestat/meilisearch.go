package treestat

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"
)

// MeilisearchConfig captures connection settings for optional search publishing.
type MeilisearchConfig struct {
	Host   string `json:"host"`
	APIKey string `json:"api_key"`
	Index  string `json:"index"`
}

type meilisearchTarget struct {
	client *meilisearch.Client
	index  *meilisearch.Index
	logger *slog.Logger
}

// NewMeilisearchTarget connects to Meilisearch and prepares the index. It
// returns a nil target when no index is configured.
func NewMeilisearchTarget(ctx context.Context, cfg MeilisearchConfig, logger *slog.Logger) (ReportTarget, error) {
	host := strings.TrimSpace(cfg.Host)
	indexName := strings.TrimSpace(cfg.Index)
	if indexName == "" {
		return nil, nil
	}
	if host == "" {
		host = "http://localhost:7700"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: strings.TrimSpace(cfg.APIKey),
	})
	index := client.Index(indexName)

	t := &meilisearchTarget{client: client, index: index, logger: logger}
	if err := t.ensureIndex(ctx, indexName); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *meilisearchTarget) Name() string {
	return "meilisearch"
}

func (t *meilisearchTarget) ensureIndex(ctx context.Context, indexName string) error {
	if _, err := t.client.GetIndex(indexName); err != nil {
		var meiliErr *meilisearch.Error
		if !errors.As(err, &meiliErr) || meiliErr.MeilisearchApiError.Code != "index_not_found" {
			return err
		}
		task, err := t.client.CreateIndex(&meilisearch.IndexConfig{Uid: indexName, PrimaryKey: "id"})
		if err != nil {
			return err
		}
		if err := t.waitForTask(ctx, task); err != nil {
			return err
		}
	}

	settings := []struct {
		desired []string
		get     func() (*[]string, error)
		update  func(*[]string) (*meilisearch.TaskInfo, error)
	}{
		{searchableFields, t.index.GetSearchableAttributes, t.index.UpdateSearchableAttributes},
		{filterableFields, t.index.GetFilterableAttributes, t.index.UpdateFilterableAttributes},
	}
	for _, setting := range settings {
		current, err := setting.get()
		if err != nil {
			return err
		}
		if current != nil && slices.Equal(*current, setting.desired) {
			continue
		}
		desired := slices.Clone(setting.desired)
		task, err := setting.update(&desired)
		if err != nil {
			return err
		}
		if err := t.waitForTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

const meiliPollInterval = 50 * time.Millisecond

var (
	searchableFields = []string{"path", "language", "category"}
	filterableFields = []string{"root", "category", "language"}
)

func (t *meilisearchTarget) waitForTask(ctx context.Context, task *meilisearch.TaskInfo) error {
	if task == nil {
		return nil
	}
	_, err := t.client.WaitForTask(task.TaskUID, meilisearch.WaitParams{Context: ctx, Interval: meiliPollInterval})
	return err
}

// PublishReport replaces the index contents with the files of report.
func (t *meilisearchTarget) PublishReport(ctx context.Context, report *Report) error {
	task, err := t.index.DeleteAllDocuments()
	if err != nil {
		return err
	}
	if err := t.waitForTask(ctx, task); err != nil {
		return err
	}

	if len(report.Files) == 0 {
		return nil
	}
	docs := makeMeiliDocuments(report)
	task, err = t.index.AddDocuments(docs, "id")
	if err != nil {
		return err
	}
	if err := t.waitForTask(ctx, task); err != nil {
		return err
	}
	t.logger.Debug("Published file records to Meilisearch", "documents", len(docs))
	return nil
}

func makeMeiliDocuments(report *Report) []meiliFileDocument {
	docs := make([]meiliFileDocument, 0, len(report.Files))
	for _, rec := range report.Files {
		docs = append(docs, meiliFileDocument{
			ID:       fileDocumentID(report.Root, rec.Path),
			RunID:    report.RunID,
			Root:     report.Root,
			Path:     rec.Path,
			Category: string(rec.Category),
			Language: rec.Language,
			Lines:    rec.Lines,
			Chars:    rec.Chars,
			Tokens:   rec.Tokens,
		})
	}
	return docs
}

// fileDocumentID derives an identifier that only uses characters Meilisearch accepts.
func fileDocumentID(root, path string) string {
	sum := md5.Sum([]byte(root + ":" + path))
	return hex.EncodeToString(sum[:])
}

// meiliFileDocument represents a counted file stored in Meilisearch.
type meiliFileDocument struct {
	ID       string `json:"id"`
	RunID    string `json:"run_id"`
	Root     string `json:"root"`
	Path     string `json:"path"`
	Category string `json:"category"`
	Language string `json:"language"`
	Lines    int    `json:"lines"`
	Chars    int    `json:"chars"`
	Tokens   int    `json:"tokens"`
}
