package treestat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeilisearchTargetDisabled(t *testing.T) {
	target, err := NewMeilisearchTarget(context.Background(), MeilisearchConfig{Host: "http://localhost:7700"}, nil)
	require.NoError(t, err)
	assert.Nil(t, target, "no index configured")
}

func TestMakeMeiliDocuments(t *testing.T) {
	report := sampleReport("/work/proj", "run-1", time.Now())
	docs := makeMeiliDocuments(report)
	require.Len(t, docs, 3)

	seen := make(map[string]bool)
	for _, doc := range docs {
		assert.Len(t, doc.ID, 32, "md5 hex id")
		assert.False(t, seen[doc.ID], "duplicate document id %q", doc.ID)
		seen[doc.ID] = true
		assert.Equal(t, "run-1", doc.RunID)
		assert.Equal(t, "/work/proj", doc.Root)
	}

	assert.NotEqual(t, fileDocumentID("/a", "x.go"), fileDocumentID("/b", "x.go"), "ids differ across roots")
}

func TestWaitForTaskPollsFirstTask(t *testing.T) {
	var mu sync.Mutex
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"uid":0,"status":"succeeded","type":"indexCreation"}`)
	}))
	defer server.Close()

	target := &meilisearchTarget{client: meilisearch.NewClient(meilisearch.ClientConfig{Host: server.URL})}

	require.NoError(t, target.waitForTask(context.Background(), &meilisearch.TaskInfo{TaskUID: 0}))
	require.NoError(t, target.waitForTask(context.Background(), nil))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/tasks/0"}, requested, "task 0 is awaited, a missing task is not")
}
