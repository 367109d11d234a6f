package export

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxinference/internal/session"
)

// countingStore wraps MemoryStore and counts writes.
type countingStore struct {
	*MemoryStore
	mu   sync.Mutex
	puts int
}

func (c *countingStore) Put(ctx context.Context, sessionID, path string, content []byte) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.MemoryStore.Put(ctx, sessionID, path, content)
}

func (c *countingStore) putCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts
}

func TestExportDocumentWritesOncePerContent(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	svc, err := NewService(store)
	require.NoError(t, err)
	ctx := context.Background()
	doc := session.GeneratedDocument{Kind: session.DocumentMemo, Title: "Tax Memo: Topic A", Content: "body"}

	require.NoError(t, svc.ExportDocument(ctx, "s-1", doc))
	require.NoError(t, svc.ExportDocument(ctx, "s-1", doc))
	assert.Equal(t, 1, store.putCount(), "identical content must not be re-written")

	doc.Content = "revised body"
	require.NoError(t, svc.ExportDocument(ctx, "s-1", doc))
	assert.Equal(t, 2, store.putCount(), "changed content must be written")

	got, err := store.Get(ctx, "s-1", "tax-memo-topic-a.md")
	require.NoError(t, err)
	assert.Equal(t, "revised body\n", string(got))
}

func TestExportIsSessionScoped(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	svc, err := NewService(store)
	require.NoError(t, err)
	ctx := context.Background()
	doc := session.GeneratedDocument{Kind: session.DocumentMemo, Title: "Tax Memo: Topic A", Content: "body"}

	require.NoError(t, svc.ExportDocument(ctx, "s-1", doc))
	require.NoError(t, svc.ExportDocument(ctx, "s-2", doc))
	assert.Equal(t, 2, store.putCount(), "same content in another session is a distinct artifact")
}

func TestExportKeyFactsAndSituations(t *testing.T) {
	store := NewMemoryStore()
	svc, err := NewService(store)
	require.NoError(t, err)
	ctx := context.Background()

	require.Error(t, svc.ExportKeyFacts(ctx, "s-1", nil), "nothing to export must fail")

	facts := []session.KeyFactCategory{{Category: "Income", Facts: []session.KeyFact{{Label: "W-2", Value: "120k"}}}}
	require.NoError(t, svc.ExportKeyFacts(ctx, "s-1", facts))
	require.NoError(t, svc.ExportSituations(ctx, "s-1", []session.TaxSituation{{ID: "t", Title: "T", Description: "d"}}))

	paths, err := store.List(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{KeyFactsFilename, SituationsFilename}, paths)
}

func TestDirStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.Error(t, store.Put(ctx, "s-1", "../outside.md", []byte("x")))
	require.NoError(t, store.Put(ctx, "s-1", "key-facts.md", []byte("x")))

	got, err := store.Get(ctx, "s-1", "key-facts.md")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))

	paths, err := store.List(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"key-facts.md"}, paths)

	_, err = store.Get(ctx, "s-1", "missing.md")
	assert.ErrorIs(t, err, ErrNotFound)
}
