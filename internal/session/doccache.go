package session

// CachedDocuments holds the memoized artifacts for one situation.
type CachedDocuments struct {
	Memo   *GeneratedDocument `json:"memo,omitempty"`
	Letter *GeneratedDocument `json:"letter,omitempty"`
}

// DocumentCache memoizes generated documents by situation id so repeat
// export requests short-circuit regeneration. Its lifecycle is independent
// of the analyses index: an entry lives until its topic is re-researched or
// a facts update invalidates all derived state.
//
// Not internally locked; the owning Session serializes access.
type DocumentCache struct {
	entries map[string]CachedDocuments
}

// NewDocumentCache returns an empty cache.
func NewDocumentCache() *DocumentCache {
	return &DocumentCache{entries: make(map[string]CachedDocuments)}
}

// Get returns the cached document for (situationID, kind), if present.
func (c *DocumentCache) Get(situationID string, kind DocumentKind) (GeneratedDocument, bool) {
	entry, ok := c.entries[situationID]
	if !ok {
		return GeneratedDocument{}, false
	}
	var doc *GeneratedDocument
	switch kind {
	case DocumentMemo:
		doc = entry.Memo
	case DocumentLetter:
		doc = entry.Letter
	}
	if doc == nil {
		return GeneratedDocument{}, false
	}
	return *doc, true
}

// Put stores a document under (situationID, kind), keeping the sibling
// slot intact.
func (c *DocumentCache) Put(situationID string, doc GeneratedDocument) {
	entry := c.entries[situationID]
	stored := doc
	switch doc.Kind {
	case DocumentLetter:
		entry.Letter = &stored
	default:
		entry.Memo = &stored
	}
	c.entries[situationID] = entry
}

// Evict drops both cached documents for the situation.
func (c *DocumentCache) Evict(situationID string) {
	delete(c.entries, situationID)
}

// Clear drops every entry.
func (c *DocumentCache) Clear() {
	c.entries = make(map[string]CachedDocuments)
}

// Snapshot returns a deep copy of all entries keyed by situation id.
func (c *DocumentCache) Snapshot() map[string]CachedDocuments {
	out := make(map[string]CachedDocuments, len(c.entries))
	for id, entry := range c.entries {
		copied := CachedDocuments{}
		if entry.Memo != nil {
			memo := *entry.Memo
			copied.Memo = &memo
		}
		if entry.Letter != nil {
			letter := *entry.Letter
			copied.Letter = &letter
		}
		out[id] = copied
	}
	return out
}

// Replace swaps all entries, used by snapshot load only.
func (c *DocumentCache) Replace(entries map[string]CachedDocuments) {
	c.entries = make(map[string]CachedDocuments, len(entries))
	for id, entry := range entries {
		copied := CachedDocuments{}
		if entry.Memo != nil {
			memo := *entry.Memo
			copied.Memo = &memo
		}
		if entry.Letter != nil {
			letter := *entry.Letter
			copied.Letter = &letter
		}
		c.entries[id] = copied
	}
}
