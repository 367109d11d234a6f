package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"taxinference/internal/session"
)

const writtenCacheSize = 1024

// Service renders workflow artifacts to markdown and persists them.
// Repeated exports of unchanged content skip the store write: a
// bounded cache remembers content digests already persisted.
type Service struct {
	store   ArtifactStore
	written *lru.Cache[string, bool]
}

func NewService(store ArtifactStore) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	written, err := lru.New[string, bool](writtenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init written cache: %w", err)
	}
	return &Service{store: store, written: written}, nil
}

func (s *Service) put(ctx context.Context, sessionID, path string, content []byte) error {
	sum := sha256.Sum256(content)
	key := sessionID + "/" + path + "#" + hex.EncodeToString(sum[:])
	if _, ok := s.written.Get(key); ok {
		return nil
	}
	if err := s.store.Put(ctx, sessionID, path, content); err != nil {
		return err
	}
	s.written.Add(key, true)
	return nil
}

// ExportKeyFacts writes the key facts summary for a session.
func (s *Service) ExportKeyFacts(ctx context.Context, sessionID string, categories []session.KeyFactCategory) error {
	if s == nil {
		return fmt.Errorf("service is nil")
	}
	if len(categories) == 0 {
		return fmt.Errorf("no key facts to export")
	}
	return s.put(ctx, sessionID, KeyFactsFilename, []byte(RenderKeyFacts(categories)))
}

// ExportSituations writes the situations list for a session.
func (s *Service) ExportSituations(ctx context.Context, sessionID string, situations []session.TaxSituation) error {
	if s == nil {
		return fmt.Errorf("service is nil")
	}
	if len(situations) == 0 {
		return fmt.Errorf("no tax situations to export")
	}
	return s.put(ctx, sessionID, SituationsFilename, []byte(RenderSituations(situations)))
}

// ExportAnalysis writes one research analysis for a session.
func (s *Service) ExportAnalysis(ctx context.Context, sessionID string, analysis session.ResearchAnalysis) error {
	if s == nil {
		return fmt.Errorf("service is nil")
	}
	return s.put(ctx, sessionID, AnalysisFilename(analysis.SituationTitle), []byte(RenderAnalysis(analysis)))
}

// ExportDocument writes one generated document for a session.
func (s *Service) ExportDocument(ctx context.Context, sessionID string, doc session.GeneratedDocument) error {
	if s == nil {
		return fmt.Errorf("service is nil")
	}
	return s.put(ctx, sessionID, DocumentFilename(doc), []byte(doc.Content+"\n"))
}
