package kb

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/kotae/internal/models"
)

// SearchHit is one browse result: the stored pair plus its relevance score.
type SearchHit struct {
	Category string  `json:"category"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// indexedPair is the document shape fed to the index.
type indexedPair struct {
	Category string   `json:"category"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}

// SearchIndex is an in-memory full-text index over the knowledge base used
// for browsing, separate from the scoring pipeline. It is rebuilt whole on
// every knowledge base mutation.
type SearchIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	pairs map[string]indexedPair
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex() (*SearchIndex, error) {
	index, err := newMemIndex()
	if err != nil {
		return nil, err
	}
	return &SearchIndex{index: index, pairs: make(map[string]indexedPair)}, nil
}

func newMemIndex() (bleve.Index, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so query terms
	// match stored words exactly; it also splits CJK text per character.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("question", textFieldMapping)
	docMapping.AddFieldMappingsAt("answer", textFieldMapping)
	docMapping.AddFieldMappingsAt("keywords", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", bleve.NewKeywordFieldMapping())
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return index, nil
}

// Rebuild replaces the index contents with the given knowledge base. The old
// index is swapped out only after the new one is fully built, so concurrent
// searches never observe a half-indexed state.
func (si *SearchIndex) Rebuild(data models.KnowledgeBase) error {
	index, err := newMemIndex()
	if err != nil {
		return err
	}
	pairs := make(map[string]indexedPair)
	batch := index.NewBatch()
	for _, c := range data.Categories {
		for _, p := range c.QAPairs {
			id := EntryID(c.Name, p.Question)
			doc := indexedPair{Category: c.Name, Question: p.Question, Answer: p.Answer, Keywords: p.Keywords}
			pairs[id] = doc
			if err := batch.Index(id, doc); err != nil {
				_ = index.Close()
				return fmt.Errorf("index pair: %w", err)
			}
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return fmt.Errorf("apply index batch: %w", err)
	}

	si.mu.Lock()
	old := si.index
	si.index = index
	si.pairs = pairs
	si.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Search runs a match query over question, answer, and keywords and returns
// up to limit hits ordered by relevance.
func (si *SearchIndex) Search(query string, limit int) ([]SearchHit, error) {
	if limit < 1 {
		limit = 10
	}
	si.mu.RLock()
	defer si.mu.RUnlock()

	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := si.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("browse search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		pair, ok := si.pairs[hit.ID]
		if !ok {
			continue
		}
		hits = append(hits, SearchHit{
			Category: pair.Category,
			Question: pair.Question,
			Answer:   pair.Answer,
			Score:    hit.Score,
		})
	}
	return hits, nil
}

// Close releases the underlying index.
func (si *SearchIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	if si.index != nil {
		err := si.index.Close()
		si.index = nil
		return err
	}
	return nil
}
