// Package kb is the durable store of categorized question/answer entries:
// JSON persistence with seeding, category listing, and a full-text browse
// index over the stored pairs.
package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// Store holds the knowledge base document and keeps it persisted at path.
// Reads are safe for concurrent use; mutations are serialized internally.
type Store struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	data  models.KnowledgeBase
	index *SearchIndex
}

// Open loads the knowledge base at path. A missing file seeds the built-in
// default content and persists it; an unreadable or corrupt file falls back
// to the default content without touching the file. Open never fails on
// persistence problems, only on index construction.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, logger: logger}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.data = DefaultKnowledgeBase()
		logger.Info("knowledge base not found, seeding defaults", zap.String("path", path))
		if err := s.persist(); err != nil {
			logger.Error("failed to persist seeded knowledge base", zap.String("path", path), zap.Error(err))
		}
	case err != nil:
		logger.Warn("knowledge base unreadable, using defaults", zap.String("path", path), zap.Error(err))
		s.data = DefaultKnowledgeBase()
	default:
		var kb models.KnowledgeBase
		if err := json.Unmarshal(data, &kb); err != nil {
			logger.Warn("knowledge base corrupt, using defaults", zap.String("path", path), zap.Error(err))
			s.data = DefaultKnowledgeBase()
		} else {
			s.data = kb
		}
	}

	index, err := NewSearchIndex()
	if err != nil {
		return nil, fmt.Errorf("create browse index: %w", err)
	}
	s.index = index
	if err := s.index.Rebuild(s.data); err != nil {
		return nil, fmt.Errorf("build browse index: %w", err)
	}
	return s, nil
}

// Add appends a validated QA pair to its category, creating the category at
// the end of the list when new, and persists the whole store. A persistence
// failure is logged and the in-memory mutation stands; the current process
// keeps serving the new pair.
func (s *Store) Add(in models.QAPairInput) models.QAPair {
	pair := models.QAPair{Question: in.Question, Answer: in.Answer, Keywords: in.Keywords}

	s.mu.Lock()
	defer s.mu.Unlock()
	placed := false
	for i := range s.data.Categories {
		if s.data.Categories[i].Name == in.Category {
			s.data.Categories[i].QAPairs = append(s.data.Categories[i].QAPairs, pair)
			placed = true
			break
		}
	}
	if !placed {
		s.data.Categories = append(s.data.Categories, models.Category{
			Name:    in.Category,
			QAPairs: []models.QAPair{pair},
		})
	}

	if err := s.persist(); err != nil {
		s.logger.Error("failed to persist knowledge base, in-memory state is authoritative until restart",
			zap.String("path", s.path), zap.Error(err))
	}
	if err := s.index.Rebuild(s.data); err != nil {
		s.logger.Error("failed to rebuild browse index", zap.Error(err))
	}
	return pair
}

// Categories returns the category names in insertion order.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.data.Categories))
	for i, c := range s.data.Categories {
		names[i] = c.Name
	}
	return names
}

// PairsIn returns a copy of the QA pairs in category, or an empty slice when
// the category does not exist.
func (s *Store) PairsIn(category string) []models.QAPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.data.Categories {
		if c.Name == category {
			return append([]models.QAPair(nil), c.QAPairs...)
		}
	}
	return []models.QAPair{}
}

// Snapshot returns a deep copy of the whole knowledge base document.
func (s *Store) Snapshot() models.KnowledgeBase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := models.KnowledgeBase{Categories: make([]models.Category, len(s.data.Categories))}
	for i, c := range s.data.Categories {
		out.Categories[i] = models.Category{
			Name:    c.Name,
			QAPairs: append([]models.QAPair(nil), c.QAPairs...),
		}
	}
	return out
}

// Counts returns the number of categories and the total number of QA pairs.
func (s *Store) Counts() (categories, pairs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	categories = len(s.data.Categories)
	for _, c := range s.data.Categories {
		pairs += len(c.QAPairs)
	}
	return categories, pairs
}

// Search runs a full-text query over the browse index.
func (s *Store) Search(query string, limit int) ([]SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Search(query, limit)
}

// Close releases the browse index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}

// persist writes the knowledge base as JSON, atomically: temp file in the
// same directory, then rename over the target. Callers hold s.mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal knowledge base: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create knowledge base dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".kb-*")
	if err != nil {
		return fmt.Errorf("create temp knowledge base file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write knowledge base: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp knowledge base file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace knowledge base file: %w", err)
	}
	return nil
}
