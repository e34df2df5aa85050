// Package contextstore indexes chunks and summaries in an embedded vector
// database so verification questions can be answered against the passages
// most relevant to them rather than the whole document.
package contextstore

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/guiperry/llmcore/types"
)

const defaultCollection = "chunks"

// Result is one scored passage returned by a search.
type Result struct {
	ID         string
	Text       string
	Similarity float32
	Metadata   map[string]string
}

// Store wraps a chromem-go collection of chunk and summary documents.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
	logger     *log.Logger
}

type storeConfig struct {
	persistPath string
	collection  string
	ef          chromem.EmbeddingFunc
	logger      *log.Logger
}

// StoreOption customizes a Store.
type StoreOption func(*storeConfig)

// WithPersistPath stores the index on disk instead of in memory.
func WithPersistPath(path string) StoreOption {
	return func(c *storeConfig) { c.persistPath = path }
}

// WithCollection names the collection. Default "chunks".
func WithCollection(name string) StoreOption {
	return func(c *storeConfig) { c.collection = name }
}

// WithEmbeddingFunc sets the embedding function documents and queries are
// vectorized with.
func WithEmbeddingFunc(ef chromem.EmbeddingFunc) StoreOption {
	return func(c *storeConfig) { c.ef = ef }
}

// WithLogger routes store activity to the given logger.
func WithLogger(logger *log.Logger) StoreOption {
	return func(c *storeConfig) { c.logger = logger }
}

// NewStore opens an in-memory store, or a persistent one when a path is
// configured.
func NewStore(opts ...StoreOption) (*Store, error) {
	cfg := storeConfig{collection: defaultCollection}
	for _, opt := range opts {
		opt(&cfg)
	}

	var db *chromem.DB
	if cfg.persistPath != "" {
		persistent, err := chromem.NewPersistentDB(cfg.persistPath, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent store at %s: %w", cfg.persistPath, err)
		}
		db = persistent
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(cfg.collection, nil, cfg.ef)
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", cfg.collection, err)
	}

	return &Store{db: db, collection: collection, logger: cfg.logger}, nil
}

// AddChunks indexes the chunks of one document. Chunk identity is derived
// from the document id and the chunk index, so re-adding a document
// overwrites its previous chunks.
func (s *Store) AddChunks(ctx context.Context, docID string, chunks []types.Chunk) error {
	if docID == "" {
		return types.NewConfigurationError("contextstore.AddChunks", "document id is required")
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s-%d", docID, chunk.Index),
			Content: chunk.Text,
			Metadata: map[string]string{
				"doc":    docID,
				"kind":   "chunk",
				"model":  chunk.ModelID,
				"index":  strconv.Itoa(chunk.Index),
				"start":  strconv.Itoa(chunk.Start),
				"tokens": strconv.Itoa(chunk.Tokens),
			},
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("index %d chunks for %s: %w", len(docs), docID, err)
	}
	if s.logger != nil {
		s.logger.Printf("context store: indexed %d chunks for %s", len(docs), docID)
	}
	return nil
}

// AddSummary indexes one summary under its provenance id.
func (s *Store) AddSummary(ctx context.Context, summary types.Summary) error {
	if summary.Text == "" {
		return types.NewConfigurationError("contextstore.AddSummary", "summary text is required")
	}

	doc := chromem.Document{
		ID:      summary.ID.String(),
		Content: summary.Text,
		Metadata: map[string]string{
			"kind":   "summary",
			"model":  summary.ModelID,
			"pass":   strconv.Itoa(summary.Pass),
			"tokens": strconv.Itoa(summary.Tokens),
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("index summary %s: %w", summary.ID, err)
	}
	return nil
}

// Search returns the limit most similar passages to query, best first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		return nil, types.NewConfigurationError("contextstore.Search", "limit must be positive, got %d", limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	hits, err := s.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			ID:         hit.ID,
			Text:       hit.Content,
			Similarity: hit.Similarity,
			Metadata:   hit.Metadata,
		}
	}
	return results, nil
}

// Retrieve returns the text of the limit most similar passages. It
// satisfies the retriever the verification pipeline consumes.
func (s *Store) Retrieve(ctx context.Context, query string, limit int) ([]string, error) {
	results, err := s.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts, nil
}

// Count reports how many passages the store holds.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Count()
}
