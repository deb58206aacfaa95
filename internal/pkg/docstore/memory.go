package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory. It backs development
// setups without DATABASE_URL and the test suites.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]map[string]Document
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]map[string]Document),
		clock: time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.docs[collection]))
	for _, doc := range s.docs[collection] {
		docs = append(docs, *cloneDoc(doc))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *MemoryStore) Batch() *Batch {
	return NewBatch(s.commit)
}

type docKey struct{ collection, id string }

func (s *MemoryStore) commit(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()

	// nil means deleted within this batch
	staged := make(map[docKey]*Document)
	order := make([]docKey, 0, len(ops))

	lookup := func(k docKey) (*Document, bool) {
		if doc, ok := staged[k]; ok {
			return doc, doc != nil
		}
		doc, ok := s.docs[k.collection][k.id]
		if !ok {
			return nil, false
		}
		return &doc, true
	}

	for _, op := range ops {
		k := docKey{op.Collection, op.ID}
		if _, seen := staged[k]; !seen {
			order = append(order, k)
		}
		existing, exists := lookup(k)

		switch op.Kind {
		case OpSet, OpUpdate:
			if op.Kind == OpUpdate && !exists {
				return fmt.Errorf("%w: %s/%s", ErrNotFound, op.Collection, op.ID)
			}
			doc := &Document{
				Collection: op.Collection,
				ID:         op.ID,
				Data:       append([]byte(nil), op.Data...),
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if exists {
				doc.CreatedAt = existing.CreatedAt
			}
			staged[k] = doc
		case OpDelete:
			staged[k] = nil
		default:
			return fmt.Errorf("unknown op %d", op.Kind)
		}
	}

	for _, k := range order {
		doc := staged[k]
		if doc == nil {
			delete(s.docs[k.collection], k.id)
			continue
		}
		if s.docs[k.collection] == nil {
			s.docs[k.collection] = make(map[string]Document)
		}
		s.docs[k.collection][k.id] = *doc
	}
	return nil
}

func cloneDoc(doc Document) *Document {
	doc.Data = append([]byte(nil), doc.Data...)
	return &doc
}
