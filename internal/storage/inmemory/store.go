package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/UkralStul/barfinder-service/internal/storage"
	"github.com/google/uuid"
)

// Store реализует интерфейс DocumentStore в памяти.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]storage.Document
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	s := &Store{
		collections: make(map[string]map[string]storage.Document),
	}
	for _, c := range storage.Collections {
		s.collections[c] = make(map[string]storage.Document)
	}
	return s
}

// collection возвращает коллекцию, создавая ее при первой записи.
// Вызывать под s.mu.Lock.
func (s *Store) collection(name string) map[string]storage.Document {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]storage.Document)
		s.collections[name] = c
	}
	return c
}

// === Read Methods ===

func (s *Store) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return storage.WithID(doc, id), nil
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]storage.Document, error) {
	return s.filter(ctx, collection, func(storage.Document) bool { return true })
}

func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]storage.Document, error) {
	return s.filter(ctx, collection, func(d storage.Document) bool {
		return storage.Matches(d[field], value)
	})
}

// filter - общая выборка; результат отсортирован по id, чтобы порядок
// не зависел от обхода map.
func (s *Store) filter(ctx context.Context, collection string, keep func(storage.Document) bool) ([]storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id, d := range docs {
		if keep(d) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]storage.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, storage.WithID(docs[id], id))
	}
	return out, nil
}

// === Write Methods ===

func (s *Store) Add(ctx context.Context, collection string, doc storage.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.collection(collection)[id] = stripID(doc)
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc storage.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collection(collection)[id] = stripID(doc)
	return nil
}

func (s *Store) Create(ctx context.Context, collection, id string, doc storage.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, exists := c[id]; exists {
		return storage.ErrAlreadyExists
	}
	c[id] = stripID(doc)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	doc, ok := c[id]
	if !ok {
		return storage.ErrNotFound
	}
	// Копия, чтобы ранее выданные читателям документы не менялись.
	updated := doc.Clone()
	updated[field] = value
	c[id] = updated
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, ok := c[id]; !ok {
		return storage.ErrNotFound
	}
	delete(c, id)
	return nil
}

func (s *Store) DeleteIf(ctx context.Context, collection, id, field string, expected any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	doc, ok := c[id]
	if !ok {
		return storage.ErrNotFound
	}
	if !storage.Matches(doc[field], expected) {
		return storage.ErrConflict
	}
	delete(c, id)
	return nil
}

// stripID убирает поле id: идентификатор хранится ключом коллекции.
func stripID(doc storage.Document) storage.Document {
	out := doc.Clone()
	if out == nil {
		return storage.Document{}
	}
	delete(out, storage.IDField)
	return out
}
