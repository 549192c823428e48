package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
)

type memoryDoc struct {
	seq     int64
	version int64
	obj     map[string]interface{}
}

// MemoryStore keeps documents in process memory. It backs local development
// and tests; data does not survive a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	seq         int64
	collections map[string]map[string]*memoryDoc
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]*memoryDoc)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Insert(ctx context.Context, collection string, doc interface{}) (string, error) {
	id := NewID()
	if err := s.InsertWithID(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) InsertWithID(ctx context.Context, collection, id string, doc interface{}) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	obj, err := toObject(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collectionLocked(collection)
	if _, exists := docs[id]; exists {
		return ErrDuplicateKey
	}
	s.seq++
	docs[id] = &memoryDoc{seq: s.seq, version: 1, obj: obj}
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, collection, id string, doc interface{}) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	obj, err := toObject(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collectionLocked(collection)
	if existing, ok := docs[id]; ok {
		existing.obj = obj
		existing.version++
		return nil
	}
	s.seq++
	docs[id] = &memoryDoc{seq: s.seq, version: 1, obj: obj}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string, dest interface{}) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	s.mu.RLock()
	doc, ok := s.collections[collection][id]
	var raw []byte
	var err error
	if ok {
		raw, err = doc.encode(id)
	}
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return decodeOne(raw, dest)
}

func (s *MemoryStore) Patch(ctx context.Context, collection, id string, fields Fields) error {
	return s.patch(collection, id, nil, fields)
}

func (s *MemoryStore) PatchIfVersion(ctx context.Context, collection, id string, version int64, fields Fields) error {
	return s.patch(collection, id, &version, fields)
}

func (s *MemoryStore) patch(collection, id string, version *int64, fields Fields) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	patch, err := toObject(sanitize(fields))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	if version != nil && doc.version != *version {
		return ErrVersionConflict
	}
	for k, v := range patch {
		doc.obj[k] = v
	}
	doc.version++
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	if _, ok := docs[id]; !ok {
		return ErrNotFound
	}
	delete(docs, id)
	return nil
}

func (s *MemoryStore) FindBy(ctx context.Context, collection, field string, value interface{}, dest interface{}) error {
	if field == "" {
		return ErrInvalidArgument
	}
	want, err := canonical(value)
	if err != nil {
		return err
	}
	return s.find(collection, dest, func(id string, doc *memoryDoc) bool {
		var got interface{}
		if field == FieldID {
			got = id
		} else {
			v, ok := doc.obj[field]
			if !ok {
				return false
			}
			got = v
		}
		raw, err := canonical(got)
		return err == nil && bytes.Equal(raw, want)
	})
}

func (s *MemoryStore) FindAll(ctx context.Context, collection string, dest interface{}) error {
	return s.find(collection, dest, func(string, *memoryDoc) bool { return true })
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) find(collection string, dest interface{}, match func(string, *memoryDoc) bool) error {
	type hit struct {
		seq int64
		raw []byte
	}

	s.mu.RLock()
	hits := make([]hit, 0, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		if !match(id, doc) {
			continue
		}
		raw, err := doc.encode(id)
		if err != nil {
			s.mu.RUnlock()
			return err
		}
		hits = append(hits, hit{seq: doc.seq, raw: raw})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })
	raws := make([][]byte, len(hits))
	for i, h := range hits {
		raws[i] = h.raw
	}
	return decodeList(raws, dest)
}

func (s *MemoryStore) collectionLocked(name string) map[string]*memoryDoc {
	docs, ok := s.collections[name]
	if !ok {
		docs = make(map[string]*memoryDoc)
		s.collections[name] = docs
	}
	return docs
}

func (d *memoryDoc) encode(id string) ([]byte, error) {
	out := make(map[string]interface{}, len(d.obj)+2)
	for k, v := range d.obj {
		out[k] = v
	}
	out[FieldID] = id
	out[FieldVersion] = d.version
	return json.Marshal(out)
}
