package docstore

import (
	"context"
	"time"
)

// Observer receives per-operation latencies, labelled "<collection>.<op>".
type Observer interface {
	ObserveDBQuery(label string, duration time.Duration)
}

type instrumented struct {
	next     Store
	observer Observer
}

// Instrument wraps next so every call reports its latency to observer.
func Instrument(next Store, observer Observer) Store {
	if observer == nil {
		return next
	}
	return &instrumented{next: next, observer: observer}
}

func (s *instrumented) observe(collection, op string, start time.Time) {
	s.observer.ObserveDBQuery(collection+"."+op, time.Since(start))
}

func (s *instrumented) Insert(ctx context.Context, collection string, doc interface{}) (string, error) {
	defer s.observe(collection, "insert", time.Now())
	return s.next.Insert(ctx, collection, doc)
}

func (s *instrumented) InsertWithID(ctx context.Context, collection, id string, doc interface{}) error {
	defer s.observe(collection, "insert", time.Now())
	return s.next.InsertWithID(ctx, collection, id, doc)
}

func (s *instrumented) Upsert(ctx context.Context, collection, id string, doc interface{}) error {
	defer s.observe(collection, "upsert", time.Now())
	return s.next.Upsert(ctx, collection, id, doc)
}

func (s *instrumented) Get(ctx context.Context, collection, id string, dest interface{}) error {
	defer s.observe(collection, "get", time.Now())
	return s.next.Get(ctx, collection, id, dest)
}

func (s *instrumented) Patch(ctx context.Context, collection, id string, fields Fields) error {
	defer s.observe(collection, "patch", time.Now())
	return s.next.Patch(ctx, collection, id, fields)
}

func (s *instrumented) PatchIfVersion(ctx context.Context, collection, id string, version int64, fields Fields) error {
	defer s.observe(collection, "patch", time.Now())
	return s.next.PatchIfVersion(ctx, collection, id, version, fields)
}

func (s *instrumented) Delete(ctx context.Context, collection, id string) error {
	defer s.observe(collection, "delete", time.Now())
	return s.next.Delete(ctx, collection, id)
}

func (s *instrumented) FindBy(ctx context.Context, collection, field string, value interface{}, dest interface{}) error {
	defer s.observe(collection, "find_by_"+field, time.Now())
	return s.next.FindBy(ctx, collection, field, value, dest)
}

func (s *instrumented) FindAll(ctx context.Context, collection string, dest interface{}) error {
	defer s.observe(collection, "find_all", time.Now())
	return s.next.FindAll(ctx, collection, dest)
}

func (s *instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
