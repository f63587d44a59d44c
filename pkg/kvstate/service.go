package kvstate

import (
	"duralog/pkg/store"
)

// NewBuilder returns a store builder with the KV data type and its mutation
// types already registered. Callers adjust durability options and Open it.
func NewBuilder() *store.Builder[*KV] {
	return store.New(NewKV).
		Register(Set{}).
		Register(Delete{})
}

// Service adapts a durable store holding a KV to plain key-value calls.
type Service struct {
	store *store.Store[*KV]
}

func NewService(st *store.Store[*KV]) *Service {
	return &Service{store: st}
}

func (s *Service) Get(key string) (string, bool) {
	return s.store.Get().Get(key)
}

func (s *Service) Set(key, value string) error {
	_, err := s.store.Mutate(Set{Key: key, Value: value})
	return err
}

// Delete reports whether the key existed.
func (s *Service) Delete(key string) (bool, error) {
	res, err := s.store.Mutate(Delete{Key: key})
	if err != nil {
		return false, err
	}
	existed, _ := res.(bool)
	return existed, nil
}

func (s *Service) Len() int {
	return s.store.Get().Len()
}

func (s *Service) Compact() error {
	return s.store.Compact()
}

func (s *Service) JournalFileLength() int {
	return s.store.JournalFileLength()
}

func (s *Service) Close() error {
	return s.store.Close()
}
