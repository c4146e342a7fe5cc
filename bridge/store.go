package bridge

import "sync"

// Store is an observable value. Subscribers are called on every Set.
type Store[T any] struct {
	mu    sync.Mutex
	value T
	next  int
	subs  map[int]func(T)
}

func NewStore[T any](initial T) *Store[T] {
	return &Store[T]{value: initial, subs: map[int]func(T){}}
}

func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	subs := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn and returns the function that removes it.
func (s *Store[T]) Subscribe(fn func(T)) (dispose func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
		})
	}
}

// AppError replaces the editor with an error screen offering a retry.
type AppError struct {
	Title       string
	Description string
}

// SessionNotice is the banner shown while a countdown runs.
type SessionNotice struct {
	Extended  bool // the session was renewed and the editor will reload
	Remaining int  // seconds
}
