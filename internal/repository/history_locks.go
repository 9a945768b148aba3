package repository

import (
	"sync"

	"FarePull/internal/domain/models"
)

// streamLocks hands out one RWMutex per stream so unrelated streams never contend.
type streamLocks struct {
	mu    sync.Mutex
	locks map[models.Stream]*sync.RWMutex
}

func newStreamLocks() *streamLocks {
	return &streamLocks{locks: make(map[models.Stream]*sync.RWMutex)}
}

func (s *streamLocks) get(stream models.Stream) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[stream]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[stream] = l
	}
	return l
}
