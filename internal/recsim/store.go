package recsim

import (
	"sync"
)

// store keeps the simulated descriptor sets in memory.
type store struct {
	mu       sync.RWMutex
	subjects map[string]*record
}

type record struct {
	name        string
	descriptors [][]byte
}

func newStore(seed []Subject) *store {
	s := &store{subjects: make(map[string]*record)}
	for _, sub := range seed {
		// Seeded subjects get one placeholder descriptor so identify
		// has something to match against.
		s.subjects[sub.ID] = &record{name: sub.Name, descriptors: [][]byte{nil}}
	}
	return s
}

// add appends descriptors for a subject, creating it on first enroll.
func (s *store) add(subjectID, name string, count int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.subjects[subjectID]
	if !ok {
		rec = &record{name: name}
		s.subjects[subjectID] = rec
	}
	for i := 0; i < count; i++ {
		rec.descriptors = append(rec.descriptors, nil)
	}
	return len(rec.descriptors)
}

// pick returns a random enrolled subject, or ok=false when none exist.
func (s *store) pick(n int) (Subject, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.subjects) == 0 {
		return Subject{}, 0, false
	}
	i := n % len(s.subjects)
	for id, rec := range s.subjects {
		if i == 0 {
			return Subject{ID: id, Name: rec.name}, len(rec.descriptors), true
		}
		i--
	}
	return Subject{}, 0, false
}

func (s *store) count(subjectID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.subjects[subjectID]
	if !ok {
		return 0, false
	}
	return len(rec.descriptors), true
}

// remove deletes one descriptor by index.
func (s *store) remove(subjectID string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.subjects[subjectID]
	if !ok || index < 0 || index >= len(rec.descriptors) {
		return false
	}
	rec.descriptors = append(rec.descriptors[:index], rec.descriptors[index+1:]...)
	return true
}

// clear drops every descriptor for a subject.
func (s *store) clear(subjectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subjects[subjectID]; !ok {
		return false
	}
	delete(s.subjects, subjectID)
	return true
}
