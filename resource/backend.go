package resource

import (
	"sync"
)

// slots is the handle storage behind Table. Freed handles are reused.
type slots struct {
	entries  []entry
	freeList []Handle
	order    []Handle
	mu       sync.RWMutex
}

type entry struct {
	value Dropper
	kind  Kind
	valid bool
}

func newSlots() *slots {
	return &slots{
		entries:  make([]entry, 0, 8),
		freeList: make([]Handle, 0, 4),
	}
}

func (s *slots) create(kind Kind, value Dropper) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{kind: kind, value: value, valid: true}

	var handle Handle
	if len(s.freeList) > 0 {
		handle = s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.entries[handle-1] = e
	} else {
		s.entries = append(s.entries, e)
		handle = Handle(len(s.entries))
	}
	s.order = append(s.order, handle)
	return handle
}

func (s *slots) get(handle Handle) (entry, bool) {
	if handle == 0 {
		return entry{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := int(handle) - 1
	if idx >= len(s.entries) || !s.entries[idx].valid {
		return entry{}, false
	}
	return s.entries[idx], true
}

// take invalidates handle and returns its entry.
func (s *slots) take(handle Handle) (entry, bool) {
	if handle == 0 {
		return entry{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := int(handle) - 1
	if idx >= len(s.entries) || !s.entries[idx].valid {
		return entry{}, false
	}
	e := s.entries[idx]
	s.entries[idx] = entry{}
	s.freeList = append(s.freeList, handle)
	for i, h := range s.order {
		if h == handle {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return e, true
}

// newestFirst returns live handles, most recently created first.
func (s *slots) newestFirst() []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Handle, len(s.order))
	for i, h := range s.order {
		out[len(s.order)-1-i] = h
	}
	return out
}

func (s *slots) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
