package persona

import (
	"sort"
	"strings"
	"sync"
)

// MemStore is a map-backed Store. It backs tests and makes the bot
// usable without a database during local development.
type MemStore struct {
	mu       sync.Mutex
	personas map[string]*Persona
}

func NewMemStore() *MemStore {
	return &MemStore{personas: make(map[string]*Persona)}
}

func (s *MemStore) Get(name string) (*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personas[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) GetDefault() (*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.defaultLocked()
	if p == nil {
		return nil, ErrNoDefault
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) defaultLocked() *Persona {
	for _, p := range s.personas {
		if p.IsDefault {
			return p
		}
	}
	return nil
}

func (s *MemStore) Insert(name, content, creatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.personas[name]; ok {
		return ErrExists
	}
	s.personas[name] = &Persona{
		Name:      name,
		Content:   content,
		CreatorID: creatorID,
	}
	return nil
}

func (s *MemStore) UpdateContent(name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personas[name]
	if !ok {
		return ErrNotFound
	}
	p.Content = content
	return nil
}

func (s *MemStore) UpdateDefaultContent(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.defaultLocked()
	if p == nil {
		return ErrNoDefault
	}
	p.Content = content
	return nil
}

func (s *MemStore) SetDefault(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personas[name]
	if !ok {
		return ErrNotFound
	}
	if cur := s.defaultLocked(); cur != nil {
		cur.IsDefault = false
	}
	p.IsDefault = true
	return nil
}

func (s *MemStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personas[name]
	if !ok {
		return ErrNotFound
	}
	if p.IsDefault {
		return ErrIsDefault
	}
	delete(s.personas, name)
	return nil
}

func (s *MemStore) List(search string) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summaries []Summary
	for _, p := range s.personas {
		if search != "" && !strings.Contains(p.Name, search) {
			continue
		}
		summaries = append(summaries, Summary{
			Name:      p.Name,
			IsDefault: p.IsDefault,
			CreatorID: p.CreatorID,
		})
	}

	// Default first, then lexicographic.
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].IsDefault != summaries[j].IsDefault {
			return summaries[i].IsDefault
		}
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

func (s *MemStore) SetSnapshot(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.defaultLocked()
	if p == nil {
		return ErrNoDefault
	}
	snap := content
	p.Snapshot = &snap
	return nil
}

func (s *MemStore) Snapshot() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.defaultLocked()
	if p == nil {
		return "", false, ErrNoDefault
	}
	if p.Snapshot == nil {
		return "", false, nil
	}
	return *p.Snapshot, true, nil
}

func (s *MemStore) ClearSnapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.defaultLocked()
	if p == nil {
		return ErrNoDefault
	}
	p.Snapshot = nil
	return nil
}
