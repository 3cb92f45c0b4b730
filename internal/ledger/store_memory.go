package ledger

import (
	"sort"
	"sync"
)

// MemoryStore implements Store with in-memory maps for unit tests. Error
// injection is supported for testing persistence failure paths.
type MemoryStore struct {
	mu sync.Mutex

	scenes     map[int]Scene
	characters map[string]Character

	saves int

	// Error injection. Set these to trigger failures from specific
	// operations.
	UpsertSceneErr     error
	UpsertCharacterErr error
	SaveErr            error
	LoadErr            error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenes:     make(map[int]Scene),
		characters: make(map[string]Character),
	}
}

func (m *MemoryStore) LoadScenes() ([]Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make([]Scene, 0, len(m.scenes))
	for _, s := range m.scenes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) LoadCharacters() ([]Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make([]Character, 0, len(m.characters))
	for _, c := range m.characters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpsertScene(s Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertSceneErr != nil {
		return m.UpsertSceneErr
	}
	m.scenes[s.ID] = s
	return nil
}

func (m *MemoryStore) UpsertCharacter(c Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertCharacterErr != nil {
		return m.UpsertCharacterErr
	}
	m.characters[c.ID] = c
	return nil
}

func (m *MemoryStore) ClearScenes() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes = make(map[int]Scene)
	return nil
}

func (m *MemoryStore) ClearCharacters() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters = make(map[string]Character)
	return nil
}

func (m *MemoryStore) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.saves++
	return nil
}

// SaveCount returns how many times Save succeeded, for test assertions.
func (m *MemoryStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// GetScene returns the stored scene for test assertions.
func (m *MemoryStore) GetScene(id int) (Scene, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenes[id]
	return s, ok
}
