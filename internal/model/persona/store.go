package persona

// Store exposes persona profiles for HTTP handlers and the CLI.
type Store interface {
	List() []Profile
	Find(p Persona) (Profile, bool)
}

// MemoryStore implements Store over a fixed slice.
type MemoryStore struct {
	items []Profile
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied profiles.
func NewMemoryStore(items []Profile) *MemoryStore {
	return &MemoryStore{items: append([]Profile(nil), items...)}
}

// List returns a copy of the stored profiles.
func (s *MemoryStore) List() []Profile {
	return append([]Profile(nil), s.items...)
}

// Find looks up a profile by persona tag.
func (s *MemoryStore) Find(p Persona) (Profile, bool) {
	for _, item := range s.items {
		if item.Persona == p {
			return item, true
		}
	}
	return Profile{}, false
}
