package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// EntityState is the persisted dynamic state of the local entities.
type EntityState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Entities holds per-entity dynamic state keyed by the entity ID in
	// "0x%016X" form.
	Entities map[string]EntityRecord `json:"entities,omitempty"`
}

// EntityRecord is the persisted state of one local entity.
type EntityRecord struct {
	// AvailableIndex is the high-water mark of the advertised
	// available_index.
	AvailableIndex uint32 `json:"available_index"`

	// CurrentConfiguration is the active configuration index.
	CurrentConfiguration uint16 `json:"current_configuration"`
}

// entityKey formats an entity ID the way the state file keys it.
func entityKey(id wire.EntityID) string {
	return fmt.Sprintf("0x%016X", uint64(id))
}

// StateStore manages persistence of entity state to a JSON file.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a state store backed by the given file path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Save persists the state to disk. The write goes through a temp file
// and rename so a crash mid-write cannot corrupt the previous state.
func (s *StateStore) Save(state *EntityState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(state)
}

func (s *StateStore) saveLocked(state *EntityState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *StateStore) Load() (*EntityState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *StateStore) loadLocked() (*EntityState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &EntityState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Clear removes the state file.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Record updates one entity's record, reading the existing file first so
// other entities' records survive. The stored available_index only moves
// forward.
func (s *StateStore) Record(id wire.EntityID, rec EntityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return err
	}
	if state == nil {
		state = &EntityState{}
	}
	if state.Entities == nil {
		state.Entities = make(map[string]EntityRecord)
	}

	key := entityKey(id)
	if old, ok := state.Entities[key]; ok && old.AvailableIndex > rec.AvailableIndex {
		rec.AvailableIndex = old.AvailableIndex
	}
	state.Entities[key] = rec
	state.SavedAt = time.Now()
	return s.saveLocked(state)
}

// Lookup returns one entity's persisted record.
func (s *StateStore) Lookup(id wire.EntityID) (EntityRecord, bool, error) {
	state, err := s.Load()
	if err != nil {
		return EntityRecord{}, false, err
	}
	if state == nil {
		return EntityRecord{}, false, nil
	}
	rec, ok := state.Entities[entityKey(id)]
	return rec, ok, nil
}
