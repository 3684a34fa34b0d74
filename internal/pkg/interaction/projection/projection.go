package projection

import (
	"sync"

	interaction "go-parley/internal/pkg/interaction/domain"
)

// Key addresses one cached listing: a kind seen from one perspective.
type Key struct {
	Kind        interaction.Kind
	Perspective interaction.Perspective
}

// KeysFor returns the pair of keys covering both viewpoints of a kind. Every
// mutation touches the pair, since the two listings are projections of the
// same underlying records.
func KeysFor(kind interaction.Kind) []Key {
	return []Key{
		{Kind: kind, Perspective: interaction.PerspectiveSent},
		{Kind: kind, Perspective: interaction.PerspectiveReceived},
	}
}

type entry struct {
	records []interaction.Interaction
	loaded  bool
	stale   bool
}

func (e *entry) clone() *entry {
	cp := &entry{loaded: e.loaded, stale: e.stale}
	if e.records != nil {
		cp.records = make([]interaction.Interaction, len(e.records))
		for i := range e.records {
			cp.records[i] = *e.records[i].Clone()
		}
	}
	return cp
}

// Snapshot is an opaque deep copy of a set of entries, taken before an
// optimistic apply and restored verbatim if the remote call fails.
type Snapshot map[Key]*entry

// Store is the keyed in-memory snapshot of remote query results. It is the
// only mutable state the engine shares; all writes go through the apply,
// rollback and invalidate operations below so rollback accounting stays
// intact. The store is injectable, not a package singleton, and safe for
// concurrent use. Every read and snapshot hands out deep copies.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

// NewStore constructs an empty projection store.
func NewStore() *Store {
	return &Store{entries: make(map[Key]*entry)}
}

// Get returns a copy of the cached listing. ok is false when the entry has
// never been loaded or has been marked stale, in which case the caller should
// refetch through the gateway.
func (s *Store) Get(key Key) ([]interaction.Interaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !e.loaded || e.stale {
		return nil, false
	}
	return copyRecords(e.records), true
}

// Peek returns the cached listing even when stale, for callers that prefer
// showing last-known data while a refetch is in flight.
func (s *Store) Peek(key Key) ([]interaction.Interaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !e.loaded {
		return nil, false
	}
	return copyRecords(e.records), true
}

// Put replaces the entry with an authoritative fetch result and clears the
// stale bit.
func (s *Store) Put(key Key, records []interaction.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{records: copyRecords(records), loaded: true}
}

// Snapshot deep-copies the named entries, including ones that do not exist
// yet so Restore can remove anything applied in the meantime.
func (s *Store) Snapshot(keys ...Key) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(Snapshot, len(keys))
	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			snap[key] = e.clone()
		} else {
			snap[key] = nil
		}
	}
	return snap
}

// Restore puts every snapshotted entry back exactly as captured.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range snap {
		if e == nil {
			delete(s.entries, key)
			continue
		}
		s.entries[key] = e.clone()
	}
}

// Update replaces the record with rec's id in the entry, if present. It
// reports whether a replacement happened. Missing entries stay missing; the
// record will arrive with the next authoritative fetch.
func (s *Store) Update(key Key, rec *interaction.Interaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.loaded {
		return false
	}
	for i := range e.records {
		if e.records[i].ID == rec.ID {
			e.records[i] = *rec.Clone()
			return true
		}
	}
	return false
}

// Insert prepends rec to a loaded entry. Used for freshly created records.
func (s *Store) Insert(key Key, rec *interaction.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.loaded {
		return
	}
	e.records = append([]interaction.Interaction{*rec.Clone()}, e.records...)
}

// Find looks the record up across both perspective entries of its kind.
func (s *Store) Find(kind interaction.Kind, id string) (*interaction.Interaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range KeysFor(kind) {
		e, ok := s.entries[key]
		if !ok || !e.loaded {
			continue
		}
		for i := range e.records {
			if e.records[i].ID == id {
				return e.records[i].Clone(), true
			}
		}
	}
	return nil, false
}

// MarkStale flags entries so the next Get forces a refetch. This is the
// reconciliation point after every settle, success or failure.
func (s *Store) MarkStale(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			e.stale = true
		}
	}
}

func copyRecords(records []interaction.Interaction) []interaction.Interaction {
	if records == nil {
		return nil
	}
	out := make([]interaction.Interaction, len(records))
	for i := range records {
		out[i] = *records[i].Clone()
	}
	return out
}
