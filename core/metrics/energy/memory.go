package energy

import (
	"sort"
	"sync"
)

// MemoryStore keeps the ledger in memory for testing or lightweight usage.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string]*Record // scenario -> vehicle -> record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[string]*Record{}}
}

// Add inserts or updates the record aggregated by scenario and vehicle.
func (s *MemoryStore) Add(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[r.Scenario] == nil {
		s.data[r.Scenario] = map[string]*Record{}
	}
	rec := s.data[r.Scenario][r.VehicleID]
	if rec == nil {
		rec = &Record{Scenario: r.Scenario, VehicleID: r.VehicleID}
		s.data[r.Scenario][r.VehicleID] = rec
	}
	rec.ChargedKWh += r.ChargedKWh
	rec.DischargedKWh += r.DischargedKWh
	return nil
}

// Query returns the scenario's records sorted by vehicle id.
func (s *MemoryStore) Query(scenario string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Record
	for _, r := range s.data[scenario] {
		res = append(res, *r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].VehicleID < res[j].VehicleID })
	return res, nil
}
