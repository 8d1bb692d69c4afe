package energy

import "testing"

func TestMemoryStoreAggregation(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Add(Record{Scenario: "synthetic_5v", VehicleID: "v1", ChargedKWh: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(Record{Scenario: "synthetic_5v", VehicleID: "v1", ChargedKWh: 1, DischargedKWh: 0.5}); err != nil {
		t.Fatalf("add2: %v", err)
	}
	if err := s.Add(Record{Scenario: "synthetic_5v", VehicleID: "v0", ChargedKWh: 4}); err != nil {
		t.Fatalf("add3: %v", err)
	}

	recs, err := s.Query("synthetic_5v")
	if err != nil || len(recs) != 2 {
		t.Fatalf("query: %v len=%d", err, len(recs))
	}
	if recs[0].VehicleID != "v0" || recs[1].VehicleID != "v1" {
		t.Fatalf("expected vehicle order v0,v1 got %s,%s", recs[0].VehicleID, recs[1].VehicleID)
	}
	if recs[1].ChargedKWh != 3 || recs[1].DischargedKWh != 0.5 {
		t.Fatalf("aggregation wrong: %+v", recs[1])
	}

	other, err := s.Query("unknown")
	if err != nil || len(other) != 0 {
		t.Fatalf("expected empty result for unknown scenario")
	}
}

func TestRecordCalculations(t *testing.T) {
	r := Record{ChargedKWh: 4, DischargedKWh: 2}
	if r.NetKWh() != 2 {
		t.Fatalf("net")
	}
	if r.V2GShare() != 0.5 {
		t.Fatalf("share")
	}
	if r.CO2AvoidedGrams(10) != 20 {
		t.Fatalf("co2")
	}
	if (Record{}).V2GShare() != 0 {
		t.Fatalf("empty share")
	}
}
