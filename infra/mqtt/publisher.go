package mqtt

import (
	"context"
	"sync"
	"time"

	"github.com/mdubois44/chargeplan/core/model"
	"github.com/mdubois44/chargeplan/core/result"
)

// Publisher is the outbound plan-handoff port.
type Publisher interface {
	PublishSchedule(ctx context.Context, payload SchedulePayload) error
	Close()
}

// SchedulePayload is the JSON document published after a completed run.
type SchedulePayload struct {
	RunID     string        `json:"run_id"`
	Scenario  string        `json:"scenario"`
	Timestamp time.Time     `json:"timestamp"`
	DTHours   float64       `json:"dt_hours"`
	Vehicles  []VehiclePlan `json:"vehicles"`
}

// VehiclePlan carries one vehicle's hourly power setpoints in kW.
type VehiclePlan struct {
	VehicleID string    `json:"vehicle_id"`
	PowerKW   []float64 `json:"power_kw"`
}

// BuildPayload pairs the selected schedule with the scenario's vehicle
// identities.
func BuildPayload(s *model.Scenario, res *result.Result) SchedulePayload {
	plans := make([]VehiclePlan, len(s.Vehicles))
	for i, v := range s.Vehicles {
		plans[i] = VehiclePlan{VehicleID: v.ID, PowerKW: res.VehicleSchedule(i)}
	}
	return SchedulePayload{
		RunID:     res.RunID,
		Scenario:  s.Name,
		Timestamp: res.Timestamp,
		DTHours:   res.DTHours,
		Vehicles:  plans,
	}
}

// MockPublisher records published payloads for tests.
type MockPublisher struct {
	mu        sync.Mutex
	Published []SchedulePayload
	Err       error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishSchedule records the payload or returns the configured error.
func (m *MockPublisher) PublishSchedule(_ context.Context, payload SchedulePayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Published = append(m.Published, payload)
	return nil
}

// Close is a no-op.
func (m *MockPublisher) Close() {}
