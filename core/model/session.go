package model

import (
	"fmt"
	"time"
)

// ChargingSession is one historical plug-in event as recorded by a charging
// network dataset.
type ChargingSession struct {
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	ConnectionTime time.Time `json:"connection_time"`
	DisconnectTime time.Time `json:"disconnection_time"`
	KWhDelivered   float64   `json:"kwh_delivered"`
	SiteName       string    `json:"site_name"`
}

// Validate checks basic session consistency.
func (s ChargingSession) Validate() error {
	if !s.DisconnectTime.After(s.ConnectionTime) {
		return &ValidationError{Field: "disconnection_time", Reason: "must be after connection time"}
	}
	if s.KWhDelivered < 0 {
		return &ValidationError{Field: "kwh_delivered", Reason: fmt.Sprintf("must not be negative, got %g", s.KWhDelivered)}
	}
	return nil
}

// DurationHours returns the session length in hours.
func (s ChargingSession) DurationHours() float64 {
	return s.DisconnectTime.Sub(s.ConnectionTime).Hours()
}

// AveragePowerKW returns the mean charging power over the session, 0 for a
// zero-length session.
func (s ChargingSession) AveragePowerKW() float64 {
	d := s.DurationHours()
	if d == 0 {
		return 0
	}
	return s.KWhDelivered / d
}

// ArrivalHour returns the hour of day the vehicle plugged in.
func (s ChargingSession) ArrivalHour() int {
	return s.ConnectionTime.Hour()
}

// DepartureHour returns the hour of day the vehicle unplugged.
func (s ChargingSession) DepartureHour() int {
	return s.DisconnectTime.Hour()
}
