package dto

import "time"

// HealthResponse is served by the liveness route
type HealthResponse struct {
	OK      bool      `json:"ok"`
	Service string    `json:"service"`
	TS      time.Time `json:"ts"`
}
