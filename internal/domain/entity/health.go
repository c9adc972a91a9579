package entity

import "time"

const HealthStatusHealthy = "healthy"

type Health struct {
	Status            string    `json:"status"`
	BpmnlintAvailable bool      `json:"bpmnlint_available"`
	Timestamp         time.Time `json:"ts"`
}
