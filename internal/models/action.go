// Package models defines GORM data models for talondash.
package models

import "time"

// ContainerAction is one audited start/stop/restart request. Only control
// actions are persisted; metric samples never are.
type ContainerAction struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Container string `gorm:"index;not null" json:"container"`
	Action    string `gorm:"not null" json:"action"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	// RequestedBy is the authenticated username from the JWT.
	RequestedBy string    `gorm:"index" json:"requested_by"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
