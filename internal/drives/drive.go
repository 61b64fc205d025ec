// Package drives resolves physical block devices into health and identity
// records by walking an ordered chain of probes, from the block topology down
// to coarse unprivileged fallbacks.
package drives

import (
	"fmt"
	"strings"
)

// Health is the overall SMART verdict for a drive.
type Health string

const (
	HealthOK      Health = "ok"
	HealthUnknown Health = "unknown"
)

// PowerStateUnknown marks a drive whose power state no probe could report.
const PowerStateUnknown = "unknown"

// Partition is one child partition of a drive. FSType and Label are nil when
// the partition carries no filesystem or label.
type Partition struct {
	Name   string  `json:"name"`
	FSType *string `json:"fsType"`
	Label  *string `json:"label"`
}

// Drive is the merged view of a physical disk. Pointer fields are nil when no
// probe supplied a value, which keeps "no data" apart from a real zero (an SSD
// reports a rotation rate of 0).
type Drive struct {
	Path            string      `json:"path"`
	Device          string      `json:"device"`
	Model           *string     `json:"model"`
	Serial          *string     `json:"serial"`
	Revision        *string     `json:"rev"`
	SizeBytes       *uint64     `json:"sizeBytes"`
	Transport       *string     `json:"transport"`
	Partitions      []Partition `json:"partitions"`
	TemperatureC    *float64    `json:"temperatureC"`
	Health          Health      `json:"health"`
	PowerOnHours    *uint64     `json:"powerOnHours"`
	PowerState      string      `json:"powerState"`
	RotationRateRPM *uint64     `json:"rotationRateRpm"`
	// DetailSource names the tier that supplied health/identity details, empty
	// when only the block topology answered.
	DetailSource string `json:"detailSource"`
}

// PartitionSummary renders partitions as "sda1[ext4:root], sda2[swap]",
// dropping empty brackets and separators.
func (d Drive) PartitionSummary() string {
	parts := make([]string, 0, len(d.Partitions))
	for _, p := range d.Partitions {
		var attrs []string
		if p.FSType != nil {
			attrs = append(attrs, *p.FSType)
		}
		if p.Label != nil {
			attrs = append(attrs, *p.Label)
		}
		if len(attrs) == 0 {
			parts = append(parts, p.Name)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s[%s]", p.Name, strings.Join(attrs, ":")))
	}
	return strings.Join(parts, ", ")
}

// Precedence controls how a tier's detail is merged into a drive.
type Precedence int

const (
	// Override replaces identity fields the topology already supplied.
	Override Precedence = iota
	// Fill only supplies identity fields that are still missing.
	Fill
)

// Detail is what a detail tier learned about a drive.
type Detail struct {
	Precedence   Precedence
	Model        *string
	Serial       *string
	SizeBytes    *uint64
	TemperatureC *float64
	Health       Health
	PowerOnHours *uint64
	PowerState   *string
	RotationRPM  *uint64
}

// merge overlays det onto d. Structural fields (path, name, transport,
// partitions) are never touched.
func (d *Drive) merge(source string, det Detail) {
	switch det.Precedence {
	case Override:
		d.Model = firstSet(det.Model, d.Model)
		d.Serial = firstSet(det.Serial, d.Serial)
		d.SizeBytes = firstSet(det.SizeBytes, d.SizeBytes)
	case Fill:
		d.Model = firstSet(d.Model, det.Model)
		d.Serial = firstSet(d.Serial, det.Serial)
		d.SizeBytes = firstSet(d.SizeBytes, det.SizeBytes)
	}

	if det.TemperatureC != nil {
		d.TemperatureC = det.TemperatureC
	}
	if det.Health != "" {
		d.Health = det.Health
	}
	if det.PowerOnHours != nil {
		d.PowerOnHours = det.PowerOnHours
	}
	if det.PowerState != nil {
		d.PowerState = *det.PowerState
	}
	if det.RotationRPM != nil {
		d.RotationRateRPM = det.RotationRPM
	}
	d.DetailSource = source
}

func firstSet[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}

// optString trims s and returns nil when nothing is left.
func optString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func strPtr(s string) *string { return optString(&s) }
