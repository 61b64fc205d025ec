package drives

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vesaa/talondash/internal/command"
)

var errNoDeviceData = errors.New("report carries no device data")

// SmartTier queries smartctl for health, temperature and power-on time. It
// needs root, so it runs through non-interactive sudo unless disabled.
type SmartTier struct {
	runner  command.Runner
	path    string
	useSudo bool
}

// NewSmartTier returns the detailed health tier.
func NewSmartTier(runner command.Runner, smartctlPath string, useSudo bool) *SmartTier {
	if smartctlPath == "" {
		smartctlPath = "smartctl"
	}
	return &SmartTier{runner: runner, path: smartctlPath, useSudo: useSudo}
}

func (t *SmartTier) Name() string { return "smartctl" }

func (t *SmartTier) command(devicePath string) (string, []string) {
	// -n standby: do not spin up sleeping disks just to read them
	args := []string{"-n", "standby", "-xj", devicePath}
	if t.useSudo {
		return "sudo", append([]string{"-n", t.path}, args...)
	}
	return t.path, args
}

// Probe runs smartctl. smartctl's exit status is a bitmask that is non-zero
// for plenty of healthy drives, so the output is parsed regardless and the
// tier only gives up when that output is unusable.
func (t *SmartTier) Probe(ctx context.Context, d Drive) Outcome {
	name, args := t.command(d.Path)
	out, runErr := t.runner.Run(ctx, name, args...)

	var exitErr *command.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return Unavailable("%v", runErr)
	}

	det, err := parseSmartctl(out)
	if err != nil {
		if runErr != nil {
			return Unavailable("%v; output unusable: %v", runErr, err)
		}
		return Unavailable("output unusable: %v", err)
	}
	return Success(det)
}

type smartctlReport struct {
	ModelName     *string `json:"model_name"`
	SCSIModelName *string `json:"scsi_model_name"`
	SerialNumber  *string `json:"serial_number"`
	UserCapacity  *struct {
		Bytes *uint64 `json:"bytes"`
	} `json:"user_capacity"`
	Temperature *struct {
		Current *float64 `json:"current"`
	} `json:"temperature"`
	SmartStatus *struct {
		Passed *bool `json:"passed"`
	} `json:"smart_status"`
	PowerOnTime *struct {
		Hours *uint64 `json:"hours"`
	} `json:"power_on_time"`
	PowerMode    *string `json:"power_mode"`
	RotationRate *uint64 `json:"rotation_rate"`
}

func parseSmartctl(out []byte) (Detail, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return Detail{}, errors.New("empty output")
	}
	var r smartctlReport
	if err := json.Unmarshal(out, &r); err != nil {
		return Detail{}, fmt.Errorf("parsing smartctl json: %w", err)
	}

	det := Detail{
		Precedence:  Override,
		Model:       firstSet(optString(r.ModelName), optString(r.SCSIModelName)),
		Serial:      optString(r.SerialNumber),
		Health:      HealthUnknown,
		PowerState:  optString(r.PowerMode),
		RotationRPM: r.RotationRate,
	}
	if r.UserCapacity != nil {
		det.SizeBytes = r.UserCapacity.Bytes
	}
	if r.Temperature != nil {
		det.TemperatureC = r.Temperature.Current
	}
	if r.PowerOnTime != nil {
		det.PowerOnHours = r.PowerOnTime.Hours
	}
	if r.SmartStatus != nil && r.SmartStatus.Passed != nil && *r.SmartStatus.Passed {
		det.Health = HealthOK
	}

	if det.Model == nil && det.Serial == nil && det.SizeBytes == nil &&
		det.TemperatureC == nil && det.PowerOnHours == nil && r.SmartStatus == nil {
		return Detail{}, errNoDeviceData
	}
	return det, nil
}
