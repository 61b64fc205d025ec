package drives

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/vesaa/talondash/internal/command"
)

var topologyColumns = "PATH,NAME,MODEL,SERIAL,REV,SIZE,TYPE,TRAN,LABEL,FSTYPE"

type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

type lsblkDevice struct {
	Path     string        `json:"path"`
	Name     string        `json:"name"`
	Model    *string       `json:"model"`
	Serial   *string       `json:"serial"`
	Rev      *string       `json:"rev"`
	Size     flexUint      `json:"size"`
	Type     string        `json:"type"`
	Tran     *string       `json:"tran"`
	Label    *string       `json:"label"`
	FSType   *string       `json:"fstype"`
	Children []lsblkDevice `json:"children"`
}

// flexUint accepts the numeric SIZE of recent lsblk releases as well as the
// quoted strings older ones print, and null.
type flexUint struct {
	value uint64
	set   bool
}

func (f *flexUint) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	b = bytes.Trim(b, `"`)
	if len(b) == 0 {
		return nil
	}
	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("size %q: %w", b, err)
	}
	f.value, f.set = v, true
	return nil
}

func (f flexUint) ptr() *uint64 {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

// Topology lists whole disks and their partitions from lsblk. It is the first
// tier and the ground truth for structural fields.
type Topology struct {
	runner command.Runner
	path   string
	logger *zap.Logger
}

// NewTopology returns a Topology using the lsblk binary at path.
func NewTopology(runner command.Runner, path string, logger *zap.Logger) *Topology {
	if path == "" {
		path = "lsblk"
	}
	return &Topology{runner: runner, path: path, logger: logger}
}

// Disks returns every device of type "disk". A device the topology cannot
// identify is dropped and logged; it does not fail the others.
func (t *Topology) Disks(ctx context.Context) ([]Drive, error) {
	args := []string{"--json", "--bytes", "--output", topologyColumns}
	out, err := t.runner.Run(ctx, t.path, args...)
	if err != nil {
		return nil, fmt.Errorf("block topology: %w", err)
	}
	return t.parse(out)
}

func (t *Topology) parse(out []byte) ([]Drive, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, errors.New("block topology: empty output")
	}
	var parsed lsblkOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("block topology: parsing lsblk json: %w", err)
	}

	drives := make([]Drive, 0, len(parsed.BlockDevices))
	for _, dev := range parsed.BlockDevices {
		if dev.Type != "disk" {
			continue
		}
		if dev.Path == "" || dev.Name == "" {
			t.logger.Warn("skipping block device without path or name",
				zap.String("path", dev.Path), zap.String("name", dev.Name))
			continue
		}
		drives = append(drives, fromTopology(dev))
	}
	return drives, nil
}

func fromTopology(dev lsblkDevice) Drive {
	d := Drive{
		Path:       dev.Path,
		Device:     dev.Name,
		Model:      optString(dev.Model),
		Serial:     optString(dev.Serial),
		Revision:   optString(dev.Rev),
		SizeBytes:  dev.Size.ptr(),
		Transport:  optString(dev.Tran),
		Partitions: []Partition{},
		Health:     HealthUnknown,
		PowerState: PowerStateUnknown,
	}
	for _, child := range dev.Children {
		if child.Type != "part" {
			continue
		}
		d.Partitions = append(d.Partitions, Partition{
			Name:   child.Name,
			FSType: optString(child.FSType),
			Label:  optString(child.Label),
		})
	}
	return d
}
