// Package thermal reads kernel thermal zones (type and millidegree
// temperature) from a sysfs-style directory.
package thermal

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const zonePrefix = "thermal_zone"

// Zone is one thermal sensor.
type Zone struct {
	Name      string
	Type      string
	MilliDegC int64
}

// Reader enumerates thermal zones below a root directory of fs.
type Reader struct {
	fs     afero.Fs
	root   string
	logger *zap.Logger
}

// NewReader returns a Reader for the zones under root (normally
// /sys/class/thermal).
func NewReader(fs afero.Fs, root string, logger *zap.Logger) *Reader {
	return &Reader{fs: fs, root: root, logger: logger}
}

// Zones returns every readable zone ordered by zone number. A missing
// directory yields no zones; a zone whose files cannot be read is skipped.
func (r *Reader) Zones() ([]Zone, error) {
	entries, err := afero.ReadDir(r.fs, r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Zone{}, nil
		}
		return nil, fmt.Errorf("listing %s: %w", r.root, err)
	}

	zones := make([]Zone, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, zonePrefix) {
			continue
		}
		zone, err := r.readZone(name)
		if err != nil {
			r.logger.Debug("skipping thermal zone", zap.String("zone", name), zap.Error(err))
			continue
		}
		zones = append(zones, zone)
	}

	sort.SliceStable(zones, func(i, j int) bool {
		return zoneIndex(zones[i].Name) < zoneIndex(zones[j].Name)
	})
	return zones, nil
}

func (r *Reader) readZone(name string) (Zone, error) {
	dir := r.root + "/" + name
	typ, err := afero.ReadFile(r.fs, dir+"/type")
	if err != nil {
		return Zone{}, err
	}
	raw, err := afero.ReadFile(r.fs, dir+"/temp")
	if err != nil {
		return Zone{}, err
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return Zone{}, fmt.Errorf("parsing temp: %w", err)
	}
	return Zone{
		Name:      name,
		Type:      strings.TrimSpace(string(typ)),
		MilliDegC: milli,
	}, nil
}

func zoneIndex(name string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(name, zonePrefix))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}
