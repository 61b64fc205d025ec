package tiles

import (
	"fmt"
	"strings"
)

// Name identifies one tile of the dashboard.
type Name string

const (
	SystemInfo     Name = "systemInfo"
	IPAddresses    Name = "ipAddresses"
	Docker         Name = "docker"
	MemoryUsage    Name = "memoryUsage"
	DiskSpaceUsage Name = "diskSpaceUsage"
	Thermal        Name = "thermal"
	PhysicalDrives Name = "physicalDrives"
	CPUUsage       Name = "cpuUsage"
)

// AllNames lists every tile in dashboard order.
func AllNames() []Name {
	return []Name{
		SystemInfo,
		IPAddresses,
		Docker,
		MemoryUsage,
		DiskSpaceUsage,
		Thermal,
		PhysicalDrives,
		CPUUsage,
	}
}

// Known reports whether n is a tile this server can build.
func Known(n Name) bool {
	_, ok := handlers[n]
	return ok
}

// UnknownTileError rejects a request naming tiles that do not exist.
type UnknownTileError struct {
	Names []string
}

func (e *UnknownTileError) Error() string {
	return fmt.Sprintf("unknown tile(s): %s", strings.Join(e.Names, ", "))
}

// ParseNames reads a comma separated tile list such as "cpuUsage,thermal".
// Blank entries and duplicates are dropped. Any unknown name fails the whole
// list with an *UnknownTileError.
func ParseNames(raw string) ([]Name, error) {
	var (
		names   []Name
		unknown []string
		seen    = make(map[Name]bool)
	)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n := Name(part)
		if !Known(n) {
			unknown = append(unknown, part)
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	if len(unknown) > 0 {
		return nil, &UnknownTileError{Names: unknown}
	}
	return names, nil
}
