package tiles

import "github.com/vesaa/talondash/internal/drives"

// SystemInfoTile summarises the host.
type SystemInfoTile struct {
	Distro    string `json:"distro"`
	Kernel    string `json:"kernel"`
	Uptime    string `json:"uptime"`
	CPU       string `json:"cpu"`
	Load      string `json:"load"`
	Processes string `json:"processes"`
}

// InterfaceTile is one network interface with its throughput since the
// previous poll, "N/A" when no rate is known yet.
type InterfaceTile struct {
	Name         string `json:"name"`
	IP           string `json:"ip"`
	UploadRate   string `json:"uploadRate"`
	DownloadRate string `json:"downloadRate"`
}

// MemoryTile is memory totals plus the top consumers.
type MemoryTile struct {
	Total        string          `json:"total"`
	Used         string          `json:"used"`
	Free         string          `json:"free"`
	Applications []AppMemoryTile `json:"applications"`
}

// AppMemoryTile is one process ranked by resident memory.
type AppMemoryTile struct {
	Name        string `json:"name"`
	MemoryUsage uint64 `json:"memoryUsage"`
	Percentage  string `json:"percentage"`
}

// DiskTile is one mounted filesystem.
type DiskTile struct {
	Filesystem string `json:"filesystem"`
	Used       string `json:"used"`
	Size       string `json:"size"`
}

// ThermalTile is one thermal zone.
type ThermalTile struct {
	Type  string  `json:"type"`
	Temp  string  `json:"temp"`
	TempC float64 `json:"tempC"`
}

// DriveTile is a resolved physical drive with display fields.
type DriveTile struct {
	drives.Drive
	Size             string `json:"size"`
	PartitionSummary string `json:"partitionSummary"`
}

// ProcessCPUTile is one process ranked by CPU usage.
type ProcessCPUTile struct {
	Name     string  `json:"name"`
	CPUUsage float64 `json:"cpuUsage"`
}
