// Package host describes the machine the dashboard runs on: CPU, OS, load,
// processes, memory, network interfaces and mounted filesystems.
package host

import "context"

// CPUInfo describes the processor.
type CPUInfo struct {
	Manufacturer string
	Brand        string
	Cores        int
}

// OSInfo describes the operating system and how long it has been up.
type OSInfo struct {
	Distro        string
	Release       string
	Kernel        string
	KernelVersion string
	UptimeSeconds uint64
}

// LoadAvg holds the 1, 5 and 15 minute load averages.
type LoadAvg struct {
	Load1  float64
	Load5  float64
	Load15 float64
}

// Process is one entry of the process table.
type Process struct {
	PID        int32
	Name       string
	RSSBytes   uint64
	CPUPercent float64
}

// Memory holds physical memory totals in bytes.
type Memory struct {
	Total uint64
	Used  uint64
	Free  uint64
}

// Interface is a network interface with its primary IPv4 address (empty when
// it has none) and cumulative byte counters.
type Interface struct {
	Name     string
	IPv4     string
	Loopback bool
	RxBytes  uint64
	TxBytes  uint64
	// HasCounters is false when the kernel reported no counters for it.
	HasCounters bool
}

// Filesystem is one mounted filesystem and its usage.
type Filesystem struct {
	Mountpoint  string
	Fstype      string
	Total       uint64
	UsedPercent float64
}

// Provider answers questions about the host. Every call reads live state.
type Provider interface {
	CPU(ctx context.Context) (CPUInfo, error)
	OS(ctx context.Context) (OSInfo, error)
	Load(ctx context.Context) (LoadAvg, error)
	Processes(ctx context.Context) ([]Process, error)
	Memory(ctx context.Context) (Memory, error)
	Interfaces(ctx context.Context) ([]Interface, error)
	Filesystems(ctx context.Context) ([]Filesystem, error)
}
