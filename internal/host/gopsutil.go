package host

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	gohost "github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// pseudoFilesystems are skipped when listing mounts, matching the df
// exclusions used by the disk space tile.
var pseudoFilesystems = map[string]bool{
	"squashfs": true,
	"tmpfs":    true,
	"devtmpfs": true,
	"overlay":  true,
}

// Gopsutil is the Provider backed by gopsutil. It keeps one handle per live
// process so CPU usage is measured over the time since the previous listing.
type Gopsutil struct {
	mu      sync.Mutex
	handles map[procKey]*process.Process
}

// procKey tells a process apart from a later one that reuses its PID.
type procKey struct {
	pid     int32
	created int64
}

// NewGopsutil returns a gopsutil backed Provider.
func NewGopsutil() *Gopsutil {
	return &Gopsutil{handles: make(map[procKey]*process.Process)}
}

func (*Gopsutil) CPU(ctx context.Context) (CPUInfo, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return CPUInfo{}, fmt.Errorf("cpu info: %w", err)
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return CPUInfo{}, fmt.Errorf("cpu count: %w", err)
	}
	out := CPUInfo{Cores: cores}
	if len(infos) > 0 {
		out.Manufacturer = strings.TrimSpace(infos[0].VendorID)
		out.Brand = strings.TrimSpace(infos[0].ModelName)
	}
	return out, nil
}

func (*Gopsutil) OS(ctx context.Context) (OSInfo, error) {
	info, err := gohost.InfoWithContext(ctx)
	if err != nil {
		return OSInfo{}, fmt.Errorf("host info: %w", err)
	}
	return OSInfo{
		Distro:        info.Platform,
		Release:       info.PlatformVersion,
		Kernel:        info.OS,
		KernelVersion: info.KernelVersion,
		UptimeSeconds: info.Uptime,
	}, nil
}

func (*Gopsutil) Load(ctx context.Context) (LoadAvg, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return LoadAvg{}, fmt.Errorf("load average: %w", err)
	}
	return LoadAvg{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}, nil
}

// Processes lists the process table. Processes that exit or deny access
// while being read are skipped. A process seen for the first time reports its
// lifetime average CPU; afterwards CPU is the share used since the previous
// call.
func (g *Gopsutil) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	live := make(map[procKey]*process.Process, len(procs))
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		created, err := p.CreateTimeWithContext(ctx)
		if err != nil {
			continue
		}
		key := procKey{pid: p.Pid, created: created}
		handle, known := g.handles[key]
		if !known {
			handle = p
		}
		live[key] = handle

		name, err := handle.NameWithContext(ctx)
		if err != nil {
			continue
		}
		entry := Process{PID: handle.Pid, Name: name}
		if mi, err := handle.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			entry.RSSBytes = mi.RSS
		}
		entry.CPUPercent = cpuPercent(ctx, handle, known)
		out = append(out, entry)
	}
	g.handles = live
	return out, nil
}

// cpuPercent reads the usage since the handle's previous sample. The first
// sample of a handle only primes it, so the lifetime average stands in.
func cpuPercent(ctx context.Context, p *process.Process, known bool) float64 {
	since, err := p.PercentWithContext(ctx, 0)
	if known && err == nil {
		return since
	}
	lifetime, err := p.CPUPercentWithContext(ctx)
	if err != nil {
		return 0
	}
	return lifetime
}

func (*Gopsutil) Memory(ctx context.Context) (Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, fmt.Errorf("virtual memory: %w", err)
	}
	return Memory{Total: vm.Total, Used: vm.Used, Free: vm.Free}, nil
}

func (*Gopsutil) Interfaces(ctx context.Context) ([]Interface, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("network interfaces: %w", err)
	}
	counters, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("network counters: %w", err)
	}
	byName := make(map[string]psnet.IOCountersStat, len(counters))
	for _, c := range counters {
		byName[c.Name] = c
	}

	out := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		entry := Interface{
			Name:     iface.Name,
			IPv4:     firstIPv4(iface.Addrs),
			Loopback: hasFlag(iface.Flags, "loopback"),
		}
		if c, ok := byName[iface.Name]; ok {
			entry.RxBytes = c.BytesRecv
			entry.TxBytes = c.BytesSent
			entry.HasCounters = true
		}
		out = append(out, entry)
	}
	return out, nil
}

func (*Gopsutil) Filesystems(ctx context.Context) ([]Filesystem, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}

	seen := make(map[string]bool, len(parts))
	out := make([]Filesystem, 0, len(parts))
	for _, p := range parts {
		if pseudoFilesystems[p.Fstype] || seen[p.Mountpoint] {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		seen[p.Mountpoint] = true
		out = append(out, Filesystem{
			Mountpoint:  p.Mountpoint,
			Fstype:      p.Fstype,
			Total:       usage.Total,
			UsedPercent: usage.UsedPercent,
		})
	}
	return out, nil
}

func firstIPv4(addrs psnet.InterfaceAddrList) string {
	for _, a := range addrs {
		ip, _, err := net.ParseCIDR(a.Addr)
		if err != nil {
			ip = net.ParseIP(a.Addr)
		}
		if ip != nil && ip.To4() != nil {
			return ip.String()
		}
	}
	return ""
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
