package tiles

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vesaa/talondash/internal/counter"
	"github.com/vesaa/talondash/internal/format"
	"github.com/vesaa/talondash/internal/host"
)

func (a *Aggregator) systemInfo(ctx context.Context, r *request) (any, error) {
	var (
		cpu   host.CPUInfo
		osi   host.OSInfo
		load  host.LoadAvg
		procs []host.Process
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cpu, err = a.src.Host.CPU(gctx)
		return err
	})
	g.Go(func() (err error) {
		osi, err = a.src.Host.OS(gctx)
		return err
	})
	g.Go(func() (err error) {
		load, err = a.src.Host.Load(gctx)
		return err
	})
	g.Go(func() (err error) {
		procs, err = r.processes()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Equivalent to cmp.Or(osi.KernelVersion, osi.Kernel); cmp.Or needs Go 1.22.
	kernel := osi.KernelVersion
	if kernel == "" {
		kernel = osi.Kernel
	}

	return SystemInfoTile{
		Distro:    strings.TrimSpace(osi.Distro + " " + osi.Release),
		Kernel:    kernel,
		Uptime:    format.Uptime(osi.UptimeSeconds),
		CPU:       fmt.Sprintf("%s %s (%d vCPU)", cpu.Manufacturer, cpu.Brand, cpu.Cores),
		Load:      fmt.Sprintf("%.2f (1m), %.2f (5m), %.2f (15m)", load.Load1, load.Load5, load.Load15),
		Processes: fmt.Sprintf("%d (total)", len(procs)),
	}, nil
}

func (a *Aggregator) ipAddresses(ctx context.Context, _ *request) (any, error) {
	ifaces, err := a.src.Host.Interfaces(ctx)
	if err != nil {
		return nil, err
	}
	now := a.now()
	out := make([]InterfaceTile, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.Loopback || iface.IPv4 == "" || iface.IPv4 == "127.0.0.1" {
			continue
		}
		rate := counter.Rate{Upload: counter.Unavailable, Download: counter.Unavailable}
		if iface.HasCounters {
			rate = a.src.Counters.RecordRate(counter.Sample{
				Key:        iface.Name,
				RxBytes:    iface.RxBytes,
				TxBytes:    iface.TxBytes,
				ObservedAt: now,
			})
		}
		out = append(out, InterfaceTile{
			Name:         iface.Name,
			IP:           iface.IPv4,
			UploadRate:   format.KBps(rate.Upload),
			DownloadRate: format.KBps(rate.Download),
		})
	}
	return out, nil
}

func (a *Aggregator) docker(ctx context.Context, _ *request) (any, error) {
	return a.src.Containers.List(ctx)
}

func emptyMemory() MemoryTile {
	return MemoryTile{
		Total:        format.Bytes(0),
		Used:         "0%",
		Free:         format.Bytes(0),
		Applications: []AppMemoryTile{},
	}
}

func (a *Aggregator) memoryUsage(ctx context.Context, r *request) (any, error) {
	mem, err := a.src.Host.Memory(ctx)
	if err != nil {
		return nil, err
	}
	procs, err := r.processes()
	if err != nil {
		return nil, err
	}

	ranked := topBy(procs, func(p host.Process) float64 { return float64(p.RSSBytes) })
	apps := make([]AppMemoryTile, 0, len(ranked))
	for _, p := range ranked {
		apps = append(apps, AppMemoryTile{
			Name:        p.Name,
			MemoryUsage: p.RSSBytes,
			Percentage:  format.Percent(share(p.RSSBytes, mem.Total)),
		})
	}
	return MemoryTile{
		Total:        format.Bytes(mem.Total),
		Used:         fmt.Sprintf("%.0f%%", share(mem.Used, mem.Total)),
		Free:         format.Bytes(mem.Free),
		Applications: apps,
	}, nil
}

func (a *Aggregator) diskSpaceUsage(ctx context.Context, _ *request) (any, error) {
	disks, err := a.src.Disks.Usage(ctx)
	if err != nil {
		a.logger.Info("df unavailable, reading mounts directly", zap.Error(err))
		disks, err = a.filesystemUsage(ctx)
		if err != nil {
			return nil, err
		}
	}
	slices.SortStableFunc(disks, func(x, y DiskTile) int {
		return strings.Compare(x.Filesystem, y.Filesystem)
	})
	return disks, nil
}

func (a *Aggregator) filesystemUsage(ctx context.Context) ([]DiskTile, error) {
	fss, err := a.src.Host.Filesystems(ctx)
	if err != nil {
		return nil, fmt.Errorf("filesystems: %w", err)
	}
	disks := make([]DiskTile, 0, len(fss))
	for _, fs := range fss {
		disks = append(disks, DiskTile{
			Filesystem: fs.Mountpoint,
			Used:       fmt.Sprintf("%.0f%%", math.Ceil(fs.UsedPercent)),
			Size:       format.Bytes(fs.Total),
		})
	}
	return disks, nil
}

func (a *Aggregator) thermal(_ context.Context, _ *request) (any, error) {
	zones, err := a.src.Thermal.Zones()
	if err != nil {
		return nil, err
	}
	out := make([]ThermalTile, 0, len(zones))
	for _, z := range zones {
		out = append(out, ThermalTile{
			Type:  z.Type,
			Temp:  format.Celsius(z.MilliDegC),
			TempC: float64(z.MilliDegC) / 1000,
		})
	}
	return out, nil
}

func (a *Aggregator) physicalDrives(ctx context.Context, _ *request) (any, error) {
	ds, err := a.src.Drives.Drives(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DriveTile, 0, len(ds))
	for _, d := range ds {
		size := "unknown"
		if d.SizeBytes != nil {
			size = format.Bytes(*d.SizeBytes)
		}
		out = append(out, DriveTile{
			Drive:            d,
			Size:             size,
			PartitionSummary: d.PartitionSummary(),
		})
	}
	return out, nil
}

func (a *Aggregator) cpuUsage(_ context.Context, r *request) (any, error) {
	procs, err := r.processes()
	if err != nil {
		return nil, err
	}
	ranked := topBy(procs, func(p host.Process) float64 { return p.CPUPercent })
	out := make([]ProcessCPUTile, 0, len(ranked))
	for _, p := range ranked {
		out = append(out, ProcessCPUTile{
			Name:     p.Name,
			CPUUsage: math.Round(p.CPUPercent*100) / 100,
		})
	}
	return out, nil
}

// topBy returns the topN processes by metric, highest first. Ties keep
// enumeration order. The input is not modified.
func topBy(procs []host.Process, metric func(host.Process) float64) []host.Process {
	ranked := slices.Clone(procs)
	slices.SortStableFunc(ranked, func(x, y host.Process) int {
		return cmp.Compare(metric(y), metric(x))
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

func share(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
