// Package tiles assembles dashboard snapshots. Each tile is gathered by its
// own handler, concurrently and under a deadline, so one slow or broken
// source only blanks its own tile.
package tiles

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vesaa/talondash/internal/containers"
	"github.com/vesaa/talondash/internal/counter"
	"github.com/vesaa/talondash/internal/drives"
	"github.com/vesaa/talondash/internal/host"
	"github.com/vesaa/talondash/internal/thermal"
)

// DefaultTimeout bounds a single tile when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// topN caps the ranked process lists.
const topN = 10

// Snapshot maps each requested tile to its payload.
type Snapshot map[Name]any

// DriveLister yields resolved physical drives.
type DriveLister interface {
	Drives(ctx context.Context) ([]drives.Drive, error)
}

// ContainerLister yields the container runtime summary.
type ContainerLister interface {
	List(ctx context.Context) (containers.Summary, error)
}

// ZoneReader yields thermal zones.
type ZoneReader interface {
	Zones() ([]thermal.Zone, error)
}

// Sources are the collaborators the tile handlers read from.
type Sources struct {
	Host       host.Provider
	Disks      DiskUsageReader
	Drives     DriveLister
	Containers ContainerLister
	Thermal    ZoneReader
	Counters   *counter.Store
}

// Aggregator builds snapshots. It is safe for concurrent use; the counter
// store is the only state that outlives a call.
type Aggregator struct {
	src     Sources
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// New returns an Aggregator. A nil counter store gets a fresh one.
func New(src Sources, timeout time.Duration, logger *zap.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if src.Counters == nil {
		src.Counters = counter.NewStore()
	}
	return &Aggregator{
		src:     src,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// handler fetches one tile. empty is the payload served when fetch fails.
type handler struct {
	fetch func(a *Aggregator, ctx context.Context, r *request) (any, error)
	empty func() any
}

var handlers = map[Name]handler{
	SystemInfo:     {fetch: (*Aggregator).systemInfo, empty: func() any { return SystemInfoTile{} }},
	IPAddresses:    {fetch: (*Aggregator).ipAddresses, empty: func() any { return []InterfaceTile{} }},
	Docker:         {fetch: (*Aggregator).docker, empty: func() any { return containers.EmptySummary() }},
	MemoryUsage:    {fetch: (*Aggregator).memoryUsage, empty: func() any { return emptyMemory() }},
	DiskSpaceUsage: {fetch: (*Aggregator).diskSpaceUsage, empty: func() any { return []DiskTile{} }},
	Thermal:        {fetch: (*Aggregator).thermal, empty: func() any { return []ThermalTile{} }},
	PhysicalDrives: {fetch: (*Aggregator).physicalDrives, empty: func() any { return []DriveTile{} }},
	CPUUsage:       {fetch: (*Aggregator).cpuUsage, empty: func() any { return []ProcessCPUTile{} }},
}

// request holds what tiles of one snapshot share. The process list is read
// at most once per snapshot and never reused by the next one.
type request struct {
	processes func() ([]host.Process, error)
}

func (a *Aggregator) newRequest(ctx context.Context) *request {
	return &request{
		processes: sync.OnceValues(func() ([]host.Process, error) {
			return a.src.Host.Processes(ctx)
		}),
	}
}

// BuildSnapshot gathers the named tiles. It fails only when a name is not a
// known tile, in which case nothing is fetched. Source failures are logged
// and replaced by that tile's empty payload.
func (a *Aggregator) BuildSnapshot(ctx context.Context, names []Name) (Snapshot, error) {
	var unknown []string
	for _, n := range names {
		if !Known(n) {
			unknown = append(unknown, string(n))
		}
	}
	if len(unknown) > 0 {
		return nil, &UnknownTileError{Names: unknown}
	}

	names = dedupe(names)
	req := a.newRequest(ctx)
	results := make([]any, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = a.runTile(ctx, req, name)
			return nil
		})
	}
	_ = g.Wait()

	snap := make(Snapshot, len(names))
	for i, name := range names {
		snap[name] = results[i]
	}
	return snap, nil
}

// dedupe drops repeated names, keeping first occurrences in order. A tile
// fetched twice in one snapshot would record its counters twice.
func dedupe(names []Name) []Name {
	seen := make(map[Name]bool, len(names))
	out := make([]Name, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

type tileResult struct {
	payload any
	err     error
}

// runTile runs one handler under the tile deadline. A handler that ignores
// its context is abandoned when the deadline passes.
func (a *Aggregator) runTile(ctx context.Context, req *request, name Name) any {
	h := handlers[name]
	tctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan tileResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- tileResult{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		payload, err := h.fetch(a, tctx, req)
		done <- tileResult{payload: payload, err: err}
	}()

	var res tileResult
	select {
	case res = <-done:
	case <-tctx.Done():
		res = tileResult{err: fmt.Errorf("tile deadline: %w", tctx.Err())}
	}
	if res.err != nil {
		a.logger.Warn("tile failed, serving empty payload",
			zap.String("tile", string(name)), zap.Error(res.err))
		return h.empty()
	}
	return res.payload
}
