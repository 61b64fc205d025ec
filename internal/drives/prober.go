package drives

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vesaa/talondash/internal/command"
)

// Options configures a Prober.
type Options struct {
	LsblkPath      string
	SmartctlPath   string
	UseSudo        bool
	ProbeTimeout   time.Duration
	MaxConcurrency int
}

// Prober lists physical drives and resolves each one through its detail
// tiers. Drives are probed concurrently; tiers for one drive run in order.
type Prober struct {
	topology *Topology
	tiers    []Tier
	timeout  time.Duration
	limit    int
	logger   *zap.Logger
}

// NewProber wires the standard chain: lsblk topology, then smartctl, then the
// lsblk fallback.
func NewProber(runner command.Runner, opts Options, logger *zap.Logger) *Prober {
	return NewProberWithTiers(
		NewTopology(runner, opts.LsblkPath, logger),
		[]Tier{
			NewSmartTier(runner, opts.SmartctlPath, opts.UseSudo),
			NewLsblkTier(runner, opts.LsblkPath),
		},
		opts.ProbeTimeout,
		opts.MaxConcurrency,
		logger,
	)
}

// NewProberWithTiers builds a Prober from explicit parts.
func NewProberWithTiers(topology *Topology, tiers []Tier, timeout time.Duration, limit int, logger *zap.Logger) *Prober {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if limit <= 0 {
		limit = 4
	}
	return &Prober{
		topology: topology,
		tiers:    tiers,
		timeout:  timeout,
		limit:    limit,
		logger:   logger,
	}
}

// Drives returns every physical disk with the richest detail available. Only
// a failure of the block topology itself is returned as an error.
//
// When ctx carries a deadline, Drives answers shortly before it: drives whose
// tiers are still running are reported with their topology fields only.
func (p *Prober) Drives(ctx context.Context) ([]Drive, error) {
	ctx, cancel := answerBefore(ctx)
	defer cancel()

	tctx, tcancel := context.WithTimeout(ctx, p.timeout)
	disks, err := p.topology.Disks(tctx)
	tcancel()
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		resolved = make([]*Drive, len(disks))
		finished = make(chan struct{})
	)
	go func() {
		defer close(finished)
		var g errgroup.Group
		g.SetLimit(p.limit)
		for i, d := range disks {
			i, d := i, d
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				r := p.Resolve(ctx, d)
				mu.Lock()
				resolved[i] = &r
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-finished:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]Drive, len(disks))
	var pending []string
	for i, d := range disks {
		if resolved[i] != nil {
			out[i] = *resolved[i]
			continue
		}
		out[i] = d
		pending = append(pending, d.Path)
	}
	if len(pending) > 0 {
		p.logger.Warn("drive probes still running at deadline, reporting topology only",
			zap.Strings("devices", pending))
	}
	return out, nil
}

// answerBefore shortens ctx's deadline by a tenth of the remaining time, at
// most one second, leaving the caller room to use a partial answer.
func answerBefore(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	margin := min(time.Until(deadline)/10, time.Second)
	return context.WithDeadline(ctx, deadline.Add(-margin))
}

// Resolve walks the detail tiers for d until one answers.
func (p *Prober) Resolve(ctx context.Context, d Drive) Drive {
	for _, tier := range p.tiers {
		tctx, cancel := context.WithTimeout(ctx, p.timeout)
		out := tier.Probe(tctx, d)
		cancel()

		if out.OK() {
			d.merge(tier.Name(), out.Detail())
			return d
		}
		p.logger.Debug("drive tier unavailable",
			zap.String("device", d.Path),
			zap.String("tier", tier.Name()),
			zap.String("reason", out.Reason()))
	}
	p.logger.Info("no detail tier answered, reporting topology only", zap.String("device", d.Path))
	return d
}
