package tiles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vesaa/talondash/internal/command"
	"github.com/vesaa/talondash/internal/format"
)

// DiskUsageReader lists mounted filesystems with usage.
type DiskUsageReader interface {
	Usage(ctx context.Context) ([]DiskTile, error)
}

// Df reads filesystem usage from df(1), skipping pseudo and overlay mounts.
type Df struct {
	runner command.Runner
	path   string
}

// NewDf returns a Df that runs the binary at path ("df" when empty).
func NewDf(runner command.Runner, path string) *Df {
	if path == "" {
		path = "df"
	}
	return &Df{runner: runner, path: path}
}

var dfArgs = []string{
	"--block-size=1K",
	"-x", "squashfs",
	"-x", "tmpfs",
	"-x", "devtmpfs",
	"-x", "overlay",
	"--output=target,pcent,size",
}

// Usage runs df and parses its table. df exits non-zero when a single mount
// cannot be read but still prints the others, so that table is used too.
func (d *Df) Usage(ctx context.Context) ([]DiskTile, error) {
	out, err := d.runner.Run(ctx, d.path, dfArgs...)
	var exitErr *command.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("df: %w", err)
	}

	disks, parseErr := parseDf(string(out))
	if parseErr != nil {
		if err != nil {
			return nil, fmt.Errorf("df: %w; %w", err, parseErr)
		}
		return nil, parseErr
	}
	if err != nil && len(disks) == 0 {
		return nil, fmt.Errorf("df: %w", err)
	}
	return disks, nil
}

// parseDf reads "Mounted on  Use%  1K-blocks" rows. The mount point may hold
// spaces, so the last two columns are taken from the right.
func parseDf(out string) ([]DiskTile, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 1 || lines[0] == "" {
		return nil, fmt.Errorf("df: empty output")
	}
	disks := make([]DiskTile, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		n := len(fields)
		blocks, err := strconv.ParseUint(fields[n-1], 10, 64)
		if err != nil {
			continue
		}
		disks = append(disks, DiskTile{
			Filesystem: strings.Join(fields[:n-2], " "),
			Used:       fields[n-2],
			Size:       format.Bytes(blocks * 1024),
		})
	}
	return disks, nil
}
