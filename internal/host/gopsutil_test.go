package host

import (
	"context"
	"os"
	"testing"

	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstIPv4(t *testing.T) {
	addrs := psnet.InterfaceAddrList{
		{Addr: "fe80::1/64"},
		{Addr: "192.168.1.20/24"},
		{Addr: "10.0.0.1/8"},
	}
	assert.Equal(t, "192.168.1.20", firstIPv4(addrs))
	assert.Equal(t, "", firstIPv4(psnet.InterfaceAddrList{{Addr: "::1/128"}}))
	assert.Equal(t, "172.16.0.9", firstIPv4(psnet.InterfaceAddrList{{Addr: "172.16.0.9"}}))
	assert.Equal(t, "", firstIPv4(nil))
}

func TestHasFlag(t *testing.T) {
	assert.True(t, hasFlag([]string{"up", "loopback"}, "loopback"))
	assert.False(t, hasFlag([]string{"up", "broadcast"}, "loopback"))
}

func handleFor(g *Gopsutil, pid int32) *process.Process {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, h := range g.handles {
		if key.pid == pid {
			return h
		}
	}
	return nil
}

func TestProcessesKeepHandlesBetweenCalls(t *testing.T) {
	g := NewGopsutil()
	self := int32(os.Getpid())

	procs, err := g.Processes(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, procs)
	first := handleFor(g, self)
	require.NotNil(t, first)

	_, err = g.Processes(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, handleFor(g, self))
}
