package format

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vesaa/talondash/internal/counter"
)

func TestBytes(t *testing.T) {
	cases := map[uint64]string{
		0:                    "0 Bytes",
		1:                    "1 Bytes",
		1023:                 "1023 Bytes",
		1024:                 "1 KB",
		1536:                 "1.5 KB",
		1100:                 "1.07 KB",
		1048575:              "1024 KB",
		1048576:              "1 MB",
		1073741824:           "1 GB",
		500107862016:         "465.76 GB",
		1099511627776:        "1 TB",
		2 * 1125899906842624: "2048 TB",
	}
	for in, want := range cases {
		assert.Equal(t, want, Bytes(in), "Bytes(%d)", in)
	}
}

func TestUptime(t *testing.T) {
	cases := map[uint64]string{
		0:           "0s",
		59:          "59s",
		60:          "1m",
		61:          "1m 1s",
		3600:        "1h",
		3661:        "1h 1m 1s",
		86400:       "1d",
		90061:       "1d 1h 1m 1s",
		172800 + 30: "2d 30s",
	}
	for in, want := range cases {
		assert.Equal(t, want, Uptime(in), "Uptime(%d)", in)
	}
}

func TestKBps(t *testing.T) {
	assert.Equal(t, "N/A", KBps(counter.Unavailable))
	assert.Equal(t, "0.00", KBps(counter.Throughput{KBps: 0, Available: true}))
	assert.Equal(t, "12.35", KBps(counter.Throughput{KBps: 12.345678, Available: true}))
}

func TestCelsius(t *testing.T) {
	assert.Equal(t, "45.0", Celsius(45000))
	assert.Equal(t, "38.5", Celsius(38500))
	assert.Equal(t, "-5.2", Celsius(-5200))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "12.50", Percent(12.5))
}
