package counter

// Throughput is a rate in KiB per second. Available is false when no rate
// could be derived (no baseline yet, or a non-positive time delta).
type Throughput struct {
	KBps      float64
	Available bool
}

// Unavailable is the zero Throughput.
var Unavailable = Throughput{}

// Rate is the upload/download throughput of one interface between two polls.
type Rate struct {
	Upload   Throughput
	Download Throughput
}

// Compute derives the throughput between prior and current. A nil prior means
// current is the first observation.
func Compute(prior *Sample, current Sample) Rate {
	if prior == nil {
		return Rate{Upload: Unavailable, Download: Unavailable}
	}

	seconds := current.ObservedAt.Sub(prior.ObservedAt).Seconds()
	if seconds <= 0 {
		return Rate{Upload: Unavailable, Download: Unavailable}
	}

	return Rate{
		Upload:   perSecond(current.TxBytes, prior.TxBytes, seconds),
		Download: perSecond(current.RxBytes, prior.RxBytes, seconds),
	}
}

// RecordRate swaps the sample for key into s and computes the rate against the
// previous one in a single step.
func (s *Store) RecordRate(current Sample) Rate {
	prior, ok := s.RecordAndSwap(current.Key, current.RxBytes, current.TxBytes, current.ObservedAt)
	if !ok {
		return Compute(nil, current)
	}
	return Compute(&prior, current)
}

func perSecond(cur, prev uint64, seconds float64) Throughput {
	if cur < prev {
		// counter reset (interface restart, reboot)
		return Throughput{KBps: 0, Available: true}
	}
	return Throughput{
		KBps:      float64(cur-prev) / seconds / 1024,
		Available: true,
	}
}
