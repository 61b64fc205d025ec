package drives

import (
	"context"
	"fmt"
)

// Tier is one ranked strategy for learning about a drive.
type Tier interface {
	Name() string
	Probe(ctx context.Context, d Drive) Outcome
}

// Outcome is the tagged result of a tier: either a Detail or the reason the
// tier could not answer.
type Outcome struct {
	detail Detail
	reason string
	ok     bool
}

// Success wraps a tier's findings.
func Success(d Detail) Outcome {
	return Outcome{detail: d, ok: true}
}

// Unavailable records why a tier produced nothing.
func Unavailable(format string, args ...any) Outcome {
	return Outcome{reason: fmt.Sprintf(format, args...)}
}

// OK reports whether the tier answered.
func (o Outcome) OK() bool { return o.ok }

// Detail returns the findings of a successful tier.
func (o Outcome) Detail() Detail { return o.detail }

// Reason returns why an unavailable tier failed.
func (o Outcome) Reason() string { return o.reason }
