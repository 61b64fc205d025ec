package drives

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/vesaa/talondash/internal/command"
)

var pairPattern = regexp.MustCompile(`([A-Z][A-Z0-9:_-]*)="((?:[^"\\]|\\.)*)"`)

// LsblkTier is the unprivileged last resort: model, size and device state
// from lsblk's key="value" output. It never learns health or temperature.
type LsblkTier struct {
	runner command.Runner
	path   string
}

// NewLsblkTier returns the minimal fallback tier.
func NewLsblkTier(runner command.Runner, lsblkPath string) *LsblkTier {
	if lsblkPath == "" {
		lsblkPath = "lsblk"
	}
	return &LsblkTier{runner: runner, path: lsblkPath}
}

func (t *LsblkTier) Name() string { return "lsblk" }

func (t *LsblkTier) Probe(ctx context.Context, d Drive) Outcome {
	out, err := t.runner.Run(ctx, t.path, "-ndb", "-P", "-o", "MODEL,SIZE,STATE", d.Path)
	if err != nil {
		return Unavailable("%v", err)
	}

	pairs := parsePairs(out)
	if len(pairs) == 0 {
		return Unavailable("no key/value output")
	}

	det := Detail{
		Precedence: Fill,
		Model:      strPtr(pairs["MODEL"]),
		PowerState: strPtr(pairs["STATE"]),
	}
	if raw := strings.TrimSpace(pairs["SIZE"]); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			det.SizeBytes = &v
		}
	}
	if det.Model == nil && det.SizeBytes == nil && det.PowerState == nil {
		return Unavailable("no model, size or state reported")
	}
	return Success(det)
}

// parsePairs reads the first line of lsblk -P output into a map.
func parsePairs(out []byte) map[string]string {
	line, _, _ := bytes.Cut(bytes.TrimSpace(out), []byte("\n"))
	pairs := make(map[string]string)
	for _, m := range pairPattern.FindAllSubmatch(line, -1) {
		pairs[string(m[1])] = unescape(string(m[2]))
	}
	return pairs
}

// unescape decodes the \xHH sequences lsblk uses for unsafe characters.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && s[i+1] == 'x' {
			if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
