package specstore

import (
	"context"
	"strings"
	"time"

	"github.com/synapse-sh/synapse/internal/specmodel"
	"github.com/synapse-sh/synapse/internal/tools"
)

// GeneratorTimeoutMS is the process-wide ceiling on generator execution time
// (spec.md §4.3: "Total time bounded by min(generator.timeout_ms,
// GENERATOR_TIMEOUT_MS)").
const GeneratorTimeoutMS = 2000

// runGenerator executes gen.Command with cwd set to dir, splits stdout on
// gen.SplitOn, trims, drops empty lines, and strips gen.StripPrefix per
// line. Any subprocess error or timeout yields an empty slice rather than
// propagating an error — generator failures never poison the request path
// (spec.md §4.12).
func runGenerator(ctx context.Context, gen specmodel.GeneratorSpec, dir string) []string {
	gen = gen.Normalized()
	timeout := time.Duration(gen.TimeoutMS) * time.Millisecond
	if ceiling := GeneratorTimeoutMS * time.Millisecond; timeout > ceiling {
		timeout = ceiling
	}

	stdout, _, err := tools.RunShellIn(ctx, dir, gen.Command, timeout)
	if err != nil {
		return nil
	}

	var out []string
	for _, line := range strings.Split(stdout, gen.SplitOn) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if gen.StripPrefix != "" {
			line = strings.TrimPrefix(line, gen.StripPrefix)
		}
		out = append(out, line)
	}
	return out
}
