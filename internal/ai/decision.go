package ai

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// textDecision runs a single-word classification against the generator and
// maps the reply onto a boolean. Any failure (error, timeout, a reply the
// parser does not recognize) resolves to the fallback value so one flaky
// classification never sinks a whole turn.
type textDecision struct {
	name     string
	gen      IGenerator
	timeout  time.Duration
	parse    func(reply string) (value bool, ok bool)
	fallback bool
}

func (d *textDecision) Decide(ctx context.Context, prompt string) bool {
	if d.gen == nil {
		return d.fallback
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	reply, err := d.gen.Generate(ctx, prompt)
	if err != nil {
		logutil.GetLogger(ctx).Warn("decision generation failed, using fallback",
			zap.String("decision", d.name), zap.Bool("fallback", d.fallback), zap.Error(err))
		return d.fallback
	}
	value, ok := d.parse(strings.ToUpper(strings.TrimSpace(reply)))
	if !ok {
		logutil.GetLogger(ctx).Warn("decision reply not recognized, using fallback",
			zap.String("decision", d.name), zap.String("reply", truncate(reply, 120)), zap.Bool("fallback", d.fallback))
		return d.fallback
	}
	return value
}

// parseLegal returns true when the reply marks the message as non-legal.
func parseLegal(reply string) (bool, bool) {
	if strings.Contains(reply, "NON_LEGAL") || strings.Contains(reply, "NON-LEGAL") {
		return true, true
	}
	if strings.Contains(reply, "LEGAL") {
		return false, true
	}
	return false, false
}

// parseIndependent returns true when the reply marks the message as
// independent. INDEPENDENT must be checked first since it contains
// DEPENDENT as a substring.
func parseIndependent(reply string) (bool, bool) {
	if strings.Contains(reply, "INDEPENDENT") {
		return true, true
	}
	if strings.Contains(reply, "DEPENDENT") {
		return false, true
	}
	return false, false
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
