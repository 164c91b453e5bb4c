// Package sim drives a built gspn.Net through fire control until every
// subscribed collector has what it needs, the way the teacher corpus's
// cmd/* packages drive a context-scoped loop to completion.
package sim

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gspn"
	"gspn/meter"
	"gspn/sched"
)

// Run drives net to completion: it starts the net, then repeatedly calls
// FireNext until every collector in collectors reports it has enough rows,
// the net runs out of enabled transitions, or ctx is cancelled. ctx is
// checked once per loop iteration; firing itself has no suspension points.
func Run(ctx context.Context, net *gspn.Net, collectors []meter.Collector, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := net.Start(); err != nil {
		return fmt.Errorf("sim: starting net %q: %w", net.Name, err)
	}

	firings := 0
	haltReason := "collectors satisfied"

loop:
	for needMoreObservations(collectors) {
		select {
		case <-ctx.Done():
			haltReason = "context cancelled"
			break loop
		default:
		}

		if err := net.FireNext(); err != nil {
			if errors.Is(err, sched.ErrNoEnabledTransition) {
				haltReason = "no enabled transition"
				break loop
			}
			return fmt.Errorf("sim: firing net %q: %w", net.Name, err)
		}
		firings++
	}

	logger.Info("simulation halted",
		zap.String("net", net.Name),
		zap.Int("firings", firings),
		zap.Float64("time", net.CurrentTime()),
		zap.String("reason", haltReason),
	)
	return nil
}

// needMoreObservations mirrors "any(c.needMoreObservations() for c in
// collectors)": with no subscribed collectors, there is nothing to wait
// for and the driver halts without firing anything.
func needMoreObservations(collectors []meter.Collector) bool {
	for _, c := range collectors {
		if c.NeedMoreObservations() {
			return true
		}
	}
	return false
}
