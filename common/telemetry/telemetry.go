// Package telemetry exposes the pprof listener and the duration hooks
// the services record compile timings through.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/platewise/mealplanner/common/logger"
)

// Telemetry serves pprof on a localhost-only port and turns duration
// samples into debug log lines
type Telemetry struct {
	log       *logger.Logger
	pprofAddr string
}

// New creates the telemetry component. The pprof listener binds to
// localhost so profiles never leave the host.
func New(pprofPort int, log *logger.Logger) *Telemetry {
	return &Telemetry{
		log:       log,
		pprofAddr: fmt.Sprintf("localhost:%d", pprofPort),
	}
}

// Start launches the pprof server in the background
func (t *Telemetry) Start(ctx context.Context) error {
	go func() {
		t.log.Info("pprof server starting", "addr", t.pprofAddr)
		if err := http.ListenAndServe(t.pprofAddr, nil); err != nil {
			t.log.Error("pprof server error", "error", err)
		}
	}()

	return nil
}

// RecordDuration logs how long an operation took, measured from start
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", time.Since(start).Milliseconds())
}
