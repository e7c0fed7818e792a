package cmd

import (
	"context"
	"errors"
	"time"

	"rpi-imager-diskwriter/diagnostics"
	"rpi-imager-diskwriter/fatcustom"
	"rpi-imager-diskwriter/helper"
	"rpi-imager-diskwriter/manifest"
	"rpi-imager-diskwriter/metrics"
	"rpi-imager-diskwriter/notify"
	"rpi-imager-diskwriter/types"
	"rpi-imager-diskwriter/verify"
	"rpi-imager-diskwriter/writeengine"
)

// dispatcher composes the write, customize, and verify engines into one
// helper.Dispatcher, recording each command's outcome to the diagnostics
// audit log, the completion notifier, and the session's metrics
// collector. None of those three side channels can fail a command: a
// diagnostics write error or notify publish error is logged by its sink
// and never returned to the caller (spec.md §6/§7's stance on this
// domain stack); those failures are not recorded in the metrics
// collector.
type dispatcher struct {
	engine     *writeengine.Engine
	customizer *fatcustom.Customizer
	verifier   *verify.Verifier

	diagnostics *diagnostics.Sink
	notify      *notify.Sink
	manifest    *manifest.Sink
	metrics     *metrics.Collector
}

func newDispatcher(engine *writeengine.Engine, customizer *fatcustom.Customizer, verifier *verify.Verifier, diagSink *diagnostics.Sink, notifySink *notify.Sink, manifestSink *manifest.Sink, collector *metrics.Collector) *dispatcher {
	return &dispatcher{
		engine:      engine,
		customizer:  customizer,
		verifier:    verifier,
		diagnostics: diagSink,
		notify:      notifySink,
		manifest:    manifestSink,
		metrics:     collector,
	}
}

var _ helper.Dispatcher = (*dispatcher)(nil)

func (d *dispatcher) Format(ctx context.Context, args []string, report helper.ProgressReporter) error {
	return d.run(ctx, string(types.VerbFormat), func() error { return d.engine.Format(ctx, args, report) })
}

func (d *dispatcher) Write(ctx context.Context, args []string, report helper.ProgressReporter) error {
	err := d.run(ctx, string(types.VerbWrite), func() error { return d.engine.Write(ctx, args, report) })
	if err == nil {
		if op := d.engine.LastOperation(); op != nil {
			d.metrics.AddBytesWritten(op.TotalBytes)
		}
	}
	return err
}

func (d *dispatcher) Customize(ctx context.Context, args []string, report helper.ProgressReporter) error {
	return d.run(ctx, string(types.VerbCustomize), func() error { return d.customizer.Customize(ctx, args, report) })
}

func (d *dispatcher) Verify(ctx context.Context, args []string, report helper.ProgressReporter) error {
	started := time.Now()
	err := d.run(ctx, string(types.VerbVerify), func() error { return d.verifier.Verify(ctx, args, report) })
	if err != nil {
		if errors.Is(err, verify.ErrHashMismatch) || errors.Is(err, verify.ErrFirstSectorChanged) {
			d.metrics.IncVerifyMismatch()
		}
		return err
	}
	if len(args) == 3 {
		if op := d.engine.LastOperation(); op != nil {
			d.manifest.Publish(ctx, &manifest.Record{
				SessionID:  d.metrics.Snapshot().SessionID,
				DevicePath: args[1],
				SourceHash: args[2],
				BytesTotal: op.TotalBytes,
				StartedAt:  started,
				FinishedAt: time.Now(),
			})
		}
	}
	return nil
}

// run wraps one dispatcher call with the command_received/command_completed
// diagnostics milestones, the completion notification, and the per-verb
// metrics counter, whatever the underlying engine call returns.
func (d *dispatcher) run(ctx context.Context, verb string, fn func() error) error {
	started := time.Now()
	d.diagnostics.Record(ctx, diagnostics.MilestoneCommandReceived, verb, "", "")

	err := fn()
	finished := time.Now()

	outcome := types.CompletionSuccess
	errorKind := ""
	if err != nil {
		outcome = types.CompletionFailure
		errorKind = err.Error()
	}

	d.metrics.IncCommand(verb, err == nil)
	d.diagnostics.Record(ctx, diagnostics.MilestoneCommandCompleted, verb, outcome, errorKind)
	d.notify.Publish(ctx, notify.NewEvent(d.metrics.Snapshot().SessionID, verb, outcome, started, finished, d.metrics.Snapshot().BytesWritten, errorKind))

	return err
}
