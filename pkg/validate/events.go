package validate

import (
	"time"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/log"
)

// events emits the audit trail of one validation pass.
type events struct {
	logger log.Logger
	runID  string
	source string
}

func (ev *events) emit(e log.Event) {
	e.Timestamp = time.Now()
	e.RunID = ev.runID
	e.Source = ev.source
	ev.logger.Log(e)
}

func (ev *events) started(mode Mode, state string) {
	ev.emit(log.Event{
		Layer:    log.LayerValidation,
		Category: log.CategoryRun,
		Run:      &log.RunEvent{Phase: log.RunStarted, Mode: mode.String(), State: state},
	})
}

func (ev *events) finished(mode Mode, state string, violations int, d time.Duration) {
	ev.emit(log.Event{
		Layer:    log.LayerValidation,
		Category: log.CategoryRun,
		Run: &log.RunEvent{
			Phase:    log.RunFinished,
			Mode:     mode.String(),
			State:    state,
			Errors:   violations,
			Duration: &d,
		},
	})
}

func (ev *events) decision(path string, action log.Action, kind hash.Kind, reason string) {
	ev.emit(log.Event{
		Layer:    log.LayerValidation,
		Category: log.CategoryDecision,
		Decision: &log.DecisionEvent{Path: path, Action: action, Kind: kind.String(), Reason: reason},
	})
}

func (ev *events) rejected(e *errs.Error) {
	ev.emit(log.Event{
		Layer:    log.LayerValidation,
		Category: log.CategoryDecision,
		Decision: &log.DecisionEvent{Path: e.Path, Action: log.ActionRejected, Reason: e.Message},
	})
}

// schemaError records a defect of the schema found while validating.
func (ev *events) schemaError(e *errs.Error) {
	ev.emit(log.Event{
		Layer:    log.LayerSchema,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSchema,
			Message: e.Error(),
			Kind:    e.Kind.String(),
			Context: "default option",
		},
	})
}
