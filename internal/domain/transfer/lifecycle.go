package transfer

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Phase is a state of the fetch lifecycle.
type Phase string

// Fetch lifecycle phases. A fetch moves idle -> staging -> verifying ->
// committing -> committed, or to aborted from any working phase.
const (
	PhaseIdle       Phase = stateIdle
	PhaseStaging    Phase = stateStaging
	PhaseVerifying  Phase = stateVerifying
	PhaseCommitting Phase = stateCommitting
	PhaseCommitted  Phase = stateCommitted
	PhaseAborted    Phase = stateAborted
)

const (
	stateIdle       = "idle"
	stateStaging    = "staging"
	stateVerifying  = "verifying"
	stateCommitting = "committing"
	stateCommitted  = "committed"
	stateAborted    = "aborted"
)

// Lifecycle events.
const (
	eventStage     = "STAGE"
	eventStaged    = "STAGED"
	eventVerified  = "VERIFIED"
	eventCommitted = "COMMITTED"
	eventFail      = "FAIL"
)

// fetchContext is the statekit context of one fetch.
type fetchContext struct {
	Plugin  string
	Failure error
}

// lifecycle drives one fetch through its phases and reports each entered
// phase to the hook.
type lifecycle struct {
	interp  *statekit.Interpreter[fetchContext]
	hook    func(Phase)
	failure error
}

func newLifecycle(pluginKey string, hook func(Phase)) (*lifecycle, error) {
	l := &lifecycle{hook: hook}

	machine, err := statekit.NewMachine[fetchContext]("afm-fetch").
		WithInitial(stateIdle).
		WithContext(fetchContext{Plugin: pluginKey}).
		WithAction("recordFailure", func(_ *fetchContext, event statekit.Event) {
			if err, ok := event.Payload.(error); ok {
				l.failure = err
			}
		}).
		State(stateIdle).
		On(eventStage).Target(stateStaging).Done().
		State(stateStaging).
		On(eventStaged).Target(stateVerifying).
		On(eventFail).Target(stateAborted).Done().
		State(stateVerifying).
		On(eventVerified).Target(stateCommitting).
		On(eventFail).Target(stateAborted).Done().
		State(stateCommitting).
		On(eventCommitted).Target(stateCommitted).
		On(eventFail).Target(stateAborted).Done().
		State(stateCommitted).Done().
		State(stateAborted).
		OnEntry("recordFailure").Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch lifecycle: %w", err)
	}

	l.interp = statekit.NewInterpreter(machine)
	l.interp.Start()
	l.notify()
	return l, nil
}

func (l *lifecycle) phase() Phase {
	return Phase(l.interp.State().Value)
}

func (l *lifecycle) notify() {
	if l.hook != nil {
		l.hook(l.phase())
	}
}

func (l *lifecycle) send(event string) {
	before := l.phase()
	l.interp.Send(statekit.Event{Type: statekit.EventType(event)})
	if l.phase() != before {
		l.notify()
	}
}

// fail aborts the fetch and returns err for convenient tail calls.
func (l *lifecycle) fail(err error) error {
	before := l.phase()
	l.interp.Send(statekit.Event{Type: eventFail, Payload: err})
	if l.phase() != before {
		l.notify()
	}
	return err
}

func (l *lifecycle) stop() {
	l.interp.Stop()
}
