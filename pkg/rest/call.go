package rest

import (
	"context"
	"time"

	"github.com/looplab/fsm"
)

// Call states. A call is idle until its START is dispatched, fetching while
// the request is outstanding, and then done or failed.
const (
	StateIdle     = "idle"
	StateFetching = "fetching"
	StateDone     = "done"
	StateFailed   = "failed"
)

const (
	eventStart   = "start"
	eventSucceed = "succeed"
	eventFail    = "fail"
)

// call tracks one request through its lifecycle.
type call struct {
	id      string
	machine *fsm.FSM
	started time.Time
	elapsed time.Duration
}

func newCall(id string, m *metrics) *call {
	c := &call{id: id}
	c.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateFetching},
			{Name: eventSucceed, Src: []string{StateFetching}, Dst: StateDone},
			{Name: eventFail, Src: []string{StateIdle, StateFetching}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"enter_" + StateFetching: func(_ context.Context, _ *fsm.Event) {
				c.started = time.Now()
				m.inFlight.Inc()
			},
			"leave_" + StateFetching: func(_ context.Context, _ *fsm.Event) {
				c.elapsed = time.Since(c.started)
				m.inFlight.Dec()
			},
		},
	)
	return c
}

func (c *call) state() string {
	return c.machine.Current()
}

func (c *call) start(ctx context.Context) error {
	return c.machine.Event(ctx, eventStart)
}

func (c *call) succeed(ctx context.Context) error {
	return c.machine.Event(ctx, eventSucceed)
}

func (c *call) fail(ctx context.Context) error {
	return c.machine.Event(ctx, eventFail)
}
