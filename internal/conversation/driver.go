// Package conversation runs one inbound message through a driver and delivers the reply.
package conversation

import (
	"context"
	"fmt"

	"github.com/metalagman/coopfunnel/internal/funnel"
)

// Driver names.
const (
	DriverDeterministic = "deterministic"
	DriverADK           = "adk"
)

// Turn is one canonical inbound message with the user's persisted state.
type Turn struct {
	UserID      string
	DisplayName string
	Text        string
	State       funnel.State
}

// Result is what a driver produced for a turn.
type Result struct {
	State       funnel.State
	Reply       string
	Selection   *funnel.Selection
	Lead        *funnel.Lead
	Transitions []funnel.Transition
}

// Driver turns canonical text plus durable state into the next state and a reply.
type Driver interface {
	Name() string
	Drive(ctx context.Context, turn Turn) (Result, error)
}

// Deterministic drives the funnel engine directly, without a model.
type Deterministic struct {
	engine *funnel.Engine
}

// NewDeterministic returns a driver over engine.
func NewDeterministic(engine *funnel.Engine) (*Deterministic, error) {
	if engine == nil {
		return nil, fmt.Errorf("funnel engine is required")
	}
	return &Deterministic{engine: engine}, nil
}

// Name implements Driver.
func (d *Deterministic) Name() string { return DriverDeterministic }

// Drive implements Driver.
func (d *Deterministic) Drive(ctx context.Context, turn Turn) (Result, error) {
	out, err := d.engine.Advance(ctx, turn.State, turn.Text)
	if err != nil {
		return Result{}, err
	}
	return fromOutcome(out), nil
}

func fromOutcome(out funnel.Outcome) Result {
	return Result{
		State:       out.State,
		Reply:       out.Reply,
		Selection:   out.Selection,
		Lead:        out.Lead,
		Transitions: out.Transitions,
	}
}
