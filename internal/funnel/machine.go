package funnel

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// ErrIllegalTransition signals a defect in the step handlers.
var ErrIllegalTransition = errors.New("illegal funnel transition")

// Funnel events.
const (
	EventGreet             = "greet"
	EventRestart           = "restart"
	EventCollectCity       = "collect_city"
	EventCheckPositions    = "check_positions"
	EventPresentPolicy     = "present_policy"
	EventNoPositions       = "no_positions"
	EventAgree             = "agree"
	EventDecline           = "decline"
	EventCheckRequirements = "check_requirements"
	EventMissing           = "requirements_missing"
	EventBeginAssessment   = "begin_assessment"
	EventScore             = "score"
	EventFail              = "fail"
	EventOffer             = "offer_positions"
	EventSelect            = "select_position"
	EventComplete          = "complete"
	EventCloseInterest     = "close_interest"
)

// Transition records one state change.
type Transition struct {
	From  Step   `json:"from"`
	To    Step   `json:"to"`
	Event string `json:"event"`
}

func steps(in ...Step) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func allExcept(skip Step) []Step {
	out := make([]Step, 0, len(AllSteps))
	for _, s := range AllSteps {
		if s != skip {
			out = append(out, s)
		}
	}
	return out
}

var transitionTable = fsm.Events{
	{Name: EventGreet, Src: steps(StepNew), Dst: string(StepGreeting)},
	{Name: EventRestart, Src: steps(StepComplete, StepPolicyDeclined, StepRequirementsMissing, StepNotApproved, StepClosed), Dst: string(StepGreeting)},
	{Name: EventCollectCity, Src: steps(StepGreeting), Dst: string(StepCityCollected)},
	{Name: EventCheckPositions, Src: steps(StepCityCollected), Dst: string(StepPositionsChecked)},
	{Name: EventPresentPolicy, Src: steps(StepPositionsChecked), Dst: string(StepPolicyPresented)},
	{Name: EventNoPositions, Src: steps(StepPositionsChecked, StepAssessmentScored), Dst: string(StepNoPositions)},
	{Name: EventAgree, Src: steps(StepPolicyPresented), Dst: string(StepRequirementsPending)},
	{Name: EventDecline, Src: steps(StepPolicyPresented), Dst: string(StepPolicyDeclined)},
	{Name: EventCheckRequirements, Src: steps(StepRequirementsPending), Dst: string(StepRequirementsChecked)},
	{Name: EventMissing, Src: steps(StepRequirementsChecked), Dst: string(StepRequirementsMissing)},
	{Name: EventBeginAssessment, Src: steps(StepRequirementsChecked), Dst: string(StepAssessmentInProgress)},
	{Name: EventScore, Src: steps(StepAssessmentInProgress), Dst: string(StepAssessmentScored)},
	{Name: EventFail, Src: steps(StepAssessmentScored), Dst: string(StepNotApproved)},
	{Name: EventOffer, Src: steps(StepAssessmentScored), Dst: string(StepPositionOffered)},
	{Name: EventSelect, Src: steps(allExcept(StepPositionSelected)...), Dst: string(StepPositionSelected)},
	{Name: EventComplete, Src: steps(StepPositionSelected), Dst: string(StepComplete)},
	{Name: EventCloseInterest, Src: steps(StepNoPositions), Dst: string(StepClosed)},
}

// machine wraps a per-turn fsm seeded with the persisted step.
type machine struct {
	fsm         *fsm.FSM
	transitions []Transition
}

func newMachine(from Step) *machine {
	m := &machine{}
	m.fsm = fsm.NewFSM(string(from), transitionTable, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			m.transitions = append(m.transitions, Transition{From: Step(e.Src), To: Step(e.Dst), Event: e.Event})
		},
	})
	return m
}

func (m *machine) current() Step {
	return Step(m.fsm.Current())
}

func (m *machine) fire(ctx context.Context, event string) (Step, error) {
	from := m.current()
	if err := m.fsm.Event(ctx, event); err != nil {
		return from, fmt.Errorf("%w: %s from %q: %v", ErrIllegalTransition, event, from, err)
	}
	return m.current(), nil
}

// Next returns the step reached by firing event from the given step.
func Next(from Step, event string) (Step, error) {
	return newMachine(from).fire(context.Background(), event)
}
