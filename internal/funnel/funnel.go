// Package funnel implements the candidate screening state machine.
//
// The engine is deterministic: given the persisted State, one canonical command and the
// collaborator responses, it returns the next State and the reply to send. It never
// persists anything itself.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/metalagman/coopfunnel/internal/assessment"
	"github.com/rs/zerolog/log"
)

// Deps are the external collaborators the engine consults.
type Deps struct {
	Positions PositionDirectory
	Leads     LeadLedger
	Coop      CoopInfo
	Links     LinkProvider
}

// Engine advances candidates through the funnel.
type Engine struct {
	positions PositionDirectory
	leads     LeadLedger
	coop      CoopInfo
	links     LinkProvider
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for lead timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine builds an engine over the given collaborators.
func NewEngine(deps Deps, opts ...Option) (*Engine, error) {
	if deps.Positions == nil {
		return nil, fmt.Errorf("position directory is required")
	}
	if deps.Leads == nil {
		return nil, fmt.Errorf("lead ledger is required")
	}
	if deps.Coop == nil {
		return nil, fmt.Errorf("coop info provider is required")
	}
	if deps.Links == nil {
		return nil, fmt.Errorf("link provider is required")
	}
	e := &Engine{
		positions: deps.Positions,
		leads:     deps.Leads,
		coop:      deps.Coop,
		links:     deps.Links,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Outcome is the result of one turn.
type Outcome struct {
	State       State
	Reply       string
	Selection   *Selection
	Lead        *Lead
	Transitions []Transition
}

type turn struct {
	ctx       context.Context
	m         *machine
	st        State
	replies   []string
	selection *Selection
	lead      *Lead
	// recorded is a lead already appended during this turn by another path.
	recorded *Lead
}

func (t *turn) say(msg string) {
	if msg = strings.TrimSpace(msg); msg != "" {
		t.replies = append(t.replies, msg)
	}
}

func (t *turn) move(event string) error {
	step, err := t.m.fire(t.ctx, event)
	if err != nil {
		return err
	}
	t.st.Step = step
	return nil
}

// Advance consumes one canonical command. On error the caller keeps the previous state:
// the outcome of a failed turn is never persisted.
func (e *Engine) Advance(ctx context.Context, st State, text string) (Outcome, error) {
	return e.advance(ctx, st, text, nil)
}

// AdvanceRecorded is Advance for a turn that already appended lead to the ledger.
// Steps that would record a lead reuse it instead of appending again.
func (e *Engine) AdvanceRecorded(ctx context.Context, st State, text string, lead *Lead) (Outcome, error) {
	return e.advance(ctx, st, text, lead)
}

func (e *Engine) advance(ctx context.Context, st State, text string, recorded *Lead) (Outcome, error) {
	st = st.clone()
	t := &turn{ctx: ctx, m: newMachine(st.Step), st: st, recorded: recorded}

	var err error
	if id, ok := ParseSelectCommand(text); ok {
		err = e.selectPosition(t, id)
	} else {
		err = e.dispatch(t, text)
	}
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		State:       t.st,
		Reply:       strings.Join(t.replies, "\n\n"),
		Selection:   t.selection,
		Lead:        t.lead,
		Transitions: t.m.transitions,
	}, nil
}

func (e *Engine) dispatch(t *turn, text string) error {
	switch t.st.Step {
	case StepNew:
		return e.greet(t, EventGreet)
	case StepGreeting:
		return e.collectCity(t, text)
	case StepCityCollected:
		return e.checkPositions(t)
	case StepPositionsChecked:
		positions, err := e.listOpen(t)
		if err != nil {
			return err
		}
		return e.afterPositions(t, positions)
	case StepPolicyPresented:
		return e.agreement(t, text)
	case StepRequirementsPending:
		return e.requirement(t, text)
	case StepRequirementsChecked:
		return e.afterRequirements(t)
	case StepAssessmentInProgress:
		return e.answer(t, text)
	case StepAssessmentScored:
		return e.afterScore(t)
	case StepPositionOffered:
		t.say(msgPickFromList)
		return nil
	case StepPositionSelected:
		return e.selectPosition(t, t.st.PositionID)
	case StepNoPositions:
		return e.interest(t, text)
	case StepComplete, StepPolicyDeclined, StepRequirementsMissing, StepNotApproved, StepClosed:
		return e.terminal(t, text)
	default:
		log.Warn().Str("step", string(t.st.Step)).Str("user_id", t.st.UserID).Msg("unknown funnel step, restarting")
		t.st = t.st.Restart()
		t.m = newMachine(StepNew)
		return e.greet(t, EventGreet)
	}
}

func (e *Engine) greet(t *turn, event string) error {
	p := e.presentation(t.ctx)
	if err := t.move(event); err != nil {
		return err
	}
	t.say(greeting(t.st.DisplayName, p))
	return nil
}

func (e *Engine) collectCity(t *turn, text string) error {
	city := strings.TrimSpace(text)
	if city == "" || IsPlaceholder(city) || ParseAnswer(city) != AnswerUnknown {
		t.say(msgCityAgain)
		return nil
	}
	t.st.City = city
	if err := t.move(EventCollectCity); err != nil {
		return err
	}
	return e.checkPositions(t)
}

func (e *Engine) checkPositions(t *turn) error {
	positions, err := e.listOpen(t)
	if err != nil {
		return err
	}
	if err := t.move(EventCheckPositions); err != nil {
		return err
	}
	return e.afterPositions(t, positions)
}

func (e *Engine) afterPositions(t *turn, positions []Position) error {
	if len(positions) == 0 {
		if err := t.move(EventNoPositions); err != nil {
			return err
		}
		t.say(noPositions(t.st.City))
		return nil
	}
	p := e.presentation(t.ctx)
	if err := t.move(EventPresentPolicy); err != nil {
		return err
	}
	t.say(policyPresentation(t.st.City, len(positions), p))
	return nil
}

func (e *Engine) agreement(t *turn, text string) error {
	switch ParseAnswer(text) {
	case AnswerYes:
		t.st.Requirements = nil
		if err := t.move(EventAgree); err != nil {
			return err
		}
		t.say(requirementPrompt(0))
	case AnswerNo:
		if err := t.move(EventDecline); err != nil {
			return err
		}
		t.say(msgDeclined)
	default:
		t.say(msgClarifyAgreement)
	}
	return nil
}

func (e *Engine) requirement(t *turn, text string) error {
	if i := len(t.st.Requirements); i < len(requirementPrompts) {
		a := ParseAnswer(text)
		if a == AnswerUnknown {
			t.say("Não entendi. " + requirementPrompt(i))
			return nil
		}
		t.st.Requirements = append(t.st.Requirements, a == AnswerYes)
		if i+1 < len(requirementPrompts) {
			t.say(requirementPrompt(i + 1))
			return nil
		}
	}
	if err := t.move(EventCheckRequirements); err != nil {
		return err
	}
	return e.afterRequirements(t)
}

func (e *Engine) afterRequirements(t *turn) error {
	have := make([]bool, len(requirementPrompts))
	copy(have, t.st.Requirements)
	res := assessment.CheckRequirements(have[0], have[1], have[2])
	if !res.OK {
		if err := t.move(EventMissing); err != nil {
			return err
		}
		t.say(requirementsMissing(res.Missing))
		return nil
	}
	t.st.Answers = map[string]string{}
	if err := t.move(EventBeginAssessment); err != nil {
		return err
	}
	t.say(msgAssessmentIntro)
	t.say(questionPrompt(0))
	return nil
}

func nextQuestion(answers map[string]string) int {
	for i, q := range assessment.Questions {
		if _, ok := answers[q.ID]; !ok {
			return i
		}
	}
	return len(assessment.Questions)
}

func (e *Engine) answer(t *turn, text string) error {
	if i := nextQuestion(t.st.Answers); i < len(assessment.Questions) {
		if !assessment.Recognized(text) {
			t.say(msgClarifyAnswer + " " + questionPrompt(i))
			return nil
		}
		if t.st.Answers == nil {
			t.st.Answers = map[string]string{}
		}
		t.st.Answers[assessment.Questions[i].ID] = assessment.Normalize(text)
		if next := nextQuestion(t.st.Answers); next < len(assessment.Questions) {
			t.say(questionPrompt(next))
			return nil
		}
	}
	if err := t.move(EventScore); err != nil {
		return err
	}
	return e.afterScore(t)
}

func (e *Engine) afterScore(t *turn) error {
	res := assessment.Score(t.st.Answers)
	passed, total := res.Passed, res.Total
	t.st.Approved = &passed
	t.st.Score = &total

	if !passed {
		if err := t.move(EventFail); err != nil {
			return err
		}
		t.say(msgNotApproved)
		return nil
	}

	positions, err := e.listOpen(t)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		if err := t.move(EventNoPositions); err != nil {
			return err
		}
		t.say(noPositions(t.st.City))
		return nil
	}
	t.selection = SelectionFor(positions)
	if err := t.move(EventOffer); err != nil {
		return err
	}
	t.say(msgApproved)
	return nil
}

func (e *Engine) selectPosition(t *turn, id string) error {
	switch {
	case t.st.Step == StepComplete:
		t.say(completeReminder(e.link(t.ctx)))
		return nil
	case !t.st.IsApproved():
		t.say(msgNotYetApproved)
		if t.st.Step == StepNew {
			return e.greet(t, EventGreet)
		}
		t.say(Reprompt(t.st))
		return nil
	}

	pos, err := e.positions.Get(t.ctx, id)
	if errors.Is(err, ErrPositionNotFound) || (err == nil && !pos.Open()) {
		t.say(msgUnknownPosition)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get position %q: %w", id, err)
	}

	t.st.PositionID = pos.ID
	if t.st.Step != StepPositionSelected {
		if err := t.move(EventSelect); err != nil {
			return err
		}
	}
	return e.complete(t, pos)
}

func (e *Engine) complete(t *turn, pos Position) error {
	notes := ""
	if t.st.Score != nil {
		notes = fmt.Sprintf("avaliação: %d/10", *t.st.Score)
	}
	lead := Lead{
		CreatedAt:   e.now().UTC(),
		Name:        t.st.DisplayName,
		Contact:     t.st.UserID,
		City:        t.st.City,
		Approved:    true,
		PositionID:  pos.ID,
		Employer:    pos.Employer,
		Shift:       pos.Shift,
		DeliveryFee: pos.DeliveryFee,
		Notes:       notes,
	}
	if err := e.record(t, lead); err != nil {
		return fmt.Errorf("append lead: %w", err)
	}

	link := e.link(t.ctx)
	if err := t.move(EventComplete); err != nil {
		return err
	}
	t.say(positionConfirmed(pos, link))
	return nil
}

func (e *Engine) interest(t *turn, text string) error {
	switch ParseAnswer(text) {
	case AnswerYes:
		lead := Lead{
			CreatedAt: e.now().UTC(),
			Name:      t.st.DisplayName,
			Contact:   t.st.UserID,
			City:      t.st.City,
			Approved:  t.st.IsApproved(),
			Notes:     "interesse registrado: sem vagas na cidade",
		}
		if err := e.record(t, lead); err != nil {
			return fmt.Errorf("append interest lead: %w", err)
		}
		if err := t.move(EventCloseInterest); err != nil {
			return err
		}
		t.say(msgInterestSaved)
	case AnswerNo:
		if err := t.move(EventCloseInterest); err != nil {
			return err
		}
		t.say(msgInterestSkipped)
	default:
		t.say(msgClarifyInterest)
	}
	return nil
}

func (e *Engine) record(t *turn, lead Lead) error {
	if t.recorded != nil {
		t.lead = t.recorded
		return nil
	}
	if err := e.leads.Append(t.ctx, lead); err != nil {
		return err
	}
	t.lead = &lead
	return nil
}

func (e *Engine) terminal(t *turn, text string) error {
	if IsRestart(text) {
		t.st = t.st.Restart()
		t.st.Step = t.m.current()
		return e.greet(t, EventRestart)
	}
	if t.st.Step == StepComplete {
		t.say(completeReminder(e.link(t.ctx)))
		return nil
	}
	t.say(closedReminder())
	return nil
}

func (e *Engine) listOpen(t *turn) ([]Position, error) {
	positions, err := e.positions.ListOpen(t.ctx, t.st.City)
	if err != nil {
		return nil, fmt.Errorf("list open positions in %q: %w", t.st.City, err)
	}
	return positions, nil
}

func (e *Engine) presentation(ctx context.Context) Presentation {
	p, err := e.coop.Presentation(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("coop presentation unavailable")
		return Presentation{Summary: msgCoopUnavailable}
	}
	return p
}

func (e *Engine) link(ctx context.Context) string {
	link, err := e.links.ApplicationLink(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("application link unavailable")
		return ""
	}
	return link
}

// Reprompt returns the question the funnel is waiting on at the state's step.
func Reprompt(st State) string {
	switch st.Step {
	case StepNew, StepGreeting:
		return msgAskCity
	case StepPolicyPresented:
		return msgAskAgreement
	case StepRequirementsPending:
		if i := len(st.Requirements); i < len(requirementPrompts) {
			return requirementPrompt(i)
		}
	case StepAssessmentInProgress:
		if i := nextQuestion(st.Answers); i < len(assessment.Questions) {
			return questionPrompt(i)
		}
	case StepPositionOffered:
		return msgPickFromList
	case StepNoPositions:
		return msgClarifyInterest
	case StepComplete, StepPolicyDeclined, StepRequirementsMissing, StepNotApproved, StepClosed:
		return msgRestartHint
	}
	return ""
}

func (s State) clone() State {
	out := s
	if s.Approved != nil {
		v := *s.Approved
		out.Approved = &v
	}
	if s.Score != nil {
		v := *s.Score
		out.Score = &v
	}
	if s.Requirements != nil {
		out.Requirements = append([]bool(nil), s.Requirements...)
	}
	if s.Answers != nil {
		out.Answers = make(map[string]string, len(s.Answers))
		for k, v := range s.Answers {
			out.Answers[k] = v
		}
	}
	return out
}
