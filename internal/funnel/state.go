package funnel

import (
	"encoding/json"
	"strings"
)

// DurablePrefix marks session keys that survive across turns.
const DurablePrefix = "user:"

// Step is a funnel stage.
type Step string

const (
	StepNew                  Step = ""
	StepGreeting             Step = "greeting"
	StepCityCollected        Step = "city_collected"
	StepPositionsChecked     Step = "positions_checked"
	StepPolicyPresented      Step = "policy_presented"
	StepRequirementsPending  Step = "requirements_pending"
	StepRequirementsChecked  Step = "requirements_checked"
	StepAssessmentInProgress Step = "assessment_in_progress"
	StepAssessmentScored     Step = "assessment_scored"
	StepPositionOffered      Step = "position_offered"
	StepPositionSelected     Step = "position_selected"
	StepComplete             Step = "complete"

	StepNoPositions         Step = "no_positions"
	StepPolicyDeclined      Step = "policy_declined"
	StepRequirementsMissing Step = "requirements_missing"
	StepNotApproved         Step = "not_approved"
	StepClosed              Step = "closed"
)

// AllSteps lists every step, including the initial empty one.
var AllSteps = []Step{
	StepNew, StepGreeting, StepCityCollected, StepPositionsChecked, StepPolicyPresented,
	StepRequirementsPending, StepRequirementsChecked, StepAssessmentInProgress, StepAssessmentScored,
	StepPositionOffered, StepPositionSelected, StepComplete,
	StepNoPositions, StepPolicyDeclined, StepRequirementsMissing, StepNotApproved, StepClosed,
}

// Terminal reports whether the funnel has ended for this pass.
func (s Step) Terminal() bool {
	switch s {
	case StepComplete, StepPolicyDeclined, StepRequirementsMissing, StepNotApproved, StepClosed:
		return true
	}
	return false
}

// State is the durable per-user record. Only these fields are ever persisted.
type State struct {
	UserID       string            `json:"user:wa_id,omitempty"`
	DisplayName  string            `json:"user:name,omitempty"`
	City         string            `json:"user:city,omitempty"`
	Step         Step              `json:"user:step,omitempty"`
	Approved     *bool             `json:"user:approved,omitempty"`
	PositionID   string            `json:"user:position_id,omitempty"`
	Requirements []bool            `json:"user:requirements,omitempty"`
	Answers      map[string]string `json:"user:answers,omitempty"`
	Score        *int              `json:"user:score,omitempty"`
}

// IsApproved reports whether the assessment was scored and passed.
func (s State) IsApproved() bool {
	return s.Approved != nil && *s.Approved
}

// Restart returns a fresh state that keeps only the user's identity.
func (s State) Restart() State {
	return State{UserID: s.UserID, DisplayName: s.DisplayName}
}

// Map flattens the state into prefixed session keys.
func (s State) Map() map[string]any {
	out := map[string]any{}
	raw, err := json.Marshal(s)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

// Split separates a flat session map into durable state and turn-scoped values.
// Durable keys that do not decode on their own are dropped.
func Split(values map[string]any) (State, map[string]any) {
	durable := map[string]any{}
	scratch := map[string]any{}
	for k, v := range values {
		if strings.HasPrefix(k, DurablePrefix) {
			durable[k] = v
			continue
		}
		scratch[k] = v
	}

	var st State
	raw, err := json.Marshal(durable)
	if err != nil {
		return State{}, scratch
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return decodeLenient(durable), scratch
	}
	return st, scratch
}

// decodeLenient keeps whatever durable fields decode on their own.
func decodeLenient(durable map[string]any) State {
	var st State
	for k, v := range durable {
		raw, err := json.Marshal(map[string]any{k: v})
		if err != nil {
			continue
		}
		_ = json.Unmarshal(raw, &st)
	}
	return st
}
