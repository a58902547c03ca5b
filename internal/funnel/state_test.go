package funnel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMapSplit(t *testing.T) {
	t.Parallel()

	approved := true
	score := 8
	st := State{
		UserID:       "5511",
		DisplayName:  "Ana",
		City:         "Recife",
		Step:         StepPositionOffered,
		Approved:     &approved,
		Requirements: []bool{true, true, true},
		Answers:      map[string]string{"pontualidade": "sempre"},
		Score:        &score,
	}

	m := st.Map()
	for k := range m {
		assert.Contains(t, k, DurablePrefix)
	}
	m["temp:selection"] = "x"
	m["app:version"] = 2

	got, scratch := Split(m)
	assert.Equal(t, st, got)
	assert.Equal(t, map[string]any{"temp:selection": "x", "app:version": 2}, scratch)
}

func TestSplit_DropsUndecodableDurableKeys(t *testing.T) {
	t.Parallel()

	got, _ := Split(map[string]any{
		"user:city":  "Olinda",
		"user:score": "nove",
		"user:step":  "greeting",
	})
	assert.Equal(t, "Olinda", got.City)
	assert.Equal(t, StepGreeting, got.Step)
	assert.Nil(t, got.Score)
}

func TestStateRestart(t *testing.T) {
	t.Parallel()

	approved := false
	st := State{UserID: "1", DisplayName: "Ana", City: "Recife", Step: StepNotApproved, Approved: &approved}
	assert.Equal(t, State{UserID: "1", DisplayName: "Ana"}, st.Restart())
	assert.True(t, st.Step.Terminal())
	assert.False(t, StepGreeting.Terminal())
	assert.False(t, st.IsApproved())
}

func TestStaticLink(t *testing.T) {
	t.Parallel()

	link, err := StaticLink("https://app.pipefy.com/public/form/x").ApplicationLink(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "https://app.pipefy.com/public/form/x", link)

	_, err = StaticLink("  ").ApplicationLink(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
