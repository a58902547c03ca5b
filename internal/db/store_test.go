package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	s := NewStore(conn)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(" ")
	require.Error(t, err)
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestStore_LeadsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, funnel.Lead{
		CreatedAt: base, Name: "João", Contact: "5581", City: "Manaus",
		Notes: "interesse registrado: sem vagas na cidade",
	}))
	require.NoError(t, s.Append(ctx, funnel.Lead{
		CreatedAt: base.Add(time.Hour), Name: "Maria", Contact: "5582", City: "Recife", Approved: true,
		PositionID: "7", Employer: "Farmácia Boa Vida", Shift: "Noite", DeliveryFee: "R$ 8,00",
	}))

	all, err := s.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Maria", all[0].Name)
	assert.True(t, all[0].Approved)
	assert.Equal(t, "7", all[0].PositionID)
	assert.Equal(t, base.Add(time.Hour), all[0].CreatedAt)
	assert.NotEmpty(t, all[0].ID)
	assert.False(t, all[1].Approved)
	assert.Empty(t, all[1].PositionID)

	approved, err := s.ListLeads(ctx, LeadFilter{ApprovedOnly: true})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "Maria", approved[0].Name)

	recent, err := s.ListLeads(ctx, LeadFilter{Since: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	limited, err := s.ListLeads(ctx, LeadFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_TurnsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordTurn(ctx, TurnRecord{
		UserID: "5581", StartedAt: start, Driver: "deterministic",
		StepBefore: funnel.StepNew, StepAfter: funnel.StepGreeting, Outcome: "ok", Duration: 12 * time.Millisecond,
		Transitions: []funnel.Transition{{From: funnel.StepNew, To: funnel.StepGreeting, Event: funnel.EventGreet}},
	}))
	require.NoError(t, s.RecordTurn(ctx, TurnRecord{
		UserID: "5581", StartedAt: start.Add(time.Minute), Driver: "deterministic",
		StepBefore: funnel.StepGreeting, StepAfter: funnel.StepPolicyPresented, Outcome: "ok",
		Transitions: []funnel.Transition{
			{From: funnel.StepGreeting, To: funnel.StepCityCollected, Event: funnel.EventCollectCity},
			{From: funnel.StepCityCollected, To: funnel.StepPositionsChecked, Event: funnel.EventCheckPositions},
			{From: funnel.StepPositionsChecked, To: funnel.StepPolicyPresented, Event: funnel.EventPresentPolicy},
		},
	}))
	require.NoError(t, s.RecordTurn(ctx, TurnRecord{UserID: "other", Driver: "adk", Outcome: "error"}))

	turns, err := s.ListTurns(ctx, "5581", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, funnel.StepGreeting, turns[0].StepAfter)
	assert.Equal(t, 12*time.Millisecond, turns[0].Duration)
	require.Len(t, turns[0].Transitions, 1)
	require.Len(t, turns[1].Transitions, 3)
	assert.Equal(t, funnel.EventPresentPolicy, turns[1].Transitions[2].Event)
	assert.Equal(t, start.Add(time.Minute), turns[1].StartedAt)

	last, err := s.ListTurns(ctx, "5581", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, funnel.StepPolicyPresented, last[0].StepAfter)
}
