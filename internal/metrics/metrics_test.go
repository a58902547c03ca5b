package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTransitions(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveTransitions([]funnel.Transition{
		{From: funnel.StepNew, To: funnel.StepGreeting, Event: funnel.EventGreet},
		{From: funnel.StepGreeting, To: funnel.StepCityCollected, Event: funnel.EventCollectCity},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("new", "greeting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("greeting", "city_collected")))
}

func TestObserveLeadAndCall(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveLead(funnel.Lead{Approved: true})
	m.ObserveLead(funnel.Lead{})
	m.ObserveLead(funnel.Lead{})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Leads.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Leads.WithLabelValues("false")))

	m.ObserveCall("sheets", time.Now(), errors.New("boom"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Calls, "coopfunnel_collaborator_call_seconds"))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.Turns.WithLabelValues("deterministic", "ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `coopfunnel_turns_total{driver="deterministic",outcome="ok"} 1`))
}

type stubDirectory struct{ err error }

func (s stubDirectory) ListOpen(context.Context, string) ([]funnel.Position, error) {
	return []funnel.Position{{ID: "1"}}, s.err
}

func (s stubDirectory) Get(context.Context, string) (funnel.Position, error) {
	return funnel.Position{}, s.err
}

type stubLedger struct{ err error }

func (s stubLedger) Append(context.Context, funnel.Lead) error { return s.err }

func TestObservedCollaborators(t *testing.T) {
	t.Parallel()

	m := New()
	dir := m.Directory(stubDirectory{})
	got, err := dir.ListOpen(context.Background(), "Recife")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	_, err = m.Directory(stubDirectory{err: funnel.ErrPositionNotFound}).Get(context.Background(), "9")
	require.ErrorIs(t, err, funnel.ErrPositionNotFound)

	require.Error(t, m.Ledger("sheets", stubLedger{err: errors.New("quota")}).Append(context.Background(), funnel.Lead{}))
	require.NoError(t, m.Ledger("journal", stubLedger{}).Append(context.Background(), funnel.Lead{}))

	assert.Equal(t, 4, testutil.CollectAndCount(m.Calls, "coopfunnel_collaborator_call_seconds"))
}
