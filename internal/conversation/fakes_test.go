package conversation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/metalagman/coopfunnel/internal/db"
	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	positions []funnel.Position
	err       error
}

func (d *fakeDirectory) ListOpen(_ context.Context, city string) ([]funnel.Position, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []funnel.Position
	for _, p := range d.positions {
		if p.Open() && strings.Contains(funnel.Fold(p.City), funnel.Fold(city)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *fakeDirectory) Get(_ context.Context, id string) (funnel.Position, error) {
	if d.err != nil {
		return funnel.Position{}, d.err
	}
	for _, p := range d.positions {
		if p.ID == id {
			return p, nil
		}
	}
	return funnel.Position{}, funnel.ErrPositionNotFound
}

type fakeLedger struct {
	mu    sync.Mutex
	leads []funnel.Lead
	err   error
}

func (l *fakeLedger) Append(_ context.Context, lead funnel.Lead) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.leads = append(l.leads, lead)
	return nil
}

type fakeCoop struct{}

func (fakeCoop) Presentation(context.Context) (funnel.Presentation, error) {
	return funnel.Presentation{Summary: "Cooperativa: CoopMob\n- Cota: R$ 50,00"}, nil
}

type sentMessage struct {
	to        string
	text      string
	selection *funnel.Selection
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *fakeMessenger) SendText(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{to: to, text: body})
	return m.err
}

func (m *fakeMessenger) SendSelectionList(ctx context.Context, to string, sel *funnel.Selection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{to: to, selection: sel})
	return m.err
}

func (m *fakeMessenger) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

type fakeJournal struct {
	mu    sync.Mutex
	turns []db.TurnRecord
}

func (j *fakeJournal) RecordTurn(_ context.Context, turn db.TurnRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.turns = append(j.turns, turn)
	return nil
}

var fixedNow = time.Date(2026, 3, 4, 12, 30, 0, 0, time.UTC)

func recifePositions() []funnel.Position {
	return []funnel.Position{
		{ID: "7", Employer: "Farmácia Boa Vida", City: "Recife", Shift: "Noite", DeliveryFee: "R$ 8,00", Status: "aberto"},
		{ID: "8", Employer: "Drogaria Centro", City: "Recife", Shift: "Manhã", DeliveryFee: "R$ 7,50", Status: "aberto"},
		{ID: "9", Employer: "Farmácia Sul", City: "Recife", Shift: "Tarde", DeliveryFee: "R$ 6,00", Status: "fechado"},
	}
}

func newEngine(t *testing.T, dir funnel.PositionDirectory, ledger funnel.LeadLedger) *funnel.Engine {
	t.Helper()
	e, err := funnel.NewEngine(funnel.Deps{
		Positions: dir,
		Leads:     ledger,
		Coop:      fakeCoop{},
		Links:     funnel.StaticLink("https://coop.example/matricula"),
	}, funnel.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return e
}
