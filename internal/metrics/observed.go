package metrics

import (
	"context"
	"time"

	"github.com/metalagman/coopfunnel/internal/funnel"
)

type observedDirectory struct {
	next funnel.PositionDirectory
	m    *Metrics
}

// Directory records the latency of every position lookup under "positions".
func (m *Metrics) Directory(next funnel.PositionDirectory) funnel.PositionDirectory {
	return observedDirectory{next: next, m: m}
}

func (d observedDirectory) ListOpen(ctx context.Context, city string) ([]funnel.Position, error) {
	start := time.Now()
	out, err := d.next.ListOpen(ctx, city)
	d.m.ObserveCall("positions", start, err)
	return out, err
}

func (d observedDirectory) Get(ctx context.Context, id string) (funnel.Position, error) {
	start := time.Now()
	p, err := d.next.Get(ctx, id)
	d.m.ObserveCall("positions", start, err)
	return p, err
}

type observedLedger struct {
	name string
	next funnel.LeadLedger
	m    *Metrics
}

// Ledger records the latency of every append under name.
func (m *Metrics) Ledger(name string, next funnel.LeadLedger) funnel.LeadLedger {
	return observedLedger{name: name, next: next, m: m}
}

func (l observedLedger) Append(ctx context.Context, lead funnel.Lead) error {
	start := time.Now()
	err := l.next.Append(ctx, lead)
	l.m.ObserveCall(l.name, start, err)
	return err
}
