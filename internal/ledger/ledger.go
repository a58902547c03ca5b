// Package ledger fans a lead out to the spreadsheet and the local journal.
package ledger

import (
	"context"
	"fmt"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Fanout writes every lead to all ledgers concurrently. Only the primary ledger's
// failure fails the append; mirror failures are logged.
type Fanout struct {
	primary funnel.LeadLedger
	mirrors []funnel.LeadLedger
}

// NewFanout builds a fan-out over primary and any mirrors. Nil mirrors are skipped.
func NewFanout(primary funnel.LeadLedger, mirrors ...funnel.LeadLedger) *Fanout {
	f := &Fanout{primary: primary}
	for _, m := range mirrors {
		if m != nil {
			f.mirrors = append(f.mirrors, m)
		}
	}
	return f
}

// Append implements funnel.LeadLedger.
func (f *Fanout) Append(ctx context.Context, lead funnel.Lead) error {
	var g errgroup.Group
	g.Go(func() error {
		if err := f.primary.Append(ctx, lead); err != nil {
			return fmt.Errorf("primary ledger: %w", err)
		}
		return nil
	})
	for i, m := range f.mirrors {
		g.Go(func() error {
			if err := m.Append(ctx, lead); err != nil {
				log.Warn().Err(err).Int("mirror", i).Str("contact", lead.Contact).Msg("mirror ledger append failed")
			}
			return nil
		})
	}
	return g.Wait()
}
