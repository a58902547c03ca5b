// Package sheets reads open positions from and appends leads to a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/metalagman/coopfunnel/internal/logging"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	DefaultPositionsTab = "Vagas"
	DefaultLeadsTab     = "Leads"

	defaultTimeout = 15 * time.Second
	timestampISO   = "2006-01-02T15:04:05Z"
)

// Scope is the OAuth scope needed for both tabs.
const Scope = sheetsapi.SpreadsheetsScope

// LeadsHeader is the first row of the leads tab.
var LeadsHeader = []string{
	"timestamp_iso", "lead_nome", "whatsapp", "cidade", "aprovado",
	"id_vaga_escolhida", "farmacia_escolhida", "turno", "taxa_entrega", "observacoes",
}

// Config selects the spreadsheet and its tabs.
type Config struct {
	SpreadsheetID string
	PositionsTab  string
	LeadsTab      string
	Timeout       time.Duration
}

// Client implements funnel.PositionDirectory and funnel.LeadLedger over the Sheets API.
type Client struct {
	cfg Config
	svc *sheetsapi.Service

	mu         sync.Mutex
	leadsReady bool
}

// New builds a client. opts carry credentials (see gcp.ClientOptions).
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	cfg.SpreadsheetID = strings.TrimSpace(cfg.SpreadsheetID)
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if cfg.PositionsTab == "" {
		cfg.PositionsTab = DefaultPositionsTab
	}
	if cfg.LeadsTab == "" {
		cfg.LeadsTab = DefaultLeadsTab
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{cfg: cfg, svc: svc}, nil
}

// ListOpen returns open positions whose city contains the given one, ignoring case and accents.
func (c *Client) ListOpen(ctx context.Context, city string) ([]funnel.Position, error) {
	all, err := c.positions(ctx)
	if err != nil {
		return nil, err
	}
	want := funnel.Fold(city)
	out := make([]funnel.Position, 0, len(all))
	for _, p := range all {
		if p.Open() && strings.Contains(funnel.Fold(p.City), want) {
			out = append(out, p)
		}
	}
	log.Debug().Str("city", city).Int("total", len(out)).Msg("open positions")
	return out, nil
}

// Get returns the position with the given id regardless of its status.
func (c *Client) Get(ctx context.Context, id string) (funnel.Position, error) {
	all, err := c.positions(ctx)
	if err != nil {
		return funnel.Position{}, err
	}
	id = strings.TrimSpace(id)
	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}
	return funnel.Position{}, fmt.Errorf("%w: %s", funnel.ErrPositionNotFound, id)
}

func (c *Client) positions(ctx context.Context) ([]funnel.Position, error) {
	defer logging.Timed("sheets.positions")()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	vr, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, c.cfg.PositionsTab).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s tab: %w", c.cfg.PositionsTab, err)
	}
	return parsePositions(vr.Values), nil
}

// parsePositions maps rows to positions by header name. Rows without an id are skipped.
func parsePositions(rows [][]any) []funnel.Position {
	if len(rows) == 0 {
		return nil
	}
	col := map[string]int{}
	for i, h := range rows[0] {
		col[funnel.Fold(fmt.Sprint(h))] = i
	}
	cell := func(row []any, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) || row[i] == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(row[i]))
	}

	out := make([]funnel.Position, 0, len(rows)-1)
	for _, row := range rows[1:] {
		p := funnel.Position{
			ID:          cell(row, "id_vaga"),
			Employer:    cell(row, "farmacia"),
			City:        cell(row, "cidade"),
			Shift:       cell(row, "turno"),
			DeliveryFee: cell(row, "taxa_entrega"),
			Status:      cell(row, "status"),
		}
		if p.ID == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Append writes one lead row, creating the leads tab with its header when missing.
func (c *Client) Append(ctx context.Context, lead funnel.Lead) error {
	defer logging.Timed("sheets.append")()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.ensureLeadsTab(ctx); err != nil {
		return err
	}
	_, err := c.svc.Spreadsheets.Values.Append(c.cfg.SpreadsheetID, c.cfg.LeadsTab+"!A1", &sheetsapi.ValueRange{
		Values: [][]any{leadRow(lead)},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append lead to %s tab: %w", c.cfg.LeadsTab, err)
	}
	log.Info().Bool("approved", lead.Approved).Str("city", lead.City).Str("position_id", lead.PositionID).Msg("lead saved")
	return nil
}

func (c *Client) ensureLeadsTab(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.leadsReady {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.cfg.SpreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("inspect spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.cfg.LeadsTab {
			c.leadsReady = true
			return nil
		}
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.cfg.SpreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{
					Title:          c.cfg.LeadsTab,
					GridProperties: &sheetsapi.GridProperties{RowCount: 2000, ColumnCount: 20},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create %s tab: %w", c.cfg.LeadsTab, err)
	}

	header := make([]any, len(LeadsHeader))
	for i, h := range LeadsHeader {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.cfg.SpreadsheetID, c.cfg.LeadsTab+"!A1", &sheetsapi.ValueRange{
		Values: [][]any{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s header: %w", c.cfg.LeadsTab, err)
	}
	log.Info().Str("tab", c.cfg.LeadsTab).Msg("created leads tab")
	c.leadsReady = true
	return nil
}

func leadRow(l funnel.Lead) []any {
	approved := "FALSE"
	if l.Approved {
		approved = "TRUE"
	}
	return []any{
		l.CreatedAt.UTC().Format(timestampISO),
		l.Name, l.Contact, l.City, approved,
		l.PositionID, l.Employer, l.Shift, l.DeliveryFee, l.Notes,
	}
}
