package funnel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// SelectCommand is the canonical command emitted for a position picked from the list.
	SelectCommand = "selecionar_vaga"
	// SelectionPrefix marks list option ids that refer to a position.
	SelectionPrefix = "vaga:"
	// MaxSelectionItems is the channel limit on list rows.
	MaxSelectionItems = 10
)

// Stand-ins produced by inbound normalization when a message carries no usable text.
const (
	PlaceholderText   = "Olá"
	AudioApology      = "Observação: Não consegui transcrever seu áudio. Você pode enviar como texto?"
	UntitledSelection = "Seleção recebida"
)

var greetingWords = map[string]bool{
	"ola": true, "oi": true, "oie": true, "bom dia": true, "boa tarde": true, "boa noite": true,
}

// IsPlaceholder reports whether text is a normalization stand-in or a bare greeting
// rather than real content from the candidate.
func IsPlaceholder(text string) bool {
	switch strings.TrimSpace(text) {
	case AudioApology, UntitledSelection:
		return true
	}
	return greetingWords[strings.Trim(Fold(text), " .,!?;:")]
}

var (
	// ErrPositionNotFound is returned by a PositionDirectory when the id is unknown.
	ErrPositionNotFound = errors.New("position not found")
	// ErrNotConfigured is returned by collaborators missing their settings.
	ErrNotConfigured = errors.New("not configured")
)

// Position is an open delivery opportunity.
type Position struct {
	ID          string `json:"id_vaga"`
	Employer    string `json:"farmacia"`
	City        string `json:"cidade"`
	Shift       string `json:"turno"`
	DeliveryFee string `json:"taxa_entrega"`
	Status      string `json:"status"`
}

// Open reports whether the position accepts candidates.
func (p Position) Open() bool {
	return Fold(p.Status) == "aberto"
}

// Lead is the terminal record written once a candidate completes or exits the funnel.
type Lead struct {
	CreatedAt   time.Time `json:"timestamp_iso"`
	Name        string    `json:"lead_nome"`
	Contact     string    `json:"whatsapp"`
	City        string    `json:"cidade"`
	Approved    bool      `json:"aprovado"`
	PositionID  string    `json:"id_vaga_escolhida"`
	Employer    string    `json:"farmacia_escolhida"`
	Shift       string    `json:"turno"`
	DeliveryFee string    `json:"taxa_entrega"`
	Notes       string    `json:"observacoes"`
}

// Presentation is the cooperative's pitch.
type Presentation struct {
	Summary  string            `json:"text"`
	Messages map[string]string `json:"mensagens"`
}

// Selection is an interactive list offered to the candidate.
type Selection struct {
	Title  string          `json:"title"`
	Prompt string          `json:"prompt"`
	Items  []SelectionItem `json:"items"`
}

// SelectionItem is one row of a Selection.
type SelectionItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PositionDirectory reads open positions.
type PositionDirectory interface {
	ListOpen(ctx context.Context, city string) ([]Position, error)
	Get(ctx context.Context, id string) (Position, error)
}

// LeadLedger appends leads.
type LeadLedger interface {
	Append(ctx context.Context, lead Lead) error
}

// CoopInfo provides the cooperative presentation.
type CoopInfo interface {
	Presentation(ctx context.Context) (Presentation, error)
}

// LinkProvider returns the external enrollment link.
type LinkProvider interface {
	ApplicationLink(ctx context.Context) (string, error)
}

// StaticLink is a LinkProvider backed by a fixed URL.
type StaticLink string

// ApplicationLink returns the configured URL.
func (l StaticLink) ApplicationLink(context.Context) (string, error) {
	if strings.TrimSpace(string(l)) == "" {
		return "", fmt.Errorf("application link: %w", ErrNotConfigured)
	}
	return string(l), nil
}

// SelectionFor builds the interactive list for the given positions.
func SelectionFor(positions []Position) *Selection {
	sel := &Selection{
		Title:  "Vagas Abertas",
		Prompt: "Escolha uma vaga",
	}
	for i, p := range positions {
		if i == MaxSelectionItems {
			break
		}
		sel.Items = append(sel.Items, SelectionItem{
			ID:          SelectionPrefix + p.ID,
			Title:       orPlaceholder(p.Employer) + " — " + orPlaceholder(p.Shift),
			Description: "Taxa " + orPlaceholder(p.DeliveryFee),
		})
	}
	return sel
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}

// ParseSelectCommand extracts the position id from a sentinel command.
func ParseSelectCommand(text string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(text), SelectCommand+" ")
	if !ok {
		return "", false
	}
	id := strings.TrimSpace(rest)
	return id, id != ""
}
