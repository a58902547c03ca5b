package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/metalagman/coopfunnel/internal/inbound"
	"github.com/rs/zerolog/log"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	adkrunner "google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// ADKConfig configures the model-driven driver.
type ADKConfig struct {
	AppName   string
	Model     model.LLM
	Engine    *funnel.Engine
	Positions funnel.PositionDirectory
	Leads     funnel.LeadLedger
	Coop      funnel.CoopInfo
	Links     funnel.LinkProvider
}

// ADK drives the funnel through a Gemini agent that calls the funnel tools.
type ADK struct {
	cfg ADKConfig
	now func() time.Time
}

// NewGeminiModel returns the Gemini model used by the ADK driver.
func NewGeminiModel(ctx context.Context, name, apiKey string) (model.LLM, error) {
	m, err := gemini.NewModel(ctx, name, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini model: %w", err)
	}
	return m, nil
}

// NewADK validates cfg and returns the driver.
func NewADK(cfg ADKConfig) (*ADK, error) {
	switch {
	case cfg.Model == nil:
		return nil, fmt.Errorf("model is required")
	case cfg.Engine == nil:
		return nil, fmt.Errorf("funnel engine is required")
	case cfg.Positions == nil || cfg.Leads == nil || cfg.Coop == nil || cfg.Links == nil:
		return nil, fmt.Errorf("positions, leads, coop and links are required")
	}
	if cfg.AppName == "" {
		cfg.AppName = agentName
	}
	return &ADK{cfg: cfg, now: time.Now}, nil
}

// Name implements Driver.
func (d *ADK) Name() string { return DriverADK }

// Drive implements Driver. The session is seeded with the durable state and discarded after
// the run; the funnel state that comes back is the one advance_funnel produced.
func (d *ADK) Drive(ctx context.Context, turn Turn) (Result, error) {
	sc := &scope{text: turn.Text, state: turn.State}
	tb := &toolbox{
		engine:    d.cfg.Engine,
		positions: d.cfg.Positions,
		leads:     d.cfg.Leads,
		coop:      d.cfg.Coop,
		links:     d.cfg.Links,
		now:       d.now,
		sc:        sc,
	}
	tools, err := tb.tools()
	if err != nil {
		return Result{}, err
	}
	ag, err := llmagent.New(llmagent.Config{
		Name:        agentName,
		Model:       d.cfg.Model,
		Description: agentDescription,
		Instruction: systemPrompt,
		Tools:       tools,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := adkrunner.New(adkrunner.Config{
		AppName:        d.cfg.AppName,
		Agent:          ag,
		SessionService: sessionService,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create ADK runner: %w", err)
	}
	created, err := sessionService.Create(ctx, &session.CreateRequest{
		AppName: d.cfg.AppName,
		UserID:  turn.UserID,
		State:   turn.State.Map(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("create ADK session: %w", err)
	}

	msg := genai.NewContentFromText(inbound.Annotate(turn.DisplayName, turn.Text), genai.RoleUser)
	var final string
	for ev, runErr := range r.Run(ctx, turn.UserID, created.Session.ID(), msg, agent.RunConfig{}) {
		if runErr != nil {
			return Result{}, fmt.Errorf("run agent: %w", runErr)
		}
		if text := eventText(ev); text != "" {
			final = text
		}
	}
	if sc.failure != nil {
		return Result{}, sc.failure
	}
	if sc.advanced == nil {
		log.Warn().Str("user_id", turn.UserID).Msg("agent finished without advancing the funnel")
	}

	return Result{
		State:       sc.state,
		Reply:       replyFor(sc, final),
		Selection:   sc.selection,
		Lead:        sc.lead,
		Transitions: sc.trs,
	}, nil
}

// replyFor prefers what the agent explicitly sent, then its final answer, then the funnel reply.
func replyFor(sc *scope, final string) string {
	parts := append([]string{}, sc.replies...)
	switch {
	case final != "":
		parts = append(parts, final)
	case len(parts) == 0 && sc.advanced != nil:
		parts = append(parts, sc.advanced.Reply)
	}
	return strings.Join(parts, "\n\n")
}

func eventText(ev *session.Event) string {
	if ev == nil || ev.Content == nil || ev.Partial || ev.Author == "user" {
		return ""
	}
	var b strings.Builder
	for _, p := range ev.Content.Parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
