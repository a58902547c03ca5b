package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/metalagman/coopfunnel/internal/assessment"
	"github.com/metalagman/coopfunnel/internal/funnel"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// scope is the per-turn state shared by the tools of one agent run.
type scope struct {
	text      string
	state     funnel.State
	advanced  *funnel.Outcome
	replies   []string
	selection *funnel.Selection
	lead      *funnel.Lead
	trs       []funnel.Transition
	failure   error
}

// toolbox exposes the funnel collaborators to the model.
type toolbox struct {
	engine    *funnel.Engine
	positions funnel.PositionDirectory
	leads     funnel.LeadLedger
	coop      funnel.CoopInfo
	links     funnel.LinkProvider
	now       func() time.Time
	sc        *scope
}

type noArgs struct{}

type cityArgs struct {
	City string `json:"cidade"`
}

type positionArgs struct {
	ID string `json:"id_vaga"`
}

type requirementsArgs struct {
	Motorcycle bool `json:"moto"`
	LicenseA   bool `json:"cnh_a"`
	Android    bool `json:"android"`
}

type scoreArgs struct {
	Answers map[string]string `json:"respostas"`
}

type leadArgs struct {
	PositionID string `json:"id_vaga"`
	Notes      string `json:"observacoes,omitempty"`
}

type textArgs struct {
	Text string `json:"texto"`
}

type coopResult struct {
	Text     string            `json:"texto"`
	Messages map[string]string `json:"mensagens,omitempty"`
}

type positionsResult struct {
	Positions []funnel.Position `json:"vagas"`
}

type positionResult struct {
	Found    bool            `json:"encontrada"`
	Position funnel.Position `json:"vaga"`
}

type questionsResult struct {
	Questions []assessment.Question `json:"perguntas"`
}

type linkResult struct {
	Link string `json:"link"`
}

type okResult struct {
	OK bool `json:"ok"`
}

type listResult struct {
	Sent int `json:"enviadas"`
}

type advanceResult struct {
	Reply    string `json:"resposta"`
	Step     string `json:"etapa"`
	ListSent bool   `json:"lista_enviada"`
}

func (tb *toolbox) coopInfo(ctx context.Context, _ noArgs) (coopResult, error) {
	p, err := tb.coop.Presentation(ctx)
	if err != nil {
		return coopResult{}, fmt.Errorf("coop info: %w", err)
	}
	return coopResult{Text: p.Summary, Messages: p.Messages}, nil
}

func (tb *toolbox) openPositions(ctx context.Context, args cityArgs) (positionsResult, error) {
	if strings.TrimSpace(args.City) == "" {
		return positionsResult{}, errors.New("cidade é obrigatória")
	}
	list, err := tb.positions.ListOpen(ctx, args.City)
	if err != nil {
		return positionsResult{}, fmt.Errorf("list positions: %w", err)
	}
	return positionsResult{Positions: list}, nil
}

func (tb *toolbox) positionByID(ctx context.Context, args positionArgs) (positionResult, error) {
	p, err := tb.positions.Get(ctx, strings.TrimSpace(args.ID))
	if errors.Is(err, funnel.ErrPositionNotFound) {
		return positionResult{}, nil
	}
	if err != nil {
		return positionResult{}, fmt.Errorf("get position: %w", err)
	}
	return positionResult{Found: true, Position: p}, nil
}

func (tb *toolbox) checkRequirements(_ context.Context, args requirementsArgs) (assessment.Requirements, error) {
	return assessment.CheckRequirements(args.Motorcycle, args.LicenseA, args.Android), nil
}

func (tb *toolbox) startAssessment(context.Context, noArgs) (questionsResult, error) {
	return questionsResult{Questions: assessment.Questions}, nil
}

func (tb *toolbox) scoreAssessment(_ context.Context, args scoreArgs) (assessment.Result, error) {
	return assessment.Score(args.Answers), nil
}

func (tb *toolbox) saveLead(ctx context.Context, args leadArgs) (okResult, error) {
	st := tb.sc.state
	switch {
	case tb.sc.lead != nil || st.Step == funnel.StepComplete:
		return okResult{OK: true}, nil
	case !st.IsApproved():
		return okResult{}, errors.New("candidato ainda não aprovado")
	}
	p, err := tb.positions.Get(ctx, strings.TrimSpace(args.PositionID))
	if err != nil {
		return okResult{}, fmt.Errorf("get position: %w", err)
	}
	lead := funnel.Lead{
		CreatedAt:   tb.now().UTC(),
		Name:        st.DisplayName,
		Contact:     st.UserID,
		City:        st.City,
		Approved:    true,
		PositionID:  p.ID,
		Employer:    p.Employer,
		Shift:       p.Shift,
		DeliveryFee: p.DeliveryFee,
		Notes:       strings.TrimSpace(args.Notes),
	}
	if err := tb.leads.Append(ctx, lead); err != nil {
		return okResult{}, fmt.Errorf("save lead: %w", err)
	}
	tb.sc.lead = &lead
	return okResult{OK: true}, nil
}

func (tb *toolbox) applicationLink(ctx context.Context, _ noArgs) (linkResult, error) {
	link, err := tb.links.ApplicationLink(ctx)
	if err != nil {
		return linkResult{}, fmt.Errorf("application link: %w", err)
	}
	return linkResult{Link: link}, nil
}

func (tb *toolbox) sendText(_ context.Context, args textArgs) (okResult, error) {
	if strings.TrimSpace(args.Text) == "" {
		return okResult{}, errors.New("texto vazio")
	}
	tb.sc.replies = append(tb.sc.replies, strings.TrimSpace(args.Text))
	return okResult{OK: true}, nil
}

func (tb *toolbox) sendPositionList(ctx context.Context, args cityArgs) (listResult, error) {
	city := args.City
	if strings.TrimSpace(city) == "" {
		city = tb.sc.state.City
	}
	res, err := tb.openPositions(ctx, cityArgs{City: city})
	if err != nil {
		return listResult{}, err
	}
	if len(res.Positions) == 0 {
		return listResult{}, nil
	}
	tb.sc.selection = funnel.SelectionFor(res.Positions)
	return listResult{Sent: len(tb.sc.selection.Items)}, nil
}

// advance runs the funnel once per turn; repeated calls return the same outcome.
func (tb *toolbox) advance(ctx context.Context, _ noArgs) (advanceResult, error) {
	if tb.sc.advanced == nil {
		// save_lead may already have appended this turn's lead.
		out, err := tb.engine.AdvanceRecorded(ctx, tb.sc.state, tb.sc.text, tb.sc.lead)
		if err != nil {
			tb.sc.failure = err
			return advanceResult{}, err
		}
		tb.sc.advanced = &out
		tb.sc.state = out.State
		tb.sc.trs = out.Transitions
		if out.Selection != nil {
			tb.sc.selection = out.Selection
		}
		if out.Lead != nil {
			tb.sc.lead = out.Lead
		}
	}
	out := tb.sc.advanced
	return advanceResult{
		Reply:    out.Reply,
		Step:     string(out.State.Step),
		ListSent: out.Selection != nil,
	}, nil
}

func newTool[A, R any](name, description string, fn func(context.Context, A) (R, error)) (tool.Tool, error) {
	t, err := functiontool.New(functiontool.Config{Name: name, Description: description}, func(ctx tool.Context, args A) (R, error) {
		return fn(ctx, args)
	})
	if err != nil {
		return nil, fmt.Errorf("create tool %s: %w", name, err)
	}
	return t, nil
}

func (tb *toolbox) tools() ([]tool.Tool, error) {
	builders := []func() (tool.Tool, error){
		func() (tool.Tool, error) {
			return newTool("advance_funnel", "Avança o funil de triagem com a mensagem atual do candidato e devolve a resposta a enviar.", tb.advance)
		},
		func() (tool.Tool, error) {
			return newTool("get_coop_info", "Resumo da cooperativa: cota, uniforme/bag e benefícios.", tb.coopInfo)
		},
		func() (tool.Tool, error) {
			return newTool("get_open_positions", "Lista as vagas abertas de uma cidade.", tb.openPositions)
		},
		func() (tool.Tool, error) {
			return newTool("get_position_by_id", "Busca uma vaga pelo id_vaga.", tb.positionByID)
		},
		func() (tool.Tool, error) {
			return newTool("check_requirements", "Verifica moto, CNH categoria A e celular Android.", tb.checkRequirements)
		},
		func() (tool.Tool, error) {
			return newTool("start_assessment", "Retorna as 5 perguntas da avaliação comportamental.", tb.startAssessment)
		},
		func() (tool.Tool, error) {
			return newTool("score_assessment", "Pontua as respostas da avaliação (aprovação com 7 pontos).", tb.scoreAssessment)
		},
		func() (tool.Tool, error) {
			return newTool("save_lead", "Registra o lead aprovado com a vaga escolhida.", tb.saveLead)
		},
		func() (tool.Tool, error) {
			return newTool("get_pipefy_link", "Link para concluir a matrícula.", tb.applicationLink)
		},
		func() (tool.Tool, error) {
			return newTool("send_text", "Envia uma mensagem de texto extra ao candidato.", tb.sendText)
		},
		func() (tool.Tool, error) {
			return newTool("send_vagas_list", "Envia a lista interativa de vagas abertas da cidade.", tb.sendPositionList)
		},
	}
	out := make([]tool.Tool, 0, len(builders))
	for _, build := range builders {
		t, err := build()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
