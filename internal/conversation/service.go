package conversation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/metalagman/coopfunnel/internal/db"
	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/metalagman/coopfunnel/internal/metrics"
	"github.com/metalagman/coopfunnel/internal/userstate"
	"github.com/rs/zerolog/log"
)

// Apology is sent when a turn cannot be completed.
const Apology = "Desculpe, ocorreu um erro momentâneo. Tente novamente em instantes."

// DefaultSendTimeout bounds reply delivery once the turn itself is done.
const DefaultSendTimeout = 10 * time.Second

// Turn outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomePanic = "panic"
)

// ErrDefect wraps a panic recovered while driving a turn.
var ErrDefect = errors.New("turn panicked")

// Messenger delivers replies to the user.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendSelectionList(ctx context.Context, to string, sel *funnel.Selection) error
}

// Journal records processed turns.
type Journal interface {
	RecordTurn(ctx context.Context, turn db.TurnRecord) error
}

// ServiceConfig holds the service collaborators. Messenger, Journal and Metrics are optional.
type ServiceConfig struct {
	Store     userstate.Store
	Driver    Driver
	Messenger Messenger
	Journal   Journal
	Metrics   *metrics.Metrics
	Timeout   time.Duration
	// SendTimeout bounds delivery; zero means DefaultSendTimeout.
	SendTimeout time.Duration
}

// Service processes inbound messages one turn at a time.
type Service struct {
	store     userstate.Store
	driver    Driver
	messenger Messenger
	journal   Journal
	metrics   *metrics.Metrics
	timeout   time.Duration
	sendLimit time.Duration
	now       func() time.Time
}

// NewService validates cfg and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if cfg.Driver == nil {
		return nil, fmt.Errorf("driver is required")
	}
	sendLimit := cfg.SendTimeout
	if sendLimit <= 0 {
		sendLimit = DefaultSendTimeout
	}
	return &Service{
		store:     cfg.Store,
		driver:    cfg.Driver,
		messenger: cfg.Messenger,
		journal:   cfg.Journal,
		metrics:   cfg.Metrics,
		timeout:   cfg.Timeout,
		sendLimit: sendLimit,
		now:       time.Now,
	}, nil
}

// Handle runs one turn for userID: load state, drive, save, reply.
// A failed turn keeps the previous state and answers with Apology.
func (s *Service) Handle(ctx context.Context, userID, displayName, text string) (Result, error) {
	if strings.TrimSpace(userID) == "" {
		return Result{}, fmt.Errorf("user id is required")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := s.now()

	st := s.store.Load(ctx, userID)
	st.UserID = userID
	if name := strings.TrimSpace(displayName); name != "" {
		st.DisplayName = name
	}
	before := st.Step

	res, err := s.drive(ctx, Turn{UserID: userID, DisplayName: st.DisplayName, Text: text, State: st})
	outcome := OutcomeOK
	switch {
	case errors.Is(err, ErrDefect):
		outcome = OutcomePanic
	case err != nil:
		outcome = OutcomeError
	}

	l := log.With().Str("user_id", userID).Str("driver", s.driver.Name()).Logger()
	if err != nil {
		l.Error().Err(err).Str("step", string(before)).Msg("turn failed")
		res = Result{State: st, Reply: Apology}
	} else {
		if saveErr := s.store.Save(ctx, userID, res.State); saveErr != nil {
			l.Error().Err(saveErr).Msg("save user state")
		}
		l.Info().
			Str("step", string(before)).
			Str("next", string(res.State.Step)).
			Int("transitions", len(res.Transitions)).
			Msg("turn")
	}

	s.deliver(ctx, userID, res)
	s.observe(ctx, started, before, outcome, res)

	return res, err
}

func (s *Service) drive(ctx context.Context, turn Turn) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("user_id", turn.UserID).Bytes("stack", debug.Stack()).Msgf("recovered: %v", r)
			err = fmt.Errorf("%w: %v", ErrDefect, r)
		}
	}()
	return s.driver.Drive(ctx, turn)
}

func (s *Service) deliver(ctx context.Context, to string, res Result) {
	if s.messenger == nil {
		return
	}
	// The reply goes out even when the turn ran out of time or the caller went away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sendLimit)
	defer cancel()
	if strings.TrimSpace(res.Reply) != "" {
		start := s.now()
		err := s.messenger.SendText(ctx, to, res.Reply)
		s.sent("text", start, err)
	}
	if res.Selection != nil && len(res.Selection.Items) > 0 {
		start := s.now()
		err := s.messenger.SendSelectionList(ctx, to, res.Selection)
		s.sent("list", start, err)
	}
}

func (s *Service) sent(kind string, start time.Time, err error) {
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("send message")
	}
	if s.metrics == nil {
		return
	}
	status := OutcomeOK
	if err != nil {
		status = OutcomeError
	}
	s.metrics.Outbound.WithLabelValues(kind, status).Inc()
	s.metrics.ObserveCall("whatsapp", start, err)
}

func (s *Service) observe(ctx context.Context, started time.Time, before funnel.Step, outcome string, res Result) {
	elapsed := s.now().Sub(started)
	if s.metrics != nil {
		s.metrics.Turns.WithLabelValues(s.driver.Name(), outcome).Inc()
		s.metrics.TurnDuration.WithLabelValues(s.driver.Name()).Observe(elapsed.Seconds())
		s.metrics.ObserveTransitions(res.Transitions)
		if res.Lead != nil {
			s.metrics.ObserveLead(*res.Lead)
		}
	}
	if s.journal == nil {
		return
	}
	// The turn context may already be spent; the journal write gets its own budget.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.journal.RecordTurn(jctx, db.TurnRecord{
		UserID:      res.State.UserID,
		StartedAt:   started,
		Driver:      s.driver.Name(),
		StepBefore:  before,
		StepAfter:   res.State.Step,
		Outcome:     outcome,
		Duration:    elapsed,
		Transitions: res.Transitions,
	}); err != nil {
		log.Warn().Err(err).Msg("record turn")
	}
}
