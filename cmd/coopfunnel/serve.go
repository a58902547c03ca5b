package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/metalagman/coopfunnel/internal/config"
	"github.com/metalagman/coopfunnel/internal/conversation"
	"github.com/metalagman/coopfunnel/internal/coop"
	"github.com/metalagman/coopfunnel/internal/db"
	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/metalagman/coopfunnel/internal/gcp"
	"github.com/metalagman/coopfunnel/internal/inbound"
	"github.com/metalagman/coopfunnel/internal/ledger"
	"github.com/metalagman/coopfunnel/internal/metrics"
	"github.com/metalagman/coopfunnel/internal/sheets"
	"github.com/metalagman/coopfunnel/internal/stt"
	"github.com/metalagman/coopfunnel/internal/userstate"
	"github.com/metalagman/coopfunnel/internal/webhook"
	"github.com/metalagman/coopfunnel/internal/whatsapp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the WhatsApp webhook service",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			app := fx.New(
				serveModule(cfg),
				fx.WithLogger(func() fxevent.Logger { return fxLogger{} }),
			)
			if err := app.Err(); err != nil {
				return err
			}
			return runApp(cmd.Context(), app)
		},
	}
}

func runApp(ctx context.Context, app *fx.App) error {
	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	select {
	case <-ctx.Done():
	case sig := <-app.Done():
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.StopTimeout())
	defer cancel()
	return app.Stop(stopCtx)
}

func serveModule(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			metrics.New,
			newStateStore,
			newSheets,
			newJournal,
			newDirectory,
			newLedger,
			newCoop,
			newLinks,
			newEngine,
			newWhatsApp,
			newTranscriber,
			newNormalizer,
			newDriver,
			newService,
			newWebhook,
			newHTTPServer,
		),
		fx.Invoke(func(*http.Server) {}),
	)
}

type healthCheck func(ctx context.Context) error

func newStateStore(lc fx.Lifecycle, cfg config.Config) (userstate.Store, healthCheck, error) {
	if cfg.State.Backend == config.StateMemory {
		log.Warn().Msg("state: in-memory backend, candidate progress is lost on restart")
		return userstate.NewMemoryStore(cfg.State.TTL), func(context.Context) error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := userstate.NewRedisStore(client, cfg.State.TTL, cfg.Timeouts.Redis)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.Ping(ctx); err != nil {
				log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("state: redis not reachable yet")
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return store, store.Ping, nil
}

func newSheets(cfg config.Config) (*sheets.Client, error) {
	return sheets.New(context.Background(), sheets.Config{
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		PositionsTab:  cfg.Sheets.PositionsTab,
		LeadsTab:      cfg.Sheets.LeadsTab,
		Timeout:       cfg.Timeouts.Sheets,
	}, gcp.ClientOptions(cfg.Sheets.Credentials, sheets.Scope)...)
}

func newJournal(lc fx.Lifecycle, cfg config.Config) (*db.Store, error) {
	store, closeFn, err := openJournal(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(closeFn))
	return store, nil
}

func newDirectory(m *metrics.Metrics, c *sheets.Client) funnel.PositionDirectory {
	return m.Directory(c)
}

func newLedger(m *metrics.Metrics, c *sheets.Client, journal *db.Store) funnel.LeadLedger {
	return ledger.NewFanout(m.Ledger("sheets", c), m.Ledger("journal", journal))
}

func newCoop(cfg config.Config) funnel.CoopInfo {
	return coop.NewProvider(cfg.Coop.InfoPath)
}

func newLinks(cfg config.Config) funnel.LinkProvider {
	return funnel.StaticLink(cfg.Coop.ApplicationLink)
}

func newEngine(positions funnel.PositionDirectory, leads funnel.LeadLedger, info funnel.CoopInfo, links funnel.LinkProvider) (*funnel.Engine, error) {
	return funnel.NewEngine(funnel.Deps{Positions: positions, Leads: leads, Coop: info, Links: links})
}

// newWhatsApp returns nil when the channel is not configured; turns then run without replies.
func newWhatsApp(cfg config.Config) (*whatsapp.Client, error) {
	if !cfg.WhatsAppEnabled() {
		log.Warn().Msg("whatsapp: token or phone number id missing, outbound messages disabled")
		return nil, nil
	}
	return whatsapp.NewClient(whatsapp.Config{
		Token:         cfg.WhatsApp.Token,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		BaseURL:       cfg.WhatsApp.BaseURL,
		Timeout:       cfg.Timeouts.WhatsApp,
	}, nil)
}

func newTranscriber(lc fx.Lifecycle, cfg config.Config, m *metrics.Metrics) (inbound.Transcriber, error) {
	var next inbound.Transcriber
	switch cfg.Speech.Provider {
	case config.SpeechNone:
		return nil, nil
	case config.SpeechCloud:
		model := cfg.Speech.Model
		if strings.HasPrefix(model, "gemini") {
			model = ""
		}
		c, err := stt.NewCloud(context.Background(), stt.CloudConfig{
			LanguageCode: cfg.Speech.Language,
			Model:        model,
		}, gcp.ClientOptions(cfg.Speech.Credentials, cloudPlatformScope)...)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(c.Close))
		next = c
	default:
		g, err := stt.NewGemini(context.Background(), cfg.SpeechAPIKey(), cfg.Speech.Model)
		if err != nil {
			return nil, err
		}
		next = g
	}
	return stt.NewBounded(next, cfg.Timeouts.Speech, m.ObserveCall), nil
}

func newNormalizer(wa *whatsapp.Client, t inbound.Transcriber) *inbound.Normalizer {
	var media inbound.MediaFetcher
	if wa != nil {
		media = wa
	}
	return inbound.NewNormalizer(media, t)
}

func newDriver(
	cfg config.Config,
	engine *funnel.Engine,
	positions funnel.PositionDirectory,
	leads funnel.LeadLedger,
	info funnel.CoopInfo,
	links funnel.LinkProvider,
) (conversation.Driver, error) {
	if cfg.Agent.Driver != config.DriverADK {
		return conversation.NewDeterministic(engine)
	}
	llm, err := conversation.NewGeminiModel(context.Background(), cfg.Agent.Model, cfg.AgentAPIKey())
	if err != nil {
		return nil, err
	}
	return conversation.NewADK(conversation.ADKConfig{
		AppName:   cfg.Agent.AppName,
		Model:     llm,
		Engine:    engine,
		Positions: positions,
		Leads:     leads,
		Coop:      info,
		Links:     links,
	})
}

func newService(
	cfg config.Config,
	store userstate.Store,
	driver conversation.Driver,
	wa *whatsapp.Client,
	journal *db.Store,
	m *metrics.Metrics,
) (*conversation.Service, error) {
	var messenger conversation.Messenger
	if wa != nil {
		messenger = wa
	}
	return conversation.NewService(conversation.ServiceConfig{
		Store:       store,
		Driver:      driver,
		Messenger:   messenger,
		Journal:     journal,
		Metrics:     m,
		Timeout:     cfg.Timeouts.Turn,
		SendTimeout: cfg.Timeouts.WhatsApp,
	})
}

func newWebhook(cfg config.Config, svc *conversation.Service, n *inbound.Normalizer, m *metrics.Metrics, health healthCheck) (*webhook.Server, error) {
	return webhook.NewServer(webhook.Config{
		VerifyToken: cfg.WhatsApp.VerifyToken,
		Turns:       svc,
		Normalizer:  n,
		Metrics:     m.Handler(),
		Health:      health,
	})
}

func newHTTPServer(lc fx.Lifecycle, cfg config.Config, wh *webhook.Server) *http.Server {
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      wh.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			log.Info().Str("addr", ln.Addr().String()).Msg("webhook listening")
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("http server stopped")
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
	return srv
}

// fxLogger reports container failures through zerolog and drops the rest.
type fxLogger struct{}

func (fxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.Provided:
		if e.Err != nil {
			log.Error().Err(e.Err).Msg("fx: provide failed")
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("function", e.FunctionName).Msg("fx: invoke failed")
		}
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("callee", e.FunctionName).Msg("fx: start hook failed")
		}
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("callee", e.FunctionName).Msg("fx: stop hook failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			log.Error().Err(e.Err).Msg("fx: start failed")
			return
		}
		log.Info().Msg("coopfunnel started")
	}
}
