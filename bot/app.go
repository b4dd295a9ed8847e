// Package bot assembles the resident bot: dialogs, group moderation,
// command and callback wiring on top of the core telegram runtime.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/residentbot/core/config"
	tg "github.com/m3rciful/residentbot/core/telegram"
	"github.com/m3rciful/residentbot/core/telegram/router"
	"github.com/m3rciful/residentbot/core/telegram/state"
	"github.com/m3rciful/residentbot/meters"
	"github.com/m3rciful/residentbot/moderation"
	"github.com/m3rciful/residentbot/residents"
	"github.com/m3rciful/residentbot/storage"
)

// Stores bundles the persistence dependencies of the bot.
type Stores struct {
	Residents storage.ResidentStore
	Meters    storage.MeterStore
	Sanctions storage.SanctionStore
	Words     storage.WordStore
}

// App is the assembled bot application.
type App struct {
	cfg *coreconfig.Config

	stores     Stores
	residents  *residents.Service
	meters     *meters.Service
	wordlist   *moderation.Wordlist
	classifier *moderation.Classifier
	ledger     *moderation.Ledger
	sweeper    *moderation.Sweeper

	engine   *state.Engine
	registry *tg.Registry

	// cases holds pending moderation cases between the group violation and
	// the moderator's verdict. Process local, like dialog sessions.
	casesMu sync.Mutex
	cases   map[string]moderationCase

	sweeperDone chan struct{}
}

// New wires services, loads the restricted word list, and registers all
// commands, callbacks, and dialog nodes.
func New(ctx context.Context, cfg *coreconfig.Config, stores Stores) (*App, error) {
	words, err := stores.Words.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("bot: load word list: %w", err)
	}

	ledger, err := moderation.NewLedger(ctx, stores.Sanctions)
	if err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}

	wordlist := moderation.NewWordlist(words)
	a := &App{
		cfg:        cfg,
		stores:     stores,
		residents:  residents.NewService(stores.Residents, cfg.House.Apartments),
		meters:     meters.NewService(stores.Meters),
		wordlist:   wordlist,
		classifier: moderation.NewClassifier(wordlist),
		ledger:     ledger,
		engine:     state.NewEngine(),
		registry:   tg.NewRegistry(),
		cases:      make(map[string]moderationCase),
	}
	a.sweeper = moderation.NewSweeper(ledger, nil,
		time.Duration(cfg.Moderation.SweepIntervalSeconds)*time.Second)

	a.registerCommands()
	a.registerCallbacks()
	a.registerRegistrationNodes()
	a.registerMeterNodes()
	a.registerBroadcastNodes()
	a.registerWordNodes()

	return a, nil
}

// Registry exposes the command/callback registry for wiring.
func (a *App) Registry() *tg.Registry {
	return a.registry
}

// Routes builds all bot routes: commands, the text router with the group
// moderation branch, and the callback router.
func (a *App) Routes() []tg.Route {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
		IsAdmin: func(userID int64) bool {
			return a.residents.IsAdmin(context.Background(), userID)
		},
		OnAdminReject: func(c tele.Context) error {
			return c.Send("Команда доступна только администраторам.")
		},
	})
	routes = append(routes, router.TextRoutes(a.engine, a.registry, router.TextOptions{
		GroupText: a.handleGroupText,
	})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	return routes
}

// Middlewares returns the default chain for this bot.
func (a *App) Middlewares() []tg.Middleware {
	return tg.DefaultMiddlewares(a.cfg, nil)
}

// OnStart launches the sanction sweeper with a bot-backed notifier.
func (a *App) OnStart(ctx context.Context, rt tg.Runtime) error {
	a.sweeper = moderation.NewSweeper(a.ledger, a.liftNotifier(rt.Bot),
		time.Duration(a.cfg.Moderation.SweepIntervalSeconds)*time.Second)
	a.sweeperDone = make(chan struct{})
	go func() {
		defer close(a.sweeperDone)
		a.sweeper.Run(ctx)
	}()
	return nil
}

// OnStop waits for the sweeper to finish its current pass.
func (a *App) OnStop(_ context.Context, _ tg.Runtime) error {
	if a.sweeperDone != nil {
		<-a.sweeperDone
	}
	return nil
}

// liftNotifier privately tells a user their group restriction expired.
func (a *App) liftNotifier(bot *tele.Bot) moderation.Notifier {
	return moderation.NotifierFunc(func(_ context.Context, s storage.Sanction) error {
		_, err := bot.Send(&tele.User{ID: s.TeleID},
			"Ограничение на сообщения в чате дома снято. Пожалуйста, соблюдайте правила.")
		return err
	})
}
