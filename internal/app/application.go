package app

import (
	"github.com/R3E-Network/data_ledger/internal/app/auth"
	"github.com/R3E-Network/data_ledger/internal/app/events"
	registrysvc "github.com/R3E-Network/data_ledger/internal/app/services/registry"
	treasurysvc "github.com/R3E-Network/data_ledger/internal/app/services/treasury"
	"github.com/R3E-Network/data_ledger/internal/app/storage"
	"github.com/R3E-Network/data_ledger/internal/app/storage/memory"
	"github.com/R3E-Network/data_ledger/pkg/logger"
)

// Options configures the application. A nil Store defaults to the in-memory
// implementation; a nil Transferer defaults to the in-process ledger rail.
type Options struct {
	Owner      string
	Store      storage.LedgerStore
	Transferer treasurysvc.Transferer
	Logger     *logger.Logger
}

// Application ties the ledger services together.
type Application struct {
	log *logger.Logger

	Authority *auth.Authority
	Bus       *events.Bus
	Registry  *registrysvc.Service
	Treasury  *treasurysvc.Service
}

// New builds a fully initialised application.
func New(opts Options) *Application {
	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("app")
	}

	store := opts.Store
	if store == nil {
		store = memory.New()
	}

	authority := auth.NewAuthority(opts.Owner)
	bus := events.NewBus()

	// Every lifecycle event is logged through the same bus the API callers
	// can subscribe on.
	sink := log.WithField("source", "events")
	for _, topic := range []string{events.TopicDataSubmitted, events.TopicDataVerified, events.TopicRewardsClaimed} {
		bus.Subscribe(topic, func(e events.Event) {
			sink.WithFields(map[string]any{"topic": e.Topic, "data": e.Data}).Debug("event")
		})
	}

	return &Application{
		log:       log,
		Authority: authority,
		Bus:       bus,
		Registry:  registrysvc.New(store, authority, bus, log.WithField("service", "registry")),
		Treasury:  treasurysvc.New(store, authority, opts.Transferer, bus, log.WithField("service", "treasury")),
	}
}
