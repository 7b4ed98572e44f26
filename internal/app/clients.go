package app

import (
	"github.com/draftlane/draftlane-backend/internal/clients/gcp"
	redisbus "github.com/draftlane/draftlane-backend/internal/clients/redis"
	"github.com/draftlane/draftlane-backend/internal/clients/sendgrid"
	"github.com/draftlane/draftlane-backend/internal/clients/stripe"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
	"github.com/draftlane/draftlane-backend/internal/services/generator"
)

type Clients struct {
	Stripe    stripe.Gateway
	Mailer    sendgrid.Client
	Bus       redisbus.EventBus
	SiteStore gcp.SiteStore
	Generator generator.ContentGenerator
}

// wireClients builds the external adapters. The payment gateway is the only
// hard requirement; everything else degrades with a warning so the API
// process can run without worker-side credentials.
func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	gw, err := stripe.New(log, stripe.ConfigFromEnv())
	if err != nil {
		return c, err
	}
	c.Stripe = gw

	if mailer, merr := sendgrid.New(log, sendgrid.ConfigFromEnv()); merr != nil {
		log.Warn("sendgrid not configured; notifications disabled", "error", merr)
	} else {
		c.Mailer = mailer
	}

	if cfg.RedisAddr != "" {
		bus, berr := redisbus.NewEventBus(log, cfg.RedisAddr, cfg.RedisChannel)
		if berr != nil {
			log.Warn("redis not reachable; order events disabled", "error", berr)
			c.Bus = redisbus.NopBus{}
		} else {
			c.Bus = bus
		}
	} else {
		c.Bus = redisbus.NopBus{}
	}

	if store, serr := gcp.NewSiteStore(log); serr != nil {
		log.Warn("site store not configured; publishing disabled", "error", serr)
	} else {
		c.SiteStore = store
	}

	if gen, gerr := generator.New(log, generator.ConfigFromEnv()); gerr != nil {
		log.Warn("generator not configured; article generation disabled", "error", gerr)
	} else {
		c.Generator = gen
	}

	return c, nil
}
