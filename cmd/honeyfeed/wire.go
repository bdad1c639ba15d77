package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/crimson-sun/honeyfeed/internal/config"
	"github.com/crimson-sun/honeyfeed/internal/connector"
	"github.com/crimson-sun/honeyfeed/internal/engine"
	"github.com/crimson-sun/honeyfeed/internal/engine/geo"
	"github.com/crimson-sun/honeyfeed/internal/engine/session"
	"github.com/crimson-sun/honeyfeed/internal/logging"

	// Register connector implementations.
	_ "github.com/crimson-sun/honeyfeed/internal/connector/stdin"
	_ "github.com/crimson-sun/honeyfeed/internal/connector/tailfile"
)

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return config.Config{}, err
	}
	if lvl := c.GlobalString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	return cfg, nil
}

func newEngine(cfg config.Config, withGeo bool) *engine.Engine {
	var resolver geo.Resolver
	if withGeo && cfg.Geo.Enabled {
		resolver = geo.NewIPAPI(cfg.Geo.Endpoint, cfg.Geo.Timeout)
	}
	cache := geo.New(resolver,
		geo.WithCapacity(cfg.Geo.Capacity),
		geo.WithNegativeTTL(cfg.Geo.NegativeTTL),
		geo.WithTimeout(cfg.Geo.Timeout),
	)
	return engine.New(session.NewTracker(cfg.Sessions.Capacity), cache)
}

func newConnector(provider string) (connector.Connector, error) {
	ctor, err := connector.Get(provider)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, connector.Providers())
	}
	return ctor(), nil
}
