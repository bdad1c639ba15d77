package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/crimson-sun/honeyfeed/internal/bus"
	"github.com/crimson-sun/honeyfeed/internal/connector"
	"github.com/crimson-sun/honeyfeed/internal/live"
	"github.com/crimson-sun/honeyfeed/internal/output"
	"github.com/crimson-sun/honeyfeed/internal/output/multi"
	"github.com/crimson-sun/honeyfeed/internal/output/stdout"
	"github.com/crimson-sun/honeyfeed/internal/output/webhook"
	"github.com/crimson-sun/honeyfeed/internal/pipeline"
	"github.com/crimson-sun/honeyfeed/internal/server"
	"github.com/crimson-sun/honeyfeed/internal/supervisor"
)

func runCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := newConnector(cfg.Source.Provider)
	if err != nil {
		return err
	}

	b := bus.New(cfg.Bus.FeedCapacity, cfg.Bus.NotifyCapacity)
	var out output.Output = b
	if c.Bool("echo") {
		out = multi.New(b, stdout.New(stdout.WithWriter(c.App.Writer)))
	}

	p := pipeline.New(conn, newEngine(cfg, true), out)
	defer p.Close()

	// Without the log there is nothing to do: fail before anything else starts.
	if err := p.Open(ctx, connector.ConnectorConfig{
		Provider: cfg.Source.Provider,
		Path:     cfg.Source.Path,
		Poll:     cfg.Source.Poll,
	}); err != nil {
		return err
	}

	hub := live.New(b.Feed(), cfg.Bus.SubscriberCapacity)
	srv := server.New(cfg.Server.Addr, hub,
		server.WithPingPeriod(cfg.Server.PingPeriod),
		server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateWindow),
	)
	if err := srv.Listen(); err != nil {
		return err
	}

	if cfg.Webhook.URL == "" {
		slog.Warn("no webhook url configured, notifications will be discarded")
	}
	sender := webhook.New(b.Notify(), cfg.Webhook.URL,
		webhook.WithTimeout(cfg.Webhook.Timeout),
		webhook.WithInterval(cfg.Webhook.Interval),
		webhook.WithBurst(cfg.Webhook.Burst),
		webhook.WithIdlePause(cfg.Webhook.IdlePause),
	)

	tree := supervisor.New(slog.Default(), supervisor.DefaultTreeConfig())
	tree.AddIngest(supervisor.Func("pipeline", p.Serve, pipeline.ErrSourceClosed))
	tree.AddDelivery(supervisor.Func("live-hub", hub.Serve))
	tree.AddDelivery(supervisor.Func("http-server", srv.Serve))
	tree.AddDelivery(supervisor.Func("webhook-sender", sender.Serve))

	slog.Info("honeyfeed started",
		"version", version,
		"source", cfg.Source.Path,
		"provider", cfg.Source.Provider,
		"addr", srv.Addr(),
		"geo", cfg.Geo.Enabled,
		"webhook", cfg.Webhook.URL != "",
	)
	err = tree.Serve(ctx)
	slog.Info("honeyfeed stopped")
	return err
}
