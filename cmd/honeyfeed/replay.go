package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/crimson-sun/honeyfeed/internal/connector"
	"github.com/crimson-sun/honeyfeed/internal/output/stdout"
	"github.com/crimson-sun/honeyfeed/internal/pipeline"
)

func replayCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("replay: expected exactly one <file|-> argument")
	}
	path := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	provider := "file"
	if path == "-" {
		provider = "stdin"
	}
	conn, err := newConnector(provider)
	if err != nil {
		return err
	}

	opts := []stdout.Option{stdout.WithWriter(c.App.Writer)}
	if c.Bool("json") {
		opts = append(opts, stdout.WithJSON())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(conn, newEngine(cfg, c.Bool("geo")), stdout.New(opts...))
	defer p.Close()

	return p.Query(ctx,
		connector.ConnectorConfig{Provider: provider, Path: path},
		connector.QueryParams{Limit: c.Int("limit")},
	)
}
