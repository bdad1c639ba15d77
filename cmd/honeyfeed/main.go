package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

const usage = `
# follow the cowrie log and serve the live feed on :8080
honeyfeed --config honeyfeed.yaml run

# classify a captured log and print the events
honeyfeed replay --json var/log/cowrie/cowrie.log
`

// version is set at build time.
var version = "dev"

func main() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "honeyfeed: %v\n", err)
		os.Exit(1)
	}
}

// App builds the command-line application.
func App() *cli.App {
	app := cli.NewApp()

	app.Name = "honeyfeed"
	app.Version = version
	app.Usage = usage
	app.Description = "live classification and alerting for cowrie honeypot logs"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config,c",
			Usage: "path to a YAML config file (default: $HONEYFEED_CONFIG or ./honeyfeed.yaml if present)",
		},
		cli.StringFlag{
			Name:  "log-level,l",
			Usage: "override log.level [debug, info, warn, error]",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "follow the honeypot log, serve the live feed and send notifications",
			Action: runCommand,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "echo",
					Usage: "also print every event to stdout",
				},
			},
		},
		{
			Name:      "replay",
			Usage:     "classify a whole log file (or - for stdin) and print the events",
			ArgsUsage: "<file|->",
			Action:    replayCommand,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "json",
					Usage: "print NDJSON instead of text",
				},
				cli.BoolFlag{
					Name:  "geo",
					Usage: "enrich events with geo lookups (off by default for replays)",
				},
				cli.IntFlag{
					Name:  "limit",
					Usage: "stop after this many lines (0 = no limit)",
				},
			},
		},
	}
	app.Action = runCommand
	return app
}
