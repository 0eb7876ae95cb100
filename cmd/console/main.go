package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/okulov/classify-console/cmd/console/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "classify-console",
		Usage: "batch product classification console",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "submit a batch and follow the job to completion",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "environment file path",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "batch file (.xlsx or .json); omit to consume a crawler hand-off",
					},
					&cli.BoolFlag{
						Name:  "text-log",
						Usage: "human-readable log output",
					},
				},
				Action: commands.RunAction,
			},
			{
				Name:  "models",
				Usage: "model selection commands",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "show allowed models and current selections",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "environment file path",
								Value: ".env",
							},
						},
						Action: commands.ModelsListAction,
					},
					{
						Name:  "set",
						Usage: "pick a model for a provider",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "environment file path",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "provider",
								Usage:    "provider key (groq/cerebras/gemini/openrouter)",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "model",
								Usage:    "model identifier",
								Required: true,
							},
						},
						Action: commands.ModelsSetAction,
					},
				},
			},
			{
				Name:  "handoff",
				Usage: "store a batch for a later run, crawler style",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "environment file path",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "file",
						Usage:    "batch file (.xlsx or .json)",
						Required: true,
					},
				},
				Action: commands.HandoffAction,
			},
			{
				Name:  "history",
				Usage: "show recent job summaries",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "environment file path",
						Value: ".env",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "number of summaries to show",
						Value: 10,
					},
				},
				Action: commands.HistoryAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
