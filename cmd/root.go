package cmd

import (
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "feedwatch",
		Usage: "Watch RSS and Atom feeds and push new entries to chat services",
		Description: `Polls a set of feeds, each on its own interval, and pushes
		entries published since the previous poll to the configured outputs:
		Discord webhooks, a Discord bot, Slack, Bluesky or any external command.

		The first poll of each feed only records what has already been
		published. Nothing is stored between runs.

		Flags can generally be set via environment variables, e.g.:

		--config => FEEDWATCH_CONFIG=config.toml
		--log-level => FEEDWATCH_LOG_LEVEL=debug
		`,
		Flags: loggingFlags(),
		Before: func(ctx *cli.Context) error {
			return setupLogging(ctx)
		},
		Commands: []*cli.Command{
			watchCmd(),
			validateCmd(),
			initCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.toml",
		Usage:   "Path to the TOML or YAML configuration file",
		EnvVars: []string{"FEEDWATCH_CONFIG"},
	}
}
