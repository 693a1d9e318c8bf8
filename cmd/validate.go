package cmd

import (
	"context"
	"feedwatch/config"
	"feedwatch/feeds"
	"feedwatch/models"
	"feedwatch/outputs"
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"
)

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check the configuration and list the outputs of each feed",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return cli.Exit(err, 1)
			}

			w := ctx.App.Writer
			for _, name := range cfg.InputNames() {
				feed := feeds.DescriptorFromConfig(name, cfg.Inputs[name])
				fmt.Fprintf(w, "%s (%s, every %s, %d retries)\n", feed.Name, feed.URL, feed.Interval, feed.RetryLimit)

				sinks, err := outputs.Resolve(feed.Name, feed.Tags, cfg.Outputs, describe)
				if err != nil {
					return cli.Exit(err, 1)
				}
				if len(sinks) == 0 {
					fmt.Fprintln(w, "  no outputs")
				}
				for _, sink := range sinks {
					fmt.Fprintf(w, "  %s\n", sink)
				}
			}
			return nil
		},
	}
}

// description stands in for a sink so outputs are listed in the order the
// watcher calls them without building any client
type description string

func (d description) Deliver(context.Context, string, []models.Entry) error {
	return nil
}

func (d description) String() string {
	return string(d)
}

func describe(out config.Output) (outputs.Sink, error) {
	var target string
	switch out.Type {
	case config.TypeCustom:
		target = out.Command
	case config.TypeDiscordBot:
		target = fmt.Sprintf("user %d", out.UserID)
	case config.TypeBluesky:
		target = out.Identifier
	default:
		// Webhook URLs carry credentials in their path
		if u, err := url.Parse(out.URL); err == nil {
			target = u.Host
		}
	}
	return description(out.Type + " " + target), nil
}
